package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"zoneguard/internal/store"
)

type fakeMailer struct {
	err  error
	sent []string
}

func (m *fakeMailer) SendDemoRequest(email, phone string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email+"/"+phone)
	return nil
}

func postDemo(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/request-demo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func responseMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %s", rr.Body.String())
	}
	return resp.Message
}

func TestMissingFieldsRejected(t *testing.T) {
	mailer := &fakeMailer{}
	h := NewHandler(mailer, nil, nil)

	for _, body := range []string{
		`{}`,
		`{"email":"a@example.com"}`,
		`{"phone":"+391234"}`,
		`not json`,
	} {
		rr := postDemo(t, h, body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status %d, want 400", body, rr.Code)
		}
		if msg := responseMessage(t, rr); msg != "Email and phone are required." {
			t.Fatalf("body %q: message %q", body, msg)
		}
	}
	if len(mailer.sent) != 0 {
		t.Fatal("invalid request reached the mailer")
	}
}

func TestAcceptedRequestIsMailedAndStored(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if err := st.Migrate(); err != nil {
		t.Fatal(err)
	}

	mailer := &fakeMailer{}
	h := NewHandler(mailer, st, nil)

	rr := postDemo(t, h, `{"email":"a@example.com","phone":"+391234"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rr.Code)
	}
	if msg := responseMessage(t, rr); msg != "Demo request sent!" {
		t.Fatalf("message %q", msg)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "a@example.com/+391234" {
		t.Fatalf("mailer saw %v", mailer.sent)
	}

	rows, err := st.ListDemoRequests(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Email != "a@example.com" {
		t.Fatalf("stored %v", rows)
	}
}

func TestMailFailureReturns500(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	h := NewHandler(mailer, nil, nil)

	rr := postDemo(t, h, `{"email":"a@example.com","phone":"+391234"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rr.Code)
	}
	if msg := responseMessage(t, rr); msg != "Failed to send email." {
		t.Fatalf("message %q", msg)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := NewHandler(&fakeMailer{}, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/request-demo", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status %d, want 204", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}
