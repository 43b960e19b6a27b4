package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCountersAppearInScrape(t *testing.T) {
	m := New()
	m.FramesSent.Add(3)
	m.Intrusions.Add(1)
	m.SessionActive.Store(1)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	for _, want := range []string{
		"zoneguard_frames_sent_total 3",
		"zoneguard_intrusions_total 1",
		"zoneguard_session_active 1",
		"zoneguard_demo_requests_total 0",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("scrape missing %q:\n%s", want, body)
		}
	}
}
