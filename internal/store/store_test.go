package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "zoneguard.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDemoRequestRoundTrip(t *testing.T) {
	s := openTestStore(t)

	req := &DemoRequest{Email: "a@example.com", Phone: "+3912345678"}
	if err := s.SaveDemoRequest(req); err != nil {
		t.Fatal(err)
	}
	if req.ID == "" || req.CreatedAt.IsZero() {
		t.Fatal("save did not fill in id/timestamp")
	}

	got, err := s.ListDemoRequests(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d requests, want 1", len(got))
	}
	if got[0].Email != req.Email || got[0].Phone != req.Phone || got[0].ID != req.ID {
		t.Fatalf("round trip mismatch: %+v", got[0])
	}
}

func TestListDemoRequestsNewestFirstWithLimit(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := s.SaveDemoRequest(&DemoRequest{
			Email:     "user@example.com",
			Phone:     "+390000000",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListDemoRequests(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d requests, want 2", len(got))
	}
	if !got[0].CreatedAt.After(got[1].CreatedAt) {
		t.Fatalf("not newest first: %v then %v", got[0].CreatedAt, got[1].CreatedAt)
	}
}

func TestIntrusionEventsSinceFilter(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		err := s.SaveIntrusionEvent(&IntrusionEvent{
			SessionID:  "session-1",
			SourceKind: "camera",
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.RecentIntrusionEvents(base.Add(2*time.Minute), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	for _, e := range got {
		if e.Timestamp.Before(base.Add(2 * time.Minute)) {
			t.Fatalf("event %v predates the filter", e.Timestamp)
		}
	}
}
