package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"deskcat/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "deskcat.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return s
}

func TestInsertAndListSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := model.SessionRecord{
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			EndedAt:    base.Add(time.Duration(i)*time.Hour + 5*time.Minute),
			Keystrokes: 100 + i,
			PeakWPM:    80.5,
			AvgWPM:     61.2,
		}
		if _, err := s.InsertSession(ctx, rec); err != nil {
			t.Fatalf("failed to insert session: %v", err)
		}
	}

	got, err := s.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d sessions, want 3", len(got))
	}
	// Most recent first.
	if got[0].Keystrokes != 102 {
		t.Errorf("first session keystrokes = %d, want 102", got[0].Keystrokes)
	}
	if !got[0].EndedAt.Equal(base.Add(2*time.Hour + 5*time.Minute)) {
		t.Errorf("first session ended_at = %v", got[0].EndedAt)
	}
	if got[0].PeakWPM != 80.5 || got[0].AvgWPM != 61.2 {
		t.Errorf("wpm fields = %v/%v", got[0].PeakWPM, got[0].AvgWPM)
	}
}

func TestListSessionsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		rec := model.SessionRecord{
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			EndedAt:   base.Add(time.Duration(i)*time.Minute + 30*time.Second),
		}
		if _, err := s.InsertSession(ctx, rec); err != nil {
			t.Fatalf("failed to insert session: %v", err)
		}
	}

	got, err := s.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sessions, want 2", len(got))
	}
}

func TestSaveSessionSinksRecord(t *testing.T) {
	s := openTestStore(t)
	rec := model.SessionRecord{
		StartedAt:  time.Now().UTC(),
		EndedAt:    time.Now().UTC().Add(time.Minute),
		Keystrokes: 42,
	}
	if err := s.SaveSession(rec); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	got, err := s.ListSessions(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(got) != 1 || got[0].Keystrokes != 42 {
		t.Fatalf("got %+v, want one session with 42 keystrokes", got)
	}
}
