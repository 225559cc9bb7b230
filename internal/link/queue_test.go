package link

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"deskcat/internal/protocol"
)

// recordingWriter captures each write with its wall-clock timestamp.
type recordingWriter struct {
	mu     sync.Mutex
	lines  []string
	stamps []time.Time
	fail   bool
}

var errWriterBroken = errors.New("writer broken")

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return 0, errWriterBroken
	}
	w.lines = append(w.lines, string(p))
	w.stamps = append(w.stamps, time.Now())
	return len(p), nil
}

func (w *recordingWriter) snapshot() ([]string, []time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...), append([]time.Time(nil), w.stamps...)
}

func TestQueuePreservesOrderAndFraming(t *testing.T) {
	w := &recordingWriter{}
	q := NewQueue(w)
	defer q.Close()

	futs := []*Future{
		q.Enqueue(protocol.Speed{MS: 120}),
		q.Enqueue(protocol.Stop{}),
		q.Enqueue(protocol.StreakOn{}),
	}
	for _, f := range futs {
		if err := f.Wait(); err != nil {
			t.Fatalf("failed to send: %v", err)
		}
	}

	lines, _ := w.snapshot()
	want := []string{"SPEED:120\n", "STOP\n", "STREAK_ON\n"}
	if len(lines) != len(want) {
		t.Fatalf("got %d writes, want %d", len(lines), len(want))
	}
	for i, line := range want {
		if lines[i] != line {
			t.Errorf("write %d: got %q, want %q", i, lines[i], line)
		}
	}
}

func TestQueueEnforcesMinimumSpacing(t *testing.T) {
	w := &recordingWriter{}
	q := NewQueue(w)
	defer q.Close()

	var last *Future
	for i := 0; i < 4; i++ {
		last = q.Enqueue(protocol.Speed{MS: 100 + i})
	}
	if err := last.Wait(); err != nil {
		t.Fatalf("failed to send: %v", err)
	}

	_, stamps := w.snapshot()
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < protocol.MinCommandSpacing {
			t.Errorf("gap %d-%d is %v, want at least %v", i-1, i, gap, protocol.MinCommandSpacing)
		}
	}
}

func TestQueueFailedWriteRejectsOnlyItsFuture(t *testing.T) {
	w := &recordingWriter{fail: true}
	q := NewQueue(w)
	defer q.Close()

	f1 := q.Enqueue(protocol.Ping{})
	if err := f1.Wait(); !errors.Is(err, errWriterBroken) {
		t.Fatalf("got %v, want writer error", err)
	}

	w.mu.Lock()
	w.fail = false
	w.mu.Unlock()

	f2 := q.Enqueue(protocol.Ping{})
	if err := f2.Wait(); err != nil {
		t.Fatalf("later send failed: %v", err)
	}
}

func TestQueueRejectsAfterClose(t *testing.T) {
	w := &recordingWriter{}
	q := NewQueue(w)
	q.Close()

	f := q.Enqueue(protocol.Stop{})
	if err := f.Wait(); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("got %v, want ErrQueueClosed", err)
	}
}

func TestQueueSingleCommandTerminated(t *testing.T) {
	w := &recordingWriter{}
	q := NewQueue(w)
	defer q.Close()

	if err := q.Enqueue(protocol.Heartbeat{}).Wait(); err != nil {
		t.Fatalf("failed to send: %v", err)
	}
	lines, _ := w.snapshot()
	if len(lines) != 1 || !strings.HasSuffix(lines[0], protocol.Terminator) {
		t.Fatalf("got %q, want newline-terminated heartbeat", lines)
	}
}
