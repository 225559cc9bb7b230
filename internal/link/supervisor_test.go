package link

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"deskcat/internal/model"
	"deskcat/internal/protocol"
	"deskcat/internal/transport"
)

// fakeDialer hands out loopback transports, optionally failing the
// first few dials. The device end of each successful dial is exposed
// for the test to script.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	dials    int
	devices  chan transport.Transport
}

var errNoDevice = errors.New("no such port")

func newFakeDialer(failures int) *fakeDialer {
	return &fakeDialer{failures: failures, devices: make(chan transport.Transport, 8)}
}

func (d *fakeDialer) Dial(endpoint string) (transport.Transport, error) {
	d.mu.Lock()
	d.dials++
	fail := d.dials <= d.failures
	d.mu.Unlock()
	if fail {
		return nil, errNoDevice
	}
	host, device := transport.NewLoopback()
	d.devices <- device
	return host, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func fastConfig(dialer transport.Dialer) Config {
	return Config{
		Endpoint:       "loop0",
		Dialer:         dialer,
		SettleDelay:    time.Millisecond,
		PongTimeout:    20 * time.Millisecond,
		ReconnectDelay: 10 * time.Millisecond,
		MaxReconnects:  3,
	}
}

func waitEvent(t *testing.T, s *Supervisor, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-s.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

func TestSupervisorHandshakeSendsClockAndStats(t *testing.T) {
	dialer := newFakeDialer(0)
	s := NewSupervisor(fastConfig(dialer), zap.NewNop())
	defer s.Close()

	lines := make(chan string, 8)
	go func() {
		device := <-dialer.devices
		scanner := bufio.NewScanner(device)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "PING" {
				device.Write([]byte("PONG\n"))
			}
			lines <- line
		}
	}()

	done := make(chan error, 1)
	go func() { done <- s.Connect(context.Background()) }()

	waitEvent(t, s, EventConnected)
	if err := <-done; err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if got := s.State(); got != model.LinkConnected {
		t.Fatalf("state = %v, want %v", got, model.LinkConnected)
	}

	// The sync burst follows the ping: clock first, then zeroed stats.
	want := []string{"PING", "TIME:", "STATS:CPU:0,RAM:0,WPM:0"}
	for _, prefix := range want {
		select {
		case line := <-lines:
			if !strings.HasPrefix(line, prefix) {
				t.Fatalf("got %q, want prefix %q", line, prefix)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", prefix)
		}
	}
}

func TestSupervisorSendRejectedWhileDisconnected(t *testing.T) {
	s := NewSupervisor(fastConfig(newFakeDialer(0)), zap.NewNop())
	f := s.Send(protocol.Stop{})
	if err := f.Wait(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}
}

func TestSupervisorReconnectsAfterTransportLoss(t *testing.T) {
	dialer := newFakeDialer(0)
	s := NewSupervisor(fastConfig(dialer), zap.NewNop())
	defer s.Close()

	// Each dialed device drains host writes; closing it simulates an
	// unplug mid-session.
	drain := func(d transport.Transport) {
		scanner := bufio.NewScanner(d)
		for scanner.Scan() {
		}
	}
	go s.Connect(context.Background())

	first := <-dialer.devices
	go drain(first)
	waitEvent(t, s, EventConnected)
	first.Close()

	waitEvent(t, s, EventDisconnected)
	go drain(<-dialer.devices)
	waitEvent(t, s, EventConnected)
	if dialer.dialCount() != 2 {
		t.Fatalf("dials = %d, want 2", dialer.dialCount())
	}
}

func TestSupervisorCancelDuringHandshakeReleasesTransport(t *testing.T) {
	dialer := newFakeDialer(0)
	cfg := fastConfig(dialer)
	cfg.SettleDelay = 500 * time.Millisecond
	s := NewSupervisor(cfg, zap.NewNop())
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Connect(ctx) }()

	device := <-dialer.devices
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Connect returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not return after cancellation")
	}

	// The device end must observe the close rather than hang against a
	// half-open link.
	readDone := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(device)
		for scanner.Scan() {
		}
		close(readDone)
	}()
	select {
	case <-readDone:
	case <-time.After(2 * time.Second):
		t.Fatal("device end still open after cancellation")
	}

	time.Sleep(5 * cfg.ReconnectDelay)
	if got := dialer.dialCount(); got != 1 {
		t.Fatalf("dials = %d, want 1 after cancellation", got)
	}
	if got := s.State(); got != model.LinkDisconnected {
		t.Fatalf("state = %v, want %v", got, model.LinkDisconnected)
	}
}

func TestSupervisorGivesUpAfterBudgetExhausted(t *testing.T) {
	dialer := newFakeDialer(100) // every dial fails
	cfg := fastConfig(dialer)
	s := NewSupervisor(cfg, zap.NewNop())
	defer s.Close()

	go s.Connect(context.Background())
	waitEvent(t, s, EventGaveUp)

	// Quiescent until the next explicit Connect: no further dials.
	before := dialer.dialCount()
	time.Sleep(5 * cfg.ReconnectDelay)
	if after := dialer.dialCount(); after != before {
		t.Fatalf("dialed %d more times after giving up", after-before)
	}
	if got := s.State(); got != model.LinkDisconnected {
		t.Fatalf("state = %v, want %v", got, model.LinkDisconnected)
	}
}

func TestSupervisorExplicitConnectResetsBudget(t *testing.T) {
	dialer := newFakeDialer(100)
	s := NewSupervisor(fastConfig(dialer), zap.NewNop())
	defer s.Close()

	go s.Connect(context.Background())
	waitEvent(t, s, EventGaveUp)
	first := dialer.dialCount()

	go s.Connect(context.Background())
	waitEvent(t, s, EventGaveUp)
	if second := dialer.dialCount() - first; second != first {
		t.Fatalf("second episode made %d dials, want %d", second, first)
	}
}

func TestSupervisorForwardsDeviceLines(t *testing.T) {
	dialer := newFakeDialer(0)
	s := NewSupervisor(fastConfig(dialer), zap.NewNop())
	defer s.Close()

	go func() {
		device := <-dialer.devices
		scanner := bufio.NewScanner(device)
		device.Write([]byte("HEARTBEAT\n"))
		for scanner.Scan() {
		}
	}()
	go s.Connect(context.Background())

	ev := waitEvent(t, s, EventLine)
	if ev.Line != "HEARTBEAT" {
		t.Fatalf("line = %q, want HEARTBEAT", ev.Line)
	}
}
