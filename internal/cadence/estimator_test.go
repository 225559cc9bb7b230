package cadence

import (
	"testing"
	"time"
)

func burst(e *Estimator, start time.Time, n int, span time.Duration) time.Time {
	step := span / time.Duration(n-1)
	t := start
	for i := 0; i < n; i++ {
		e.RecordKeystroke(t, "a")
		if i < n-1 {
			t = t.Add(step)
		}
	}
	return t
}

func TestComputeWPMTooFewEvents(t *testing.T) {
	e := NewEstimator()
	now := time.Now()
	if got := e.ComputeWPM(now); got != 0 {
		t.Fatalf("expected 0 with no events, got %v", got)
	}
	e.RecordKeystroke(now, "a")
	if got := e.ComputeWPM(now); got != 0 {
		t.Fatalf("expected 0 with one event, got %v", got)
	}
}

func TestComputeWPMEightKeyBurst(t *testing.T) {
	e := NewEstimator()
	start := time.Unix(1000, 0)
	last := burst(e, start, 8, time.Second)

	// (8/5)/(1/60 min) = 96, no prior smoothing.
	if got := e.ComputeWPM(last); got != 96.0 {
		t.Fatalf("expected 96.0 on first computation, got %v", got)
	}
	// Steady state: 0.6*96 + 0.4*96 stays 96.
	if got := e.ComputeWPM(last); got != 96.0 {
		t.Fatalf("expected 96.0 at steady state, got %v", got)
	}
}

func TestComputeWPMSubMinimumSpan(t *testing.T) {
	e := NewEstimator()
	start := time.Unix(1000, 0)
	last := burst(e, start, 5, 300*time.Millisecond)
	if got := e.ComputeWPM(last); got != 0 {
		t.Fatalf("expected 0 for sub-0.4s span, got %v", got)
	}
}

func TestComputeWPMClampedAtMax(t *testing.T) {
	e := NewEstimator()
	start := time.Unix(1000, 0)
	// 8 keys in 0.41s is far beyond 200 WPM.
	last := burst(e, start, 8, 410*time.Millisecond)
	if got := e.ComputeWPM(last); got != 200.0 {
		t.Fatalf("expected clamp to 200, got %v", got)
	}
}

func TestComputeWPMUsesLastEightEvents(t *testing.T) {
	e := NewEstimator()
	start := time.Unix(1000, 0)
	// 20 keys over 19s; the last 8 span 7s.
	last := burst(e, start, 20, 19*time.Second)
	want := (8.0 / 5.0) / (7.0 / 60.0)
	got := e.ComputeWPM(last)
	if diff := got - want; diff > 0.1 || diff < -0.1 {
		t.Fatalf("expected about %.1f from the 8-event window, got %v", want, got)
	}
}

func TestRetentionHorizon(t *testing.T) {
	e := NewEstimator()
	start := time.Unix(1000, 0)
	burst(e, start, 8, time.Second)
	// 61s later every event is stale.
	if got := e.ComputeWPM(start.Add(61 * time.Second)); got != 0 {
		t.Fatalf("expected 0 after the retention horizon, got %v", got)
	}
}

func TestIdleEdgeIsImmediate(t *testing.T) {
	e := NewEstimator()
	start := time.Unix(1000, 0)
	last := burst(e, start, 8, time.Second)
	if !e.Active() {
		t.Fatal("expected active after keystrokes")
	}

	// 1001ms after the last keystroke the very first check must flip.
	sample, rec, idled := e.CheckIdle(last.Add(1001 * time.Millisecond))
	if !idled {
		t.Fatal("expected idle edge at T+1001ms")
	}
	if sample.Active || sample.WPM != 0 || !sample.IdleEdge {
		t.Fatalf("unexpected idle sample: %+v", sample)
	}
	if rec == nil || rec.Keystrokes != 8 {
		t.Fatalf("unexpected session record: %+v", rec)
	}
	if e.Active() {
		t.Fatal("expected inactive after idle edge")
	}
}

func TestCheckIdleNoEdgeWhileTyping(t *testing.T) {
	e := NewEstimator()
	start := time.Unix(1000, 0)
	last := burst(e, start, 8, time.Second)
	if _, _, idled := e.CheckIdle(last.Add(900 * time.Millisecond)); idled {
		t.Fatal("did not expect idle edge within the timeout")
	}
}

func TestSetIdleTimeoutStretchesTheEdge(t *testing.T) {
	e := NewEstimator()
	e.SetIdleTimeout(3 * time.Second)
	start := time.Unix(1000, 0)
	last := burst(e, start, 8, time.Second)
	if _, _, idled := e.CheckIdle(last.Add(2 * time.Second)); idled {
		t.Fatal("did not expect idle edge before the stretched timeout")
	}
	// Non-positive overrides are ignored.
	e.SetIdleTimeout(0)
	if _, _, idled := e.CheckIdle(last.Add(3001 * time.Millisecond)); !idled {
		t.Fatal("expected idle edge past the stretched timeout")
	}
}

func TestTickReportsActiveAndWPMSeparately(t *testing.T) {
	e := NewEstimator()
	start := time.Unix(1000, 0)

	sample, _ := e.Tick(start)
	if sample.Active || sample.WPM != 0 {
		t.Fatalf("expected inactive zero sample, got %+v", sample)
	}

	// A two-key burst under the elapsed floor: active but WPM 0. The
	// flag disambiguates "slow but typing" from "not typing".
	e.RecordKeystroke(start, "a")
	e.RecordKeystroke(start.Add(100*time.Millisecond), "b")
	sample, _ = e.Tick(start.Add(200 * time.Millisecond))
	if !sample.Active {
		t.Fatal("expected active sample during a session")
	}
	if sample.WPM != 0 {
		t.Fatalf("expected 0 WPM under elapsed floor, got %v", sample.WPM)
	}
}

func TestSessionRecordAverages(t *testing.T) {
	e := NewEstimator()
	start := time.Unix(1000, 0)
	last := burst(e, start, 8, time.Second)
	e.ComputeWPM(last)

	_, rec, idled := e.CheckIdle(last.Add(2 * time.Second))
	if !idled || rec == nil {
		t.Fatal("expected session record on idle edge")
	}
	if rec.PeakWPM != 96.0 || rec.AvgWPM != 96.0 {
		t.Fatalf("unexpected peak/avg: %+v", rec)
	}
	if !rec.StartedAt.Equal(start) {
		t.Fatalf("unexpected session start: %v", rec.StartedAt)
	}
}
