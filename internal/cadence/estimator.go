package cadence

import (
	"math"
	"sync"
	"time"

	"deskcat/internal/model"
)

// Estimator tuning. The WPM recipe follows the industry-standard
// definition (5 characters per word) over a short recent-event window.
const (
	// TickInterval is the host's cadence re-evaluation period (~12/sec).
	TickInterval = 80 * time.Millisecond

	// IdleTimeout is the silence after which typing counts as stopped.
	IdleTimeout = time.Second

	retentionHorizon = 60 * time.Second
	windowSize       = 8
	minElapsed       = 400 * time.Millisecond
	charsPerWord     = 5.0
	maxWPM           = 200.0
	smoothPrev       = 0.6
	smoothRaw        = 0.4
)

// Estimator converts keystroke timestamps into a smoothed WPM plus an
// explicit active flag. Key events may arrive from any goroutine; Tick
// and ComputeWPM are expected from the monitor loop.
type Estimator struct {
	mu sync.Mutex

	idle       time.Duration
	events     []time.Time
	lastKey    time.Time
	active     bool
	prevWPM    float64
	hasPrev    bool
	sessStart  time.Time
	sessKeys   int
	sessPeak   float64
	sessWPMSum float64
	sessWPMN   int
}

// NewEstimator returns an estimator with no recorded session.
func NewEstimator() *Estimator {
	return &Estimator{idle: IdleTimeout}
}

// SetIdleTimeout overrides the default idle timeout. Non-positive
// values are ignored.
func (e *Estimator) SetIdleTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	e.mu.Lock()
	e.idle = d
	e.mu.Unlock()
}

// RecordKeystroke appends a typing-key event. Non-typing keys are dropped.
func (e *Estimator) RecordKeystroke(now time.Time, key string) {
	if !IsTypingKey(key) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		e.active = true
		e.sessStart = now
		e.sessKeys = 0
		e.sessPeak = 0
		e.sessWPMSum = 0
		e.sessWPMN = 0
	}
	e.events = append(e.events, now)
	e.lastKey = now
	e.sessKeys++
	e.purge(now)
}

// purge drops events past the retention horizon. Caller holds mu.
func (e *Estimator) purge(now time.Time) {
	cutoff := now.Add(-retentionHorizon)
	i := 0
	for i < len(e.events) && e.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		e.events = append(e.events[:0], e.events[i:]...)
	}
}

// ComputeWPM recalculates the smoothed WPM at the given instant.
func (e *Estimator) ComputeWPM(now time.Time) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.computeLocked(now)
}

func (e *Estimator) computeLocked(now time.Time) float64 {
	e.purge(now)
	if len(e.events) < 2 {
		return 0
	}
	recent := e.events
	if len(recent) > windowSize {
		recent = recent[len(recent)-windowSize:]
	}
	elapsed := recent[len(recent)-1].Sub(recent[0])
	if elapsed < minElapsed {
		return 0
	}
	minutes := elapsed.Minutes()
	raw := (float64(len(recent)) / charsPerWord) / minutes
	wpm := raw
	if e.hasPrev && e.prevWPM > 0 {
		wpm = smoothPrev*e.prevWPM + smoothRaw*raw
	}
	if wpm < 0 {
		wpm = 0
	}
	if wpm > maxWPM {
		wpm = maxWPM
	}
	wpm = math.Round(wpm*10) / 10
	e.prevWPM = wpm
	e.hasPrev = true
	e.sessWPMSum += wpm
	e.sessWPMN++
	if wpm > e.sessPeak {
		e.sessPeak = wpm
	}
	return wpm
}

// CheckIdle applies the idle timeout. On the active→idle edge it forces
// WPM to zero immediately and returns the edge sample and the finished
// session, so callers can react without waiting for the next tick.
func (e *Estimator) CheckIdle(now time.Time) (model.CadenceSample, *model.SessionRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || now.Sub(e.lastKey) <= e.idle {
		return model.CadenceSample{}, nil, false
	}
	e.active = false
	e.prevWPM = 0
	e.hasPrev = false
	e.events = e.events[:0]
	rec := &model.SessionRecord{
		StartedAt:  e.sessStart,
		EndedAt:    now,
		Keystrokes: e.sessKeys,
		PeakWPM:    e.sessPeak,
	}
	if e.sessWPMN > 0 {
		rec.AvgWPM = math.Round(e.sessWPMSum/float64(e.sessWPMN)*10) / 10
	}
	return model.CadenceSample{WPM: 0, Active: false, IdleEdge: true}, rec, true
}

// Tick is the fixed-interval evaluation: idle check first, then a fresh
// WPM computation while active.
func (e *Estimator) Tick(now time.Time) (model.CadenceSample, *model.SessionRecord) {
	if sample, rec, idled := e.CheckIdle(now); idled {
		return sample, rec
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return model.CadenceSample{WPM: 0, Active: false}, nil
	}
	return model.CadenceSample{WPM: e.computeLocked(now), Active: true}, nil
}

// Active reports whether a typing session is in progress.
func (e *Estimator) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}
