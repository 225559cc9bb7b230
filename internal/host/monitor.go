// Package host runs the desktop side: it folds keystrokes into the
// cadence estimator and translates each tick into link directives.
package host

import (
	"context"
	"time"

	"go.uber.org/zap"

	"deskcat/internal/cadence"
	"deskcat/internal/link"
	"deskcat/internal/model"
	"deskcat/internal/protocol"
	"deskcat/internal/telemetry"
)

// Directive cadence.
const (
	// typingKeepalive re-sends SPEED while typing even when nothing
	// changed, so the device's typing timeout never fires mid-burst.
	typingKeepalive = time.Second

	// idleKeepalive paces HEARTBEAT while idle.
	idleKeepalive = 4 * time.Second

	// speedDeltaMS filters micro-adjustments out of the SPEED stream.
	speedDeltaMS = 25

	// idleStartDelay is the pause between STOP and IDLE_START, giving a
	// brief typing resume a chance before staged sleep begins.
	idleStartDelay = 1500 * time.Millisecond

	statsInterval = 2 * time.Second
	timeInterval  = 30 * time.Second
)

// Sender enqueues commands on the link. The supervisor implements it.
type Sender interface {
	Send(cmd protocol.Command) *link.Future
}

// SessionStore persists finished typing sessions.
type SessionStore interface {
	SaveSession(rec model.SessionRecord) error
}

// Monitor owns the 80ms host loop. All timed logic lives in Tick with
// an explicit now, so tests drive it directly.
type Monitor struct {
	est     *cadence.Estimator
	sender  Sender
	sampler telemetry.Sampler
	store   SessionStore
	logger  *zap.Logger
	keys    <-chan model.Keystroke

	streak        protocol.StreakTracker
	lastSpeed     int
	lastIntensity protocol.Intensity
	lastCmdAt     time.Time

	idleEdgeAt    time.Time
	idleStartSent bool

	lastStatsAt time.Time
	lastTimeAt  time.Time
	lastWPM     float64

	// Observer, when set, receives every tick's cadence sample. It is
	// called on the monitor goroutine and must not block.
	Observer func(model.CadenceSample)
}

// NewMonitor wires a monitor. store may be nil to skip session history.
func NewMonitor(keys <-chan model.Keystroke, sender Sender, sampler telemetry.Sampler, store SessionStore, logger *zap.Logger) *Monitor {
	return &Monitor{
		est:       cadence.NewEstimator(),
		sender:    sender,
		sampler:   sampler,
		store:     store,
		logger:    logger,
		keys:      keys,
		lastSpeed: -1,
	}
}

// SetIdleTimeout overrides how long silence lasts before typing counts
// as stopped.
func (m *Monitor) SetIdleTimeout(d time.Duration) {
	m.est.SetIdleTimeout(d)
}

// Run services keystrokes and the fixed-interval tick until the context
// is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(cadence.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case k, ok := <-m.keys:
			if !ok {
				return nil
			}
			m.est.RecordKeystroke(k.At, k.Key)
		case now := <-ticker.C:
			m.Tick(now)
		}
	}
}

// Tick evaluates one 80ms step: cadence, animation directives, stats
// and clock sync.
func (m *Monitor) Tick(now time.Time) {
	sample, rec := m.est.Tick(now)
	if m.Observer != nil {
		m.Observer(sample)
	}

	switch {
	case sample.IdleEdge:
		m.onIdleEdge(rec, now)
	case sample.Active:
		m.onActive(sample.WPM, now)
	default:
		m.onIdle(now)
	}
	m.lastWPM = sample.WPM

	if m.lastStatsAt.IsZero() || now.Sub(m.lastStatsAt) >= statsInterval {
		m.sendStats(now)
		m.lastStatsAt = now
	}
	if m.lastTimeAt.IsZero() || now.Sub(m.lastTimeAt) >= timeInterval {
		m.sender.Send(protocol.Time{Hour: now.Hour(), Minute: now.Minute()})
		m.lastTimeAt = now
	}
}

// onIdleEdge fires exactly once per session end: stop the animation,
// drop the streak overlay, persist the session.
func (m *Monitor) onIdleEdge(rec *model.SessionRecord, now time.Time) {
	m.sender.Send(protocol.Stop{})
	if m.streak.Active() {
		m.streak.Update(0)
		m.sender.Send(protocol.StreakOff{})
	}
	m.lastSpeed = -1
	m.lastIntensity = protocol.IntensityIdle
	m.lastCmdAt = now
	m.idleEdgeAt = now
	m.idleStartSent = false

	if rec != nil {
		m.logger.Info("typing session ended",
			zap.Int("keystrokes", rec.Keystrokes),
			zap.Float64("peak_wpm", rec.PeakWPM),
			zap.Float64("avg_wpm", rec.AvgWPM))
		if m.store != nil {
			if err := m.store.SaveSession(*rec); err != nil {
				m.logger.Warn("failed to save session", zap.Error(err))
			}
		}
	}
}

// onActive sends SPEED when it meaningfully changed, plus streak edges
// and the 1s typing keepalive.
func (m *Monitor) onActive(wpm float64, now time.Time) {
	speed := protocol.SpeedForWPM(wpm)
	intensity := protocol.IntensityForSpeed(speed)
	edge := m.streak.Update(wpm)

	speedChanged := m.lastSpeed < 0 || abs(speed-m.lastSpeed) > speedDeltaMS
	intensityChanged := intensity != m.lastIntensity
	keepalive := now.Sub(m.lastCmdAt) > typingKeepalive

	if speedChanged || intensityChanged || edge != protocol.StreakNone || keepalive {
		m.sender.Send(protocol.Speed{MS: speed})
		m.lastSpeed = speed
		m.lastIntensity = intensity
		m.lastCmdAt = now
	}
	switch edge {
	case protocol.StreakRise:
		m.sender.Send(protocol.StreakOn{})
	case protocol.StreakFall:
		m.sender.Send(protocol.StreakOff{})
	}
}

// onIdle sends IDLE_START once after the delay, then paces heartbeats.
func (m *Monitor) onIdle(now time.Time) {
	if !m.idleStartSent && !m.idleEdgeAt.IsZero() && now.Sub(m.idleEdgeAt) > idleStartDelay {
		m.sender.Send(protocol.IdleStart{})
		m.idleStartSent = true
		m.lastCmdAt = now
		return
	}
	if now.Sub(m.lastCmdAt) > idleKeepalive {
		m.sender.Send(protocol.Heartbeat{})
		m.lastCmdAt = now
	}
}

func (m *Monitor) sendStats(now time.Time) {
	t, err := m.sampler.Sample()
	if err != nil {
		m.logger.Warn("telemetry sample failed", zap.Error(err))
		return
	}
	m.sender.Send(protocol.Stats{CPU: t.CPUPercent, RAM: t.MemPercent, WPM: int(m.lastWPM)})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
