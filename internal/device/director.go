package device

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"deskcat/internal/protocol"
)

// State is the director's base animation state.
type State int

// Animation states. The idle stages progress toward deep sleep; the
// typing states map to command intensity. Streak is an overlay flag,
// not a state.
const (
	IdleStage1 State = iota
	IdleStage2
	IdleStage3
	IdleStage4
	TypingSlow
	TypingNormal
	TypingFast
)

// String names the state for logs.
func (s State) String() string {
	switch s {
	case IdleStage1:
		return "idle-1"
	case IdleStage2:
		return "idle-2"
	case IdleStage3:
		return "idle-3"
	case IdleStage4:
		return "idle-4"
	case TypingSlow:
		return "typing-slow"
	case TypingNormal:
		return "typing-normal"
	case TypingFast:
		return "typing-fast"
	default:
		return "unknown"
	}
}

// Director timing constants.
const (
	// TypingTimeout stops the paw cycle when typing directives cease
	// without an explicit STOP, a safety against a wedged host.
	TypingTimeout = 2 * time.Second

	// HostTimeout re-enables idle auto-progression when the host goes
	// silent entirely.
	HostTimeout = 5 * time.Second

	blinkDuration  = 200 * time.Millisecond
	twitchDuration = 500 * time.Millisecond
	sleepyInterval = time.Second

	// pawTimerResetDelta is the speed jump that restarts frame timing
	// to avoid a paw stuck mid-stroke across a large tempo change.
	pawTimerResetDelta = 50
)

// DisplayModel is the textual overlay state fed to the compositor.
type DisplayModel struct {
	CPU    int
	RAM    int
	WPM    int
	Hour   int
	Minute int
}

// Director is the device-side animation state machine. It is single
// owner state: only the device loop calls it, so it carries no lock.
// All timed behavior takes an explicit now so tests drive a synthetic
// clock.
type Director struct {
	logger *zap.Logger
	store  *SettingsStore
	rng    *rand.Rand

	settings Settings
	display  DisplayModel

	state      State
	stateStart time.Time
	layers     LayerSet

	pawActive  bool
	pawFrame   int
	pawTimer   time.Time
	speedMS    int
	lastTyping time.Time

	streak bool

	autoProgress   bool
	hostControlled bool
	lastCommand    time.Time

	blinking   bool
	blinkStart time.Time
	nextBlink  time.Time

	twitching   bool
	twitchStart time.Time
	nextTwitch  time.Time

	sleepyFrame int
	sleepyTimer time.Time

	timeSynced bool
}

// NewDirector builds a director in idle stage 1 with settings loaded
// from the store.
func NewDirector(store *SettingsStore, logger *zap.Logger, now time.Time) *Director {
	d := &Director{
		logger:       logger,
		store:        store,
		rng:          rand.New(rand.NewSource(now.UnixNano())),
		settings:     store.Load(),
		speedMS:      protocol.MaxSpeedMS,
		autoProgress: true,
	}
	d.nextBlink = now.Add(d.randDur(3*time.Second, 8*time.Second))
	d.nextTwitch = now.Add(d.randDur(10*time.Second, 30*time.Second))
	d.setState(IdleStage1, now)
	return d
}

// Layers returns the current frame composition.
func (d *Director) Layers() LayerSet { return d.layers }

// StateNow returns the current base state.
func (d *Director) StateNow() State { return d.state }

// Settings returns the active settings.
func (d *Director) Settings() Settings { return d.settings }

// Display returns the textual overlay model.
func (d *Director) Display() DisplayModel { return d.display }

// SyncLocalClock drives the displayed time from the local clock until
// the first host TIME sync arrives. After that the host owns the clock.
func (d *Director) SyncLocalClock(now time.Time) {
	if d.timeSynced {
		return
	}
	d.display.Hour, d.display.Minute = now.Hour(), now.Minute()
}

// Apply executes one parsed command. It returns the reply line to send
// back, or empty when the command has no reply.
func (d *Director) Apply(cmd protocol.Command, now time.Time) string {
	// Every inbound command proves the host is alive.
	d.lastCommand = now
	d.hostControlled = true

	switch c := cmd.(type) {
	case protocol.Ping:
		return protocol.Pong{}.Encode()

	case protocol.Speed:
		d.applySpeed(c.MS, now)

	case protocol.Stop:
		// Idle under host control: hold stage 1 until IDLE_START.
		d.setState(IdleStage1, now)
		d.autoProgress = false

	case protocol.IdleStart:
		d.setState(IdleStage1, now)
		d.autoProgress = true
		d.hostControlled = false

	case protocol.Heartbeat:
		// Timestamp refresh only, handled above.

	case protocol.StreakOn:
		d.streak = true
		d.refreshFace()

	case protocol.StreakOff:
		d.streak = false
		d.refreshFace()

	case protocol.Stats:
		d.display.CPU, d.display.RAM, d.display.WPM = c.CPU, c.RAM, c.WPM

	case protocol.CPUUpdate:
		d.display.CPU = c.Percent

	case protocol.RAMUpdate:
		d.display.RAM = c.Percent

	case protocol.WPMUpdate:
		d.display.WPM = c.WPM

	case protocol.Time:
		d.display.Hour, d.display.Minute = c.Hour, c.Minute
		d.timeSynced = true

	case protocol.Anim:
		d.applyAnim(c.Name, now)
		return protocol.Pong{}.Encode()

	case protocol.Display:
		d.applyDisplay(c)

	case protocol.TimeFormat:
		d.settings.TimeFormat24h = c.TwentyFour

	case protocol.SleepTimeout:
		if c.Minutes < MinSleepMinutes || c.Minutes > MaxSleepMinutes {
			d.logger.Warn("sleep timeout out of range", zap.Int("minutes", c.Minutes))
			break
		}
		d.settings.SleepMinutes = uint32(c.Minutes)

	case protocol.Sensitivity:
		if c.Factor < MinSensitivity || c.Factor > MaxSensitivity {
			d.logger.Warn("sensitivity out of range", zap.Float64("factor", c.Factor))
			break
		}
		d.settings.Sensitivity = float32(c.Factor)

	case protocol.SaveSettings:
		if err := d.store.Save(d.settings); err != nil {
			d.logger.Warn("failed to save settings", zap.Error(err))
		}

	case protocol.LoadSettings:
		d.settings = d.store.Load()

	case protocol.ResetSettings:
		d.settings = DefaultSettings()
		if err := d.store.Save(d.settings); err != nil {
			d.logger.Warn("failed to save settings", zap.Error(err))
		}
	}
	return ""
}

func (d *Director) applySpeed(ms int, now time.Time) {
	if ms == 0 {
		d.setState(IdleStage1, now)
		d.autoProgress = false
		return
	}

	var next State
	switch protocol.IntensityForSpeed(ms) {
	case protocol.IntensitySlow:
		next = TypingSlow
	case protocol.IntensityNormal:
		next = TypingNormal
	default:
		next = TypingFast
	}
	// Re-enter even when the state is unchanged: the frame reset keeps
	// a rapid speed ramp from freezing the paws mid-stroke.
	d.setState(next, now)

	old := d.speedMS
	d.speedMS = ms
	if d.pawActive && abs(ms-old) > pawTimerResetDelta {
		d.pawTimer = now
	}
	d.autoProgress = false
}

func (d *Director) applyAnim(name protocol.AnimName, now time.Time) {
	switch name {
	case protocol.AnimIdle1:
		d.setState(IdleStage1, now)
	case protocol.AnimIdle2:
		d.setState(IdleStage2, now)
	case protocol.AnimIdle3:
		d.setState(IdleStage3, now)
	case protocol.AnimIdle4:
		d.setState(IdleStage4, now)
	case protocol.AnimBlink:
		d.blinking = true
		d.blinkStart = now
		d.layers.Face = SpriteFaceBlink
	case protocol.AnimEarTwitch:
		d.twitching = true
		d.twitchStart = now
		d.layers.Body = SpriteBodyEarTwitch
	}
}

func (d *Director) applyDisplay(c protocol.Display) {
	switch c.Field {
	case protocol.FieldCPU:
		d.settings.ShowCPU = c.On
	case protocol.FieldRAM:
		d.settings.ShowRAM = c.On
	case protocol.FieldWPM:
		d.settings.ShowWPM = c.On
	case protocol.FieldTime:
		d.settings.ShowTime = c.On
	}
}

// Tick advances all timed behavior: safety timeouts, staged idle
// progression, the paw cycle, sleepy effects, blinks and ear twitches.
func (d *Director) Tick(now time.Time) {
	if d.pawActive && !d.lastTyping.IsZero() && now.Sub(d.lastTyping) > TypingTimeout {
		d.pawActive = false
		d.layers.Effects = SpriteNone
		d.logger.Debug("typing directives ceased, stopping paw cycle")
	}

	if d.hostControlled && now.Sub(d.lastCommand) > HostTimeout {
		d.hostControlled = false
		d.autoProgress = true
		d.logger.Warn("host silent, enabling idle auto-progression")
	}

	if d.autoProgress || !d.hostControlled {
		d.progressIdle(now)
	}

	d.tickPaws(now)
	d.tickSleepy(now)
	d.tickBlink(now)
	d.tickEarTwitch(now)
}

func (d *Director) progressIdle(now time.Time) {
	stage1, stage2, stage3 := SleepStageDurations(int(d.settings.SleepMinutes))
	elapsed := now.Sub(d.stateStart)
	switch d.state {
	case IdleStage1:
		if elapsed > stage1 {
			d.setState(IdleStage2, now)
		}
	case IdleStage2:
		if elapsed > stage2 {
			d.setState(IdleStage3, now)
		}
	case IdleStage3:
		if elapsed > stage3 {
			d.setState(IdleStage4, now)
		}
	}
}

func (d *Director) tickPaws(now time.Time) {
	if d.pawActive {
		if now.Sub(d.pawTimer) < time.Duration(d.speedMS)*time.Millisecond {
			return
		}
		d.pawFrame = (d.pawFrame + 1) % pawFrameCount
		d.layers.Paws = pawSprite(d.pawFrame)
		if pawDown(d.pawFrame) && (d.state == TypingFast || d.streak) {
			d.layers.Effects = clickEffect(d.pawFrame)
		} else {
			d.layers.Effects = SpriteNone
		}
		d.pawTimer = now
		return
	}

	// Resting paws follow the idle stage: visible in stage 1, tucked
	// under the table afterward.
	switch {
	case d.state == IdleStage1:
		d.layers.Paws = SpritePawsUp
	case d.state >= IdleStage2 && d.state <= IdleStage4:
		d.layers.Paws = SpriteNone
	}
	if d.state != IdleStage4 {
		d.layers.Effects = SpriteNone
	}
}

func (d *Director) tickSleepy(now time.Time) {
	if d.state != IdleStage4 {
		return
	}
	if now.Sub(d.sleepyTimer) > sleepyInterval {
		d.sleepyFrame = (d.sleepyFrame + 1) % 3
		d.layers.Effects = sleepySprite(d.sleepyFrame)
		d.sleepyTimer = now
	}
}

func (d *Director) tickBlink(now time.Time) {
	canBlink := d.state != IdleStage3 && d.state != IdleStage4
	switch {
	case !d.blinking && canBlink && !now.Before(d.nextBlink):
		d.blinking = true
		d.blinkStart = now
		d.layers.Face = SpriteFaceBlink
	case d.blinking && now.Sub(d.blinkStart) > blinkDuration:
		d.blinking = false
		d.layers.Face = d.restingFace()
		if canBlink {
			d.nextBlink = now.Add(d.randDur(3*time.Second, 8*time.Second))
		} else {
			d.nextBlink = now.Add(d.randDur(5*time.Second, 10*time.Second))
		}
	}
}

func (d *Director) tickEarTwitch(now time.Time) {
	switch {
	case !d.twitching && !now.Before(d.nextTwitch):
		d.twitching = true
		d.twitchStart = now
		d.layers.Body = SpriteBodyEarTwitch
	case d.twitching && now.Sub(d.twitchStart) > twitchDuration:
		d.twitching = false
		d.layers.Body = SpriteBodyStandard
		d.nextTwitch = now.Add(d.randDur(10*time.Second, 30*time.Second))
	}
}

// setState re-enters a state unconditionally: typing re-entry must
// reset the paw cycle even when the state name is unchanged.
func (d *Director) setState(next State, now time.Time) {
	if d.state != next {
		d.logger.Debug("animation state", zap.Stringer("from", d.state), zap.Stringer("to", next))
	}
	d.state = next
	d.stateStart = now
	d.layers = baseLayers()

	switch next {
	case IdleStage1:
		d.layers.Paws = SpritePawsUp
		d.layers.Effects = SpriteNone
		d.pawActive = false
	case IdleStage2, IdleStage3:
		d.layers.Paws = SpriteNone
		d.layers.Effects = SpriteNone
		d.pawActive = false
	case IdleStage4:
		d.layers.Paws = SpriteNone
		d.pawActive = false
		d.sleepyTimer = now
		d.sleepyFrame = 0
		d.layers.Effects = sleepySprite(0)
	case TypingSlow, TypingNormal, TypingFast:
		d.layers.Paws = SpritePawLeftDown
		d.layers.Effects = SpriteNone
		d.pawActive = true
		d.pawFrame = 0
		d.pawTimer = now
		d.lastTyping = now
	}
	d.layers.Face = d.restingFace()
}

// restingFace is the face layer for the current state and streak flag,
// used on entry and when a blink ends.
func (d *Director) restingFace() Sprite {
	switch {
	case d.state == IdleStage3 || d.state == IdleStage4:
		return SpriteFaceSleepy
	case d.streak && d.pawActive:
		return SpriteFaceHappy
	default:
		return SpriteFaceStock
	}
}

// refreshFace reapplies the resting face unless a blink is in flight.
func (d *Director) refreshFace() {
	if !d.blinking {
		d.layers.Face = d.restingFace()
	}
}

// SleepStageDurations splits the configured sleep timeout into the
// three staged idle durations. Stage 2 and 3 are fractions of the
// total, larger for short timeouts, each clamped to fixed bounds;
// stage 1 takes the remainder so the sum always equals the timeout.
func SleepStageDurations(minutes int) (stage1, stage2, stage3 time.Duration) {
	total := time.Duration(minutes) * time.Minute

	var frac2, frac3 float64
	switch {
	case minutes <= 3:
		frac2, frac3 = 0.25, 0.15
	case minutes <= 10:
		frac2, frac3 = 0.20, 0.10
	default:
		frac2, frac3 = 0.15, 0.05
	}

	stage2 = clampDur(time.Duration(float64(total)*frac2), 5*time.Second, 60*time.Second)
	stage3 = clampDur(time.Duration(float64(total)*frac3), 3*time.Second, 30*time.Second)
	stage1 = total - stage2 - stage3
	return stage1, stage2, stage3
}

func clampDur(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

func (d *Director) randDur(lo, hi time.Duration) time.Duration {
	return lo + time.Duration(d.rng.Int63n(int64(hi-lo)))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
