package protocol

// Speed mapping constants. The paw cycle runs faster (smaller period)
// the faster the user types.
const (
	MaxWPM     = 200
	MinSpeedMS = 30  // fastest cycle
	MaxSpeedMS = 500 // slowest cycle

	// Intensity thresholds operate on the speed value, which is already
	// inverse to WPM.
	slowSpeedCeiling   = 80
	normalSpeedCeiling = 150

	// StreakThresholdWPM is the sustained typing speed that raises the
	// happy-face overlay.
	StreakThresholdWPM = 65.0
)

// Intensity is the device-side typing intensity selected by a speed value.
type Intensity int

// Intensities, from stopped to fastest.
const (
	IntensityIdle Intensity = iota
	IntensitySlow
	IntensityNormal
	IntensityFast
)

// String returns the intensity name for logs.
func (i Intensity) String() string {
	switch i {
	case IntensityIdle:
		return "idle"
	case IntensitySlow:
		return "slow"
	case IntensityNormal:
		return "normal"
	case IntensityFast:
		return "fast"
	default:
		return "unknown"
	}
}

// SpeedForWPM maps a WPM value onto the paw-cycle period in
// milliseconds. Not typing maps to the slowest period; callers send an
// explicit STOP for that case rather than SPEED:500.
func SpeedForWPM(wpm float64) int {
	if wpm <= 0 {
		return MaxSpeedMS
	}
	if wpm > MaxWPM {
		wpm = MaxWPM
	}
	speed := MaxSpeedMS - (wpm/MaxWPM)*(MaxSpeedMS-MinSpeedMS)
	if speed < MinSpeedMS {
		return MinSpeedMS
	}
	if speed > MaxSpeedMS {
		return MaxSpeedMS
	}
	return int(speed)
}

// IntensityForSpeed selects the typing intensity for a speed value:
// 0 is an explicit stop, <80 slow, <150 normal, else fast. The bands
// are defined on the speed value, not on WPM.
func IntensityForSpeed(ms int) Intensity {
	switch {
	case ms == 0:
		return IntensityIdle
	case ms < slowSpeedCeiling:
		return IntensitySlow
	case ms < normalSpeedCeiling:
		return IntensityNormal
	default:
		return IntensityFast
	}
}

// StreakEdge is a transition of the streak overlay.
type StreakEdge int

// Edges reported by the tracker.
const (
	StreakNone StreakEdge = iota
	StreakRise
	StreakFall
)

// StreakTracker reports threshold crossings of the smoothed WPM signal.
// Edges fire exactly once per crossing; steady state reports nothing.
type StreakTracker struct {
	active bool
}

// Update feeds one smoothed WPM sample and returns the edge, if any.
func (t *StreakTracker) Update(wpm float64) StreakEdge {
	above := wpm >= StreakThresholdWPM
	if above == t.active {
		return StreakNone
	}
	t.active = above
	if above {
		return StreakRise
	}
	return StreakFall
}

// Active reports whether the overlay is currently raised.
func (t *StreakTracker) Active() bool { return t.active }
