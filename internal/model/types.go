// Package model defines shared data structures.
package model

import "time"

// Keystroke is a single key-down event from the key source.
type Keystroke struct {
	At  time.Time
	Key string
}

// CadenceSample is the estimator's per-tick output. WPM and Active are
// both first-class so consumers never infer activity from a zero WPM.
type CadenceSample struct {
	WPM      float64
	Active   bool
	IdleEdge bool // true only on the tick where active flipped off
}

// Telemetry carries host system stats from the sampler.
type Telemetry struct {
	CPUPercent int
	MemPercent int
}

// SessionRecord summarizes one typing session for the history store.
type SessionRecord struct {
	StartedAt  time.Time
	EndedAt    time.Time
	Keystrokes int
	PeakWPM    float64
	AvgWPM     float64
}

// LinkState names the connection supervisor's externally visible state.
type LinkState int

// Supervisor states.
const (
	LinkDisconnected LinkState = iota
	LinkOpening
	LinkHandshaking
	LinkConnected
	LinkError
)

// String returns the state name for logs.
func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "disconnected"
	case LinkOpening:
		return "opening"
	case LinkHandshaking:
		return "handshaking"
	case LinkConnected:
		return "connected"
	case LinkError:
		return "error"
	default:
		return "unknown"
	}
}
