// Package protocol implements the newline-delimited ASCII command set
// exchanged with the display controller.
package protocol

import (
	"fmt"
	"strconv"
	"time"
)

// Wire verbs. One verb per line, `\n`-terminated.
const (
	VerbPing         = "PING"           // PING -> PONG
	VerbPong         = "PONG"           // handshake reply
	VerbTime         = "TIME"           // TIME:<HH:MM>
	VerbCPU          = "CPU"            // CPU:<0-100>
	VerbRAM          = "RAM"            // RAM:<0-100>
	VerbWPM          = "WPM"            // WPM:<0-999>
	VerbStats        = "STATS"          // STATS:CPU:<n>,RAM:<n>,WPM:<n>
	VerbSpeed        = "SPEED"          // SPEED:<0-999> paw cycle ms
	VerbStop         = "STOP"           // explicit stop, idle stage 1
	VerbIdle         = "IDLE"           // legacy alias for STOP
	VerbIdleStart    = "IDLE_START"     // enable staged idle progression
	VerbHeartbeat    = "HEARTBEAT"      // keepalive, no state change
	VerbStreakOn     = "STREAK_ON"      // happy-face overlay on
	VerbStreakOff    = "STREAK_OFF"     // happy-face overlay off
	VerbAnim         = "ANIM"           // ANIM:<IDLE_1..4|BLINK|EAR_TWITCH>
	VerbDisplayCPU   = "DISPLAY_CPU"    // DISPLAY_CPU:ON|OFF
	VerbDisplayRAM   = "DISPLAY_RAM"    // DISPLAY_RAM:ON|OFF
	VerbDisplayWPM   = "DISPLAY_WPM"    // DISPLAY_WPM:ON|OFF
	VerbDisplayTime  = "DISPLAY_TIME"   // DISPLAY_TIME:ON|OFF
	VerbTimeFormat   = "TIME_FORMAT"    // TIME_FORMAT:12|24
	VerbSleepTimeout = "SLEEP_TIMEOUT"  // SLEEP_TIMEOUT:<1-60> minutes
	VerbSensitivity  = "SENSITIVITY"    // SENSITIVITY:<0.1-5.0>
	VerbSaveSettings = "SAVE_SETTINGS"  // persist settings
	VerbLoadSettings = "LOAD_SETTINGS"  // reload settings from storage
	VerbResetSettings = "RESET_SETTINGS" // factory defaults + save
)

// Communication settings.
const (
	// Terminator ends every command on the wire.
	Terminator = "\n"

	// MinCommandSpacing is the minimum gap between outbound commands so
	// the controller's input buffer is never flooded.
	MinCommandSpacing = 50 * time.Millisecond
)

// DisplayField names a toggleable display element.
type DisplayField string

// Display fields accepted by DISPLAY_<FIELD>:ON|OFF.
const (
	FieldCPU  DisplayField = "CPU"
	FieldRAM  DisplayField = "RAM"
	FieldWPM  DisplayField = "WPM"
	FieldTime DisplayField = "TIME"
)

// AnimName names a directly addressable animation state.
type AnimName string

// ANIM arguments.
const (
	AnimIdle1     AnimName = "IDLE_1"
	AnimIdle2     AnimName = "IDLE_2"
	AnimIdle3     AnimName = "IDLE_3"
	AnimIdle4     AnimName = "IDLE_4"
	AnimBlink     AnimName = "BLINK"
	AnimEarTwitch AnimName = "EAR_TWITCH"
)

// Command is one parsed or to-be-sent protocol line. Encode returns the
// ASCII line without the terminator.
type Command interface {
	Encode() string
}

// Ping requests a PONG.
type Ping struct{}

// Pong is the reply to Ping.
type Pong struct{}

// Stop halts typing animation and parks at idle stage 1 with staged
// progression disabled.
type Stop struct{}

// IdleStart re-enables staged idle progression from stage 1.
type IdleStart struct{}

// Heartbeat refreshes the device's host-control timeout without
// touching animation state.
type Heartbeat struct{}

// StreakOn raises the happy-face overlay.
type StreakOn struct{}

// StreakOff lowers the happy-face overlay.
type StreakOff struct{}

// SaveSettings persists the device settings record.
type SaveSettings struct{}

// LoadSettings reloads the device settings record from storage.
type LoadSettings struct{}

// ResetSettings restores factory defaults and persists them.
type ResetSettings struct{}

// Speed sets the paw-cycle period in milliseconds; 0 behaves as Stop.
type Speed struct{ MS int }

// Stats carries the combined telemetry update.
type Stats struct{ CPU, RAM, WPM int }

// Time sets the displayed clock.
type Time struct{ Hour, Minute int }

// CPUUpdate sets the CPU readout alone.
type CPUUpdate struct{ Percent int }

// RAMUpdate sets the RAM readout alone.
type RAMUpdate struct{ Percent int }

// WPMUpdate sets the WPM readout alone.
type WPMUpdate struct{ WPM int }

// Display toggles a display field.
type Display struct {
	Field DisplayField
	On    bool
}

// TimeFormat selects 12- or 24-hour clock rendering.
type TimeFormat struct{ TwentyFour bool }

// SleepTimeout sets the total idle-to-deep-sleep time in minutes.
type SleepTimeout struct{ Minutes int }

// Sensitivity sets the animation sensitivity multiplier.
type Sensitivity struct{ Factor float64 }

// Anim forces a named animation state (test hook).
type Anim struct{ Name AnimName }

// Encode implementations.

func (Ping) Encode() string          { return VerbPing }
func (Pong) Encode() string          { return VerbPong }
func (Stop) Encode() string          { return VerbStop }
func (IdleStart) Encode() string     { return VerbIdleStart }
func (Heartbeat) Encode() string     { return VerbHeartbeat }
func (StreakOn) Encode() string      { return VerbStreakOn }
func (StreakOff) Encode() string     { return VerbStreakOff }
func (SaveSettings) Encode() string  { return VerbSaveSettings }
func (LoadSettings) Encode() string  { return VerbLoadSettings }
func (ResetSettings) Encode() string { return VerbResetSettings }

func (c Speed) Encode() string { return VerbSpeed + ":" + strconv.Itoa(c.MS) }

func (c Stats) Encode() string {
	return fmt.Sprintf("%s:CPU:%d,RAM:%d,WPM:%d", VerbStats, c.CPU, c.RAM, c.WPM)
}

func (c Time) Encode() string {
	return fmt.Sprintf("%s:%02d:%02d", VerbTime, c.Hour, c.Minute)
}

func (c CPUUpdate) Encode() string { return VerbCPU + ":" + strconv.Itoa(c.Percent) }
func (c RAMUpdate) Encode() string { return VerbRAM + ":" + strconv.Itoa(c.Percent) }
func (c WPMUpdate) Encode() string { return VerbWPM + ":" + strconv.Itoa(c.WPM) }

func (c Display) Encode() string {
	state := "OFF"
	if c.On {
		state = "ON"
	}
	return "DISPLAY_" + string(c.Field) + ":" + state
}

func (c TimeFormat) Encode() string {
	if c.TwentyFour {
		return VerbTimeFormat + ":24"
	}
	return VerbTimeFormat + ":12"
}

func (c SleepTimeout) Encode() string {
	return VerbSleepTimeout + ":" + strconv.Itoa(c.Minutes)
}

func (c Sensitivity) Encode() string {
	return VerbSensitivity + ":" + strconv.FormatFloat(c.Factor, 'f', -1, 64)
}

func (c Anim) Encode() string { return VerbAnim + ":" + string(c.Name) }
