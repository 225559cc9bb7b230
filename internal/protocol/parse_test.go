package protocol

import (
	"errors"
	"testing"
)

func TestParseLineBareVerbs(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"PING", Ping{}},
		{"PONG", Pong{}},
		{"STOP", Stop{}},
		{"IDLE", Stop{}},
		{"IDLE_START", IdleStart{}},
		{"HEARTBEAT", Heartbeat{}},
		{"STREAK_ON", StreakOn{}},
		{"STREAK_OFF", StreakOff{}},
		{"SAVE_SETTINGS", SaveSettings{}},
		{"LOAD_SETTINGS", LoadSettings{}},
		{"RESET_SETTINGS", ResetSettings{}},
	}
	for _, tc := range cases {
		got, err := ParseLine(tc.line)
		if err != nil {
			t.Fatalf("ParseLine(%q) failed: %v", tc.line, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLine(%q) = %#v, want %#v", tc.line, got, tc.want)
		}
	}
}

func TestParseLineArguments(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"SPEED:120", Speed{MS: 120}},
		{"CPU:45", CPUUpdate{Percent: 45}},
		{"RAM:67", RAMUpdate{Percent: 67}},
		{"WPM:96", WPMUpdate{WPM: 96}},
		{"STATS:CPU:45,RAM:67,WPM:23", Stats{CPU: 45, RAM: 67, WPM: 23}},
		{"TIME:09:30", Time{Hour: 9, Minute: 30}},
		{"ANIM:IDLE_3", Anim{Name: AnimIdle3}},
		{"ANIM:EAR_TWITCH", Anim{Name: AnimEarTwitch}},
		{"DISPLAY_CPU:ON", Display{Field: FieldCPU, On: true}},
		{"DISPLAY_TIME:OFF", Display{Field: FieldTime, On: false}},
		{"TIME_FORMAT:12", TimeFormat{TwentyFour: false}},
		{"TIME_FORMAT:24", TimeFormat{TwentyFour: true}},
		{"SLEEP_TIMEOUT:5", SleepTimeout{Minutes: 5}},
		{"SENSITIVITY:1.5", Sensitivity{Factor: 1.5}},
	}
	for _, tc := range cases {
		got, err := ParseLine(tc.line)
		if err != nil {
			t.Fatalf("ParseLine(%q) failed: %v", tc.line, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLine(%q) = %#v, want %#v", tc.line, got, tc.want)
		}
	}
}

func TestParseLineToleratesCRLF(t *testing.T) {
	got, err := ParseLine("SPEED:80\r")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if got != (Speed{MS: 80}) {
		t.Fatalf("unexpected command: %#v", got)
	}
}

func TestParseLineRejectsUnknownVerbs(t *testing.T) {
	for _, line := range []string{"BOGUS", "BOGUS:1", "SPEEDY:10"} {
		_, err := ParseLine(line)
		if !errors.Is(err, ErrUnknownVerb) {
			t.Fatalf("ParseLine(%q): expected ErrUnknownVerb, got %v", line, err)
		}
	}
}

func TestParseLineRejectsMalformed(t *testing.T) {
	lines := []string{
		"",
		"SPEED:fast",
		"TIME:9:30",
		"TIME:0930",
		"STATS:CPU:45,RAM:67",
		"STATS:RAM:1,CPU:2,WPM:3",
		"DISPLAY_CPU:MAYBE",
		"TIME_FORMAT:militry",
		"ANIM:IDLE_9",
		"SENSITIVITY:hot",
	}
	for _, line := range lines {
		_, err := ParseLine(line)
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("ParseLine(%q): expected ErrMalformed, got %v", line, err)
		}
	}
}

func TestParseLineRejectsOutOfRange(t *testing.T) {
	lines := []string{
		"SPEED:1000",
		"CPU:101",
		"RAM:-1",
		"TIME:24:00",
		"TIME:12:60",
		"SLEEP_TIMEOUT:0",
		"SLEEP_TIMEOUT:61",
		"SENSITIVITY:0.05",
		"SENSITIVITY:5.1",
		"STATS:CPU:150,RAM:67,WPM:23",
	}
	for _, line := range lines {
		_, err := ParseLine(line)
		if !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("ParseLine(%q): expected ErrOutOfRange, got %v", line, err)
		}
	}
}

func TestEncodeParseAgreement(t *testing.T) {
	cmds := []Command{
		Ping{}, Stop{}, IdleStart{}, Heartbeat{}, StreakOn{}, StreakOff{},
		Speed{MS: 333},
		Stats{CPU: 10, RAM: 20, WPM: 30},
		Time{Hour: 7, Minute: 5},
		Display{Field: FieldWPM, On: true},
		TimeFormat{TwentyFour: true},
		SleepTimeout{Minutes: 60},
		Sensitivity{Factor: 0.1},
		Anim{Name: AnimBlink},
	}
	for _, cmd := range cmds {
		back, err := ParseLine(cmd.Encode())
		if err != nil {
			t.Fatalf("ParseLine(%q) failed: %v", cmd.Encode(), err)
		}
		if back != cmd {
			t.Fatalf("round trip of %q: got %#v, want %#v", cmd.Encode(), back, cmd)
		}
	}
}
