package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parse errors. Anything not matching a known shape is rejected here,
// at the boundary, so handlers only ever see well-formed commands.
var (
	ErrMalformed   = errors.New("malformed command line")
	ErrUnknownVerb = errors.New("unknown verb")
	ErrOutOfRange  = errors.New("argument out of range")
)

// ParseLine parses one wire line (without the terminator) into a typed
// command. A trailing \r from CRLF transports is tolerated.
func ParseLine(line string) (Command, error) {
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	if line == "" {
		return nil, fmt.Errorf("%w: empty line", ErrMalformed)
	}

	verb, arg, hasArg := strings.Cut(line, ":")
	if !hasArg {
		switch verb {
		case VerbPing:
			return Ping{}, nil
		case VerbPong:
			return Pong{}, nil
		case VerbStop, VerbIdle:
			return Stop{}, nil
		case VerbIdleStart:
			return IdleStart{}, nil
		case VerbHeartbeat:
			return Heartbeat{}, nil
		case VerbStreakOn:
			return StreakOn{}, nil
		case VerbStreakOff:
			return StreakOff{}, nil
		case VerbSaveSettings:
			return SaveSettings{}, nil
		case VerbLoadSettings:
			return LoadSettings{}, nil
		case VerbResetSettings:
			return ResetSettings{}, nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownVerb, verb)
		}
	}

	switch verb {
	case VerbSpeed:
		ms, err := parseIntRange(arg, 0, 999)
		if err != nil {
			return nil, err
		}
		return Speed{MS: ms}, nil
	case VerbCPU:
		n, err := parseIntRange(arg, 0, 100)
		if err != nil {
			return nil, err
		}
		return CPUUpdate{Percent: n}, nil
	case VerbRAM:
		n, err := parseIntRange(arg, 0, 100)
		if err != nil {
			return nil, err
		}
		return RAMUpdate{Percent: n}, nil
	case VerbWPM:
		n, err := parseIntRange(arg, 0, 999)
		if err != nil {
			return nil, err
		}
		return WPMUpdate{WPM: n}, nil
	case VerbStats:
		return parseStats(arg)
	case VerbTime:
		return parseTime(arg)
	case VerbAnim:
		switch AnimName(arg) {
		case AnimIdle1, AnimIdle2, AnimIdle3, AnimIdle4, AnimBlink, AnimEarTwitch:
			return Anim{Name: AnimName(arg)}, nil
		}
		return nil, fmt.Errorf("%w: ANIM:%q", ErrMalformed, arg)
	case VerbDisplayCPU, VerbDisplayRAM, VerbDisplayWPM, VerbDisplayTime:
		on, err := parseOnOff(arg)
		if err != nil {
			return nil, err
		}
		field := DisplayField(strings.TrimPrefix(verb, "DISPLAY_"))
		return Display{Field: field, On: on}, nil
	case VerbTimeFormat:
		switch arg {
		case "24":
			return TimeFormat{TwentyFour: true}, nil
		case "12":
			return TimeFormat{TwentyFour: false}, nil
		}
		return nil, fmt.Errorf("%w: TIME_FORMAT:%q", ErrMalformed, arg)
	case VerbSleepTimeout:
		minutes, err := parseIntRange(arg, 1, 60)
		if err != nil {
			return nil, err
		}
		return SleepTimeout{Minutes: minutes}, nil
	case VerbSensitivity:
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: SENSITIVITY:%q", ErrMalformed, arg)
		}
		if f < 0.1 || f > 5.0 {
			return nil, fmt.Errorf("%w: sensitivity %v not in [0.1, 5.0]", ErrOutOfRange, f)
		}
		return Sensitivity{Factor: f}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVerb, verb)
	}
}

// parseStats parses "CPU:<n>,RAM:<n>,WPM:<n>".
func parseStats(arg string) (Command, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: STATS:%q", ErrMalformed, arg)
	}
	var out Stats
	for i, want := range []string{"CPU", "RAM", "WPM"} {
		key, val, ok := strings.Cut(parts[i], ":")
		if !ok || key != want {
			return nil, fmt.Errorf("%w: STATS:%q", ErrMalformed, arg)
		}
		limit := 100
		if want == "WPM" {
			limit = 999
		}
		n, err := parseIntRange(val, 0, limit)
		if err != nil {
			return nil, err
		}
		switch want {
		case "CPU":
			out.CPU = n
		case "RAM":
			out.RAM = n
		case "WPM":
			out.WPM = n
		}
	}
	return out, nil
}

// parseTime parses "HH:MM" with both fields zero-padded to two digits.
func parseTime(arg string) (Command, error) {
	if len(arg) != 5 || arg[2] != ':' {
		return nil, fmt.Errorf("%w: TIME:%q", ErrMalformed, arg)
	}
	hour, err := parseIntRange(arg[:2], 0, 23)
	if err != nil {
		return nil, err
	}
	minute, err := parseIntRange(arg[3:], 0, 59)
	if err != nil {
		return nil, err
	}
	return Time{Hour: hour, Minute: minute}, nil
}

func parseOnOff(arg string) (bool, error) {
	switch arg {
	case "ON":
		return true, nil
	case "OFF":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not ON|OFF", ErrMalformed, arg)
}

func parseIntRange(s string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrMalformed, s)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, n, lo, hi)
	}
	return n, nil
}
