// Package cadence turns raw keystroke timing into a smoothed WPM signal.
package cadence

import "strings"

// Keys that never count toward typing speed: modifiers, function keys,
// navigation, and lock keys. Key names are matched lowercased.
var nonTypingKeys = map[string]struct{}{
	"shift": {}, "shift_l": {}, "shift_r": {},
	"ctrl": {}, "ctrl_l": {}, "ctrl_r": {},
	"alt": {}, "alt_l": {}, "alt_r": {}, "alt_gr": {},
	"cmd": {}, "cmd_l": {}, "cmd_r": {},
	"meta": {}, "meta_l": {}, "meta_r": {},
	"super": {}, "win": {},
	"esc": {}, "escape": {},
	"up": {}, "down": {}, "left": {}, "right": {},
	"home": {}, "end": {}, "page_up": {}, "page_down": {},
	"pageup": {}, "pagedown": {},
	"insert": {}, "delete": {},
	"caps_lock": {}, "capslock": {},
	"num_lock": {}, "numlock": {},
	"scroll_lock": {},
	"print_screen": {}, "pause": {}, "menu": {},
}

// Substrings that mark pointer-device pseudo-keys. Pattern match rather
// than enumeration: hooks report these under many names.
var pointerKeyPatterns = []string{"mouse", "click", "scroll", "button", "wheel"}

// IsTypingKey reports whether a key event should feed the WPM estimate.
func IsTypingKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return false
	}
	if _, ok := nonTypingKeys[k]; !ok {
		// Function keys f1..f24.
		if len(k) >= 2 && len(k) <= 3 && k[0] == 'f' && isDigits(k[1:]) {
			return false
		}
	} else {
		return false
	}
	for _, pat := range pointerKeyPatterns {
		if strings.Contains(k, pat) {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
