package transport

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Identifier strings that mark a port as a likely display controller.
// Most boards show up under their USB-serial bridge chip's name.
var deviceIdentifiers = []string{
	"CP210", // Silicon Labs CP2102/CP2104
	"CH340", // WCH CH340
	"CH341", // WCH CH341
	"FT232", // FTDI
	"FTDI",
	"ESP32",
	"SILICON LABS",
	"QINHENG",
}

// USB vendor IDs for the same bridge chips, for ports that expose no
// product string.
var deviceVendorIDs = map[string]struct{}{
	"10C4": {}, // Silicon Labs
	"1A86": {}, // QinHeng (CH340/CH341)
	"0403": {}, // FTDI
}

// PortInfo describes one enumerated serial port.
type PortInfo struct {
	Name    string
	Product string
	VID     string
	PID     string
	Likely  bool // matches a known controller identifier
}

// ListPorts enumerates serial ports and flags likely device candidates.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		info := PortInfo{Name: d.Name, Product: d.Product, VID: d.VID, PID: d.PID}
		info.Likely = matchesIdentifier(d.Product) || matchesVendor(d.VID)
		out = append(out, info)
	}
	return out, nil
}

// DiscoverPort returns the single best candidate port, or an error when
// none or several qualify (the caller should then ask the user).
func DiscoverPort() (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	var candidates []string
	for _, p := range ports {
		if p.Likely {
			candidates = append(candidates, p.Name)
		}
	}
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("no device found among %d serial ports", len(ports))
	case 1:
		return candidates[0], nil
	default:
		// Deterministic pick: first enumerated candidate.
		return candidates[0], nil
	}
}

func matchesIdentifier(product string) bool {
	p := strings.ToUpper(product)
	for _, id := range deviceIdentifiers {
		if strings.Contains(p, id) {
			return true
		}
	}
	return false
}

func matchesVendor(vid string) bool {
	_, ok := deviceVendorIDs[strings.ToUpper(vid)]
	return ok
}
