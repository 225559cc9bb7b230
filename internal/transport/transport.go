// Package transport provides the byte-stream links the protocol runs
// over: the real serial port plus in-memory and stdio stand-ins.
package transport

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Transport is a single exclusive byte-stream channel. Close unblocks
// pending reads.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a transport to a named endpoint.
type Dialer interface {
	Dial(endpoint string) (Transport, error)
}

// DefaultBaudRate is the controller's fixed line rate (8N1).
const DefaultBaudRate = 115200

// SerialDialer opens serial ports at a fixed mode.
type SerialDialer struct {
	BaudRate int
}

// Dial opens the named port at the configured line rate, 8 data bits,
// no parity, 1 stop bit.
func (d SerialDialer) Dial(endpoint string) (Transport, error) {
	baud := d.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(endpoint, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", endpoint, err)
	}
	return port, nil
}
