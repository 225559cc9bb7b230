package transport

import (
	"io"
	"os"
)

// pipeTransport joins one read end and one write end into a Transport.
type pipeTransport struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipeTransport) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeTransport) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *pipeTransport) Close() error {
	rerr := p.r.Close()
	werr := p.w.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

// NewLoopback returns two connected in-memory transports: writes on one
// end are reads on the other. Used by tests and the in-process demo.
func NewLoopback() (Transport, Transport) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	return &pipeTransport{r: ar, w: aw}, &pipeTransport{r: br, w: bw}
}

// stdio adapts the process's stdin/stdout into a Transport so the
// device loop can be driven from a pipe or another process.
type stdio struct{}

func (stdio) Read(b []byte) (int, error)  { return os.Stdin.Read(b) }
func (stdio) Write(b []byte) (int, error) { return os.Stdout.Write(b) }
func (stdio) Close() error                { return nil }

// Stdio returns the stdin/stdout transport.
func Stdio() Transport { return stdio{} }
