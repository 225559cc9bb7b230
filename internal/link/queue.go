// Package link owns the serial channel: a rate-limited outbound queue
// and the connection supervisor that drives it.
package link

import (
	"errors"
	"io"
	"sync"
	"time"

	"deskcat/internal/protocol"
)

// Queue errors.
var (
	ErrQueueClosed  = errors.New("send queue closed")
	ErrNotConnected = errors.New("link not connected")
)

// Future resolves when a queued command's byte write completed or
// failed. A failed write rejects only its own future; nothing retries.
type Future struct {
	done chan struct{}
	err  error
}

// Done is closed once the write finished either way.
func (f *Future) Done() <-chan struct{} { return f.done }

// Err returns the write error, valid after Done is closed.
func (f *Future) Err() error { return f.err }

// Wait blocks until the write finished and returns its error.
func (f *Future) Wait() error {
	<-f.done
	return f.err
}

// CompletedFuture returns an already-resolved future carrying err.
func CompletedFuture(err error) *Future {
	f := &Future{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

type queued struct {
	line   string
	future *Future
}

// Queue serializes all writes to the transport through one drain
// goroutine, enforcing the protocol's minimum inter-command spacing.
// Callers enqueue and await; they never write directly, so the device
// sees commands in exactly queue order.
type Queue struct {
	w     io.Writer
	items chan queued

	mu     sync.Mutex
	closed bool

	drained chan struct{}
}

// NewQueue starts the drain loop over the given writer.
func NewQueue(w io.Writer) *Queue {
	q := &Queue{
		w:       w,
		items:   make(chan queued, 64),
		drained: make(chan struct{}),
	}
	go q.drain()
	return q
}

// Enqueue appends a command to the FIFO and returns its future.
func (q *Queue) Enqueue(cmd protocol.Command) *Future {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return CompletedFuture(ErrQueueClosed)
	}
	f := &Future{done: make(chan struct{})}
	q.items <- queued{line: cmd.Encode() + protocol.Terminator, future: f}
	return f
}

// Close stops the drain loop; everything still pending is rejected.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()
	<-q.drained
}

func (q *Queue) drain() {
	defer close(q.drained)
	var lastWrite time.Time
	for item := range q.items {
		if q.isClosed() {
			item.future.err = ErrQueueClosed
			close(item.future.done)
			continue
		}
		if wait := protocol.MinCommandSpacing - time.Since(lastWrite); wait > 0 && !lastWrite.IsZero() {
			time.Sleep(wait)
		}
		_, err := io.WriteString(q.w, item.line)
		lastWrite = time.Now()
		item.future.err = err
		close(item.future.done)
	}
}

func (q *Queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
