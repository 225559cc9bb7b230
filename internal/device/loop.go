package device

import (
	"bufio"
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"deskcat/internal/protocol"
	"deskcat/internal/transport"
)

// Loop pacing.
const (
	// maxLinesPerPass bounds the serial drain so a chatty host cannot
	// starve rendering.
	maxLinesPerPass = 16

	tickInterval   = 25 * time.Millisecond
	redrawInterval = 200 * time.Millisecond
	clockInterval  = time.Second
	passInterval   = 5 * time.Millisecond
)

// Compositor draws one composed frame. The terminal renderer implements
// it; tests use a recording fake.
type Compositor interface {
	Render(layers LayerSet, display DisplayModel, settings Settings) error
}

// Loop is the device main loop: drain serial, advance the director,
// redraw when the frame changed. All director and settings access
// happens on this goroutine.
type Loop struct {
	tr       transport.Transport
	director *Director
	comp     Compositor
	logger   *zap.Logger

	lines      chan string
	lastDrawn  LayerSet
	lastModel  DisplayModel
	hasDrawn   bool
	lastForced time.Time
}

// NewLoop wires a device loop over the given transport.
func NewLoop(tr transport.Transport, director *Director, comp Compositor, logger *zap.Logger) *Loop {
	return &Loop{
		tr:       tr,
		director: director,
		comp:     comp,
		logger:   logger,
		lines:    make(chan string, 64),
	}
}

// Run services the loop until the context is canceled or the transport
// closes.
func (l *Loop) Run(ctx context.Context) error {
	readerDone := make(chan error, 1)
	go func() { readerDone <- l.readLines() }()

	var sched Scheduler
	sched.Add("serial-drain", 0, l.drainSerial)
	sched.Add("director-tick", tickInterval, l.director.Tick)
	sched.Add("redraw", 0, l.redraw)
	sched.Add("clock", clockInterval, l.director.SyncLocalClock)

	ticker := time.NewTicker(passInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readerDone:
			if err != nil && err != io.EOF {
				return err
			}
			return nil
		case now := <-ticker.C:
			sched.Pass(now)
		}
	}
}

// readLines feeds inbound lines to the loop goroutine.
func (l *Loop) readLines() error {
	scanner := bufio.NewScanner(l.tr)
	for scanner.Scan() {
		select {
		case l.lines <- scanner.Text():
		default:
			l.logger.Warn("inbound line buffer full, dropping line")
		}
	}
	return scanner.Err()
}

// drainSerial parses and applies the lines currently buffered, bounded
// per pass. Malformed lines are dropped without touching state.
func (l *Loop) drainSerial(now time.Time) {
	for i := 0; i < maxLinesPerPass; i++ {
		select {
		case line := <-l.lines:
			cmd, err := protocol.ParseLine(line)
			if err != nil {
				l.logger.Debug("dropping bad line", zap.String("line", line), zap.Error(err))
				continue
			}
			if reply := l.director.Apply(cmd, now); reply != "" {
				if _, err := io.WriteString(l.tr, reply+protocol.Terminator); err != nil {
					l.logger.Warn("failed to write reply", zap.Error(err))
				}
			}
		default:
			return
		}
	}
}

// redraw renders only when the sprite set or overlay text changed, with
// a periodic forced refresh.
func (l *Loop) redraw(now time.Time) {
	layers := l.director.Layers()
	display := l.director.Display()
	if l.hasDrawn && layers == l.lastDrawn && display == l.lastModel && now.Sub(l.lastForced) < redrawInterval {
		return
	}
	if err := l.comp.Render(layers, display, l.director.Settings()); err != nil {
		l.logger.Warn("render failed", zap.Error(err))
		return
	}
	l.lastDrawn = layers
	l.lastModel = display
	l.hasDrawn = true
	l.lastForced = now
}
