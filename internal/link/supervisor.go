package link

import (
	"bufio"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"deskcat/internal/model"
	"deskcat/internal/protocol"
	"deskcat/internal/transport"
)

// Supervisor timing defaults.
const (
	// DefaultSettleDelay covers boards that reboot when the port opens.
	DefaultSettleDelay = 2 * time.Second

	// DefaultPongTimeout bounds the optional handshake ping. A missing
	// PONG is logged, never fatal.
	DefaultPongTimeout = time.Second

	// DefaultReconnectDelay is the pause before a reconnect attempt.
	DefaultReconnectDelay = 3 * time.Second

	// DefaultMaxReconnects bounds attempts per disconnection episode.
	DefaultMaxReconnects = 3
)

// EventKind classifies supervisor events.
type EventKind int

// Event kinds.
const (
	EventConnected EventKind = iota
	EventDisconnected
	EventGaveUp
	EventLine
)

// Event is one supervisor notification.
type Event struct {
	Kind EventKind
	Line string // EventLine only
	Err  error  // EventDisconnected only
}

// Config parameterizes the supervisor. Zero durations take defaults.
type Config struct {
	Endpoint       string
	Dialer         transport.Dialer
	SettleDelay    time.Duration
	PongTimeout    time.Duration
	ReconnectDelay time.Duration
	MaxReconnects  int
	Clock          func() time.Time
}

// Supervisor owns the transport lifecycle: dial, handshake, steady
// traffic, failure detection and bounded reconnection. It is the only
// component that reads or writes the serial channel.
type Supervisor struct {
	cfg    Config
	logger *zap.Logger
	events chan Event

	mu       sync.Mutex
	state    model.LinkState
	tr       transport.Transport
	queue    *Queue
	attempts int
	closing  bool
	pongCh   chan struct{}
	retry    *time.Timer
}

// NewSupervisor builds a supervisor; Connect starts it.
func NewSupervisor(cfg Config, logger *zap.Logger) *Supervisor {
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.PongTimeout == 0 {
		cfg.PongTimeout = DefaultPongTimeout
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = DefaultMaxReconnects
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Supervisor{
		cfg:    cfg,
		logger: logger,
		events: make(chan Event, 32),
		state:  model.LinkDisconnected,
	}
}

// Events returns the notification channel.
func (s *Supervisor) Events() <-chan Event { return s.events }

// State returns the current connection state.
func (s *Supervisor) State() model.LinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect starts a fresh connection episode. The reconnect budget
// resets only here, never on a successful automatic reconnect.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.attempts = 0
	s.closing = false
	s.mu.Unlock()
	return s.connect(ctx)
}

func (s *Supervisor) connect(ctx context.Context) error {
	s.setState(model.LinkOpening)
	tr, err := s.cfg.Dialer.Dial(s.cfg.Endpoint)
	if err != nil {
		s.logger.Warn("open failed", zap.String("endpoint", s.cfg.Endpoint), zap.Error(err))
		s.onLost(ctx, err)
		return err
	}

	s.mu.Lock()
	s.tr = tr
	s.queue = NewQueue(tr)
	s.pongCh = make(chan struct{}, 1)
	s.mu.Unlock()
	go s.readLoop(ctx, tr)

	s.setState(model.LinkHandshaking)
	select {
	case <-time.After(s.cfg.SettleDelay):
	case <-ctx.Done():
		// Half-open link: release the transport and quiet the reader.
		_ = s.Close()
		return ctx.Err()
	}

	// Optional ping: some firmware revisions never answer. Only
	// transport-level errors fail the handshake.
	s.enqueue(protocol.Ping{})
	select {
	case <-s.pongChan():
		s.logger.Debug("device answered ping")
	case <-time.After(s.cfg.PongTimeout):
		s.logger.Debug("no pong from device, continuing")
	case <-ctx.Done():
		_ = s.Close()
		return ctx.Err()
	}

	// Initial sync burst: clock first, then zeroed stats. The queue's
	// spacing keeps the device's input buffer comfortable.
	now := s.cfg.Clock()
	s.enqueue(protocol.Time{Hour: now.Hour(), Minute: now.Minute()})
	s.enqueue(protocol.Stats{})

	s.setState(model.LinkConnected)
	s.emit(Event{Kind: EventConnected})
	s.logger.Info("link established", zap.String("endpoint", s.cfg.Endpoint))
	return nil
}

// Send enqueues a command for ordered transmission.
func (s *Supervisor) Send(cmd protocol.Command) *Future {
	s.mu.Lock()
	q := s.queue
	st := s.state
	s.mu.Unlock()
	if q == nil || (st != model.LinkConnected && st != model.LinkHandshaking) {
		return CompletedFuture(ErrNotConnected)
	}
	return q.Enqueue(cmd)
}

// enqueue is Send without the state gate, for the handshake itself.
func (s *Supervisor) enqueue(cmd protocol.Command) {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	if q != nil {
		q.Enqueue(cmd)
	}
}

func (s *Supervisor) pongChan() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pongCh
}

// Close tears the link down without reconnecting.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	s.closing = true
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	tr, q := s.tr, s.queue
	s.tr, s.queue = nil, nil
	s.mu.Unlock()

	if q != nil {
		q.Close()
	}
	var err error
	if tr != nil {
		err = tr.Close()
	}
	s.setState(model.LinkDisconnected)
	return err
}

func (s *Supervisor) readLoop(ctx context.Context, tr transport.Transport) {
	scanner := bufio.NewScanner(tr)
	for scanner.Scan() {
		line := scanner.Text()
		if cmd, err := protocol.ParseLine(line); err == nil {
			if _, ok := cmd.(protocol.Pong); ok {
				select {
				case s.pongChan() <- struct{}{}:
				default:
				}
			}
		}
		s.emit(Event{Kind: EventLine, Line: line})
	}
	err := scanner.Err()
	s.onLost(ctx, err)
}

// onLost handles a transport error or unexpected close: tear down, then
// schedule a bounded reconnect if the budget allows.
func (s *Supervisor) onLost(ctx context.Context, err error) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}
	tr, q := s.tr, s.queue
	s.tr, s.queue = nil, nil
	attempt := s.attempts + 1
	s.attempts = attempt
	retryable := attempt <= s.cfg.MaxReconnects && s.cfg.Endpoint != ""
	s.mu.Unlock()

	if q != nil {
		q.Close()
	}
	if tr != nil {
		_ = tr.Close()
	}
	s.setState(model.LinkError)
	s.emit(Event{Kind: EventDisconnected, Err: err})

	if !retryable {
		s.setState(model.LinkDisconnected)
		s.emit(Event{Kind: EventGaveUp})
		s.logger.Warn("reconnect budget exhausted; waiting for explicit connect")
		return
	}

	s.logger.Info("scheduling reconnect",
		zap.Int("attempt", attempt),
		zap.Int("max", s.cfg.MaxReconnects),
		zap.Duration("delay", s.cfg.ReconnectDelay))
	s.mu.Lock()
	s.retry = time.AfterFunc(s.cfg.ReconnectDelay, func() {
		if ctx.Err() != nil {
			return
		}
		_ = s.connect(ctx)
	})
	s.mu.Unlock()
}

func (s *Supervisor) setState(st model.LinkState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Supervisor) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		// Slow consumer: drop rather than block the reader.
	}
}
