package goSession

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// auditStream hands lifecycle events to a sink on a single goroutine so a
// slow sink never sits on the request path. With DropIfFull a full queue
// drops the event; otherwise Emit waits for room or for the caller's context.
type auditStream struct {
	sink       AuditSink
	logger     *zap.Logger
	dropIfFull bool

	queue   chan AuditEvent
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
	closing atomic.Bool
	dropped atomic.Uint64

	// owned by run
	seq uint64
}

func newAuditStream(cfg AuditConfig, sink AuditSink, logger *zap.Logger) *auditStream {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &auditStream{
		sink:       sink,
		logger:     logger,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, size),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *auditStream) run() {
	defer close(s.stopped)
	for {
		select {
		case event := <-s.queue:
			s.deliver(event)
		case <-s.quit:
			for n := len(s.queue); n > 0; n-- {
				s.deliver(<-s.queue)
			}
			return
		}
	}
}

// deliver numbers the event and passes it to the sink. A panicking sink
// loses that event only.
func (s *auditStream) deliver(event AuditEvent) {
	s.seq++
	event.Seq = s.seq
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("audit sink panicked",
				zap.Uint64("seq", event.Seq),
				zap.String("event_type", event.EventType),
				zap.Any("panic", r),
			)
		}
	}()
	s.sink.Emit(context.Background(), event)
}

func (s *auditStream) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.closing.Load() {
		return
	}
	if s.dropIfFull {
		select {
		case s.queue <- event:
		default:
			s.drop(event, "queue full")
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case s.queue <- event:
	case <-ctx.Done():
		s.drop(event, "caller context done")
	case <-s.quit:
	}
}

func (s *auditStream) drop(event AuditEvent, reason string) {
	level := zap.DebugLevel
	if s.dropped.Add(1) == 1 {
		level = zap.WarnLevel
	}
	s.logger.Log(level, "audit event dropped",
		zap.String("event_type", event.EventType),
		zap.String("reason", reason),
	)
}

// Close stops accepting events, delivers whatever is already queued and
// waits for the stream goroutine. It may be called more than once.
func (s *auditStream) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.closing.Store(true)
		close(s.quit)
	})
	<-s.stopped
}

func (s *auditStream) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}
