package goSession

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// AuditEvent is one entry in the client's session lifecycle stream: sign-in,
// refresh, replay, forced sign-out. Seq numbers delivered events from 1 in
// delivery order; dropped events never receive one.
type AuditEvent struct {
	Seq       uint64            `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	RequestID string            `json:"request_id,omitempty"`
	Method    string            `json:"method,omitempty"`
	Path      string            `json:"path,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink consumes the lifecycle stream. Emit is always called from the
// stream goroutine, one event at a time.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// AuditSinkFunc adapts a plain function to AuditSink.
type AuditSinkFunc func(ctx context.Context, event AuditEvent)

func (f AuditSinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink republishes the stream on a buffered channel. A reader that
// falls behind loses events instead of stalling the stream; Missed counts
// them.
type ChannelSink struct {
	events chan AuditEvent
	missed atomic.Uint64
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

func (s *ChannelSink) Emit(_ context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	default:
		s.missed.Add(1)
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent { return s.events }

// Missed reports events discarded because the channel was full.
func (s *ChannelSink) Missed() uint64 { return s.missed.Load() }

// JSONWriterSink writes the stream to w as JSON lines. After the first
// write error it stops writing and reports the error from Err.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	s := &JSONWriterSink{}
	if w != nil {
		s.enc = json.NewEncoder(w)
		s.enc.SetEscapeHTML(false)
	}
	return s
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil || s.err != nil {
		return
	}
	s.err = s.enc.Encode(event)
}

func (s *JSONWriterSink) Err() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
