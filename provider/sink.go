package provider

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sink wraps the Callbacks of one Stream call. It tolerates nil callbacks,
// guarantees a single terminal transition, and reports the outcome to the
// logger and observer.
type Sink struct {
	ID string

	cb       Callbacks
	family   Family
	logger   *slog.Logger
	observer Observer
	started  time.Time
	done     bool
}

// NewSink creates the sink for one Stream call. logger and observer may be nil.
func NewSink(cb Callbacks, family Family, logger *slog.Logger, observer Observer) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sink{
		ID:       uuid.NewString(),
		cb:       cb,
		family:   family,
		observer: observer,
		started:  time.Now(),
	}
	s.logger = logger.With("stream", s.ID, "family", family.String())
	return s
}

// Logger returns the stream-scoped logger.
func (s *Sink) Logger() *slog.Logger {
	return s.logger
}

// Done reports whether a terminal callback has fired.
func (s *Sink) Done() bool {
	return s.done
}

// Chunk forwards a text delta to OnChunk. Empty deltas are dropped.
func (s *Sink) Chunk(text string) {
	if s.done || text == "" || s.cb.OnChunk == nil {
		return
	}
	s.cb.OnChunk(text)
}

// Thinking forwards a reasoning delta to OnThinking.
func (s *Sink) Thinking(text string) {
	if s.done || text == "" || s.cb.OnThinking == nil {
		return
	}
	s.cb.OnThinking(text)
}

// ToolCall reports a completed tool call to the observer and OnToolCall.
func (s *Sink) ToolCall(call ToolCall) {
	if s.done {
		return
	}
	if s.observer != nil {
		s.observer.ObserveToolCall(s.family, call.Name)
	}
	if s.cb.OnToolCall != nil {
		s.cb.OnToolCall(call)
	}
}

// Complete finalizes the stream successfully. The stop reason is normalized
// so that a result carrying tool calls never reports end_turn.
func (s *Sink) Complete(result StreamResult) {
	if s.done {
		return
	}
	s.done = true

	if len(result.ToolCalls) > 0 && result.StopReason != StopCancelled {
		result.StopReason = StopToolUse
	}

	elapsed := time.Since(s.started)
	s.logger.Debug("stream complete",
		"stop_reason", string(result.StopReason),
		"tool_calls", len(result.ToolCalls),
		"text_len", len(result.Text),
		"elapsed", elapsed)
	if s.observer != nil {
		s.observer.ObserveStream(s.family, result.StopReason, nil, elapsed)
	}
	if s.cb.OnComplete != nil {
		s.cb.OnComplete(result)
	}
}

// Fail finalizes the stream with an error.
func (s *Sink) Fail(err error) {
	if s.done {
		return
	}
	s.done = true

	elapsed := time.Since(s.started)
	s.logger.Warn("stream failed", "error", err, "elapsed", elapsed)
	if s.observer != nil {
		s.observer.ObserveStream(s.family, "", err, elapsed)
	}
	if s.cb.OnError != nil {
		s.cb.OnError(err)
	}
}
