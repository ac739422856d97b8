package anthropic

import (
	"fmt"
	"strings"

	"github.com/i2y/llmstream/provider"
)

// openBlock is the content block between content_block_start and
// content_block_stop.
type openBlock struct {
	kind      string
	id        string
	name      string
	args      strings.Builder
	thinking  strings.Builder
	signature strings.Builder
	data      string
}

// streamState accumulates one Stream call. It is owned by that call and
// discarded once the sink reaches a terminal state.
type streamState struct {
	sink *provider.Sink

	text       strings.Builder
	toolCalls  []provider.ToolCall
	thinking   []provider.ContentBlock
	stopReason provider.StopReason
	usage      *provider.Usage

	current *openBlock
	stopped bool
}

func newStreamState(sink *provider.Sink) *streamState {
	return &streamState{sink: sink}
}

// handle applies one event. A non-nil error is fatal for the stream.
func (s *streamState) handle(event *streamEvent) error {
	switch event.Type {
	case "message_start":
		if event.Message != nil {
			s.addUsage(event.Message.Usage)
		}

	case "content_block_start":
		if event.ContentBlock != nil {
			s.startBlock(event.ContentBlock)
		}

	case "content_block_delta":
		if event.Delta != nil {
			s.applyDelta(event.Delta)
		}

	case "content_block_stop":
		s.stopBlock()

	case "message_delta":
		if event.Delta != nil && event.Delta.StopReason != "" {
			s.stopReason = provider.StopReason(event.Delta.StopReason)
		}
		if event.Usage != nil {
			s.addUsage(*event.Usage)
		}

	case "message_stop":
		s.stopped = true

	case "error":
		if event.Error == nil {
			return &APIError{Message: "unknown stream error"}
		}
		return &APIError{
			StatusCode: streamErrorStatus[event.Error.Type],
			Type:       event.Error.Type,
			Message:    event.Error.Message,
		}
	}

	return nil
}

func (s *streamState) startBlock(cb *contentBlock) {
	b := &openBlock{kind: cb.Type}
	switch cb.Type {
	case "tool_use":
		b.id = cb.ID
		b.name = cb.Name
	case "thinking":
		b.thinking.WriteString(cb.Thinking)
		b.signature.WriteString(cb.Signature)
	case "redacted_thinking":
		// Redacted payloads arrive whole.
		b.data = cb.Data
	case "text":
		if cb.Text != "" {
			s.text.WriteString(cb.Text)
			s.sink.Chunk(cb.Text)
		}
	}
	s.current = b
}

func (s *streamState) applyDelta(d *streamDelta) {
	switch d.Type {
	case "text_delta":
		s.text.WriteString(d.Text)
		s.sink.Chunk(d.Text)
	case "input_json_delta":
		// Fragments are not valid JSON on their own; parse on stop.
		if s.current != nil {
			s.current.args.WriteString(d.PartialJSON)
		}
	case "thinking_delta":
		if s.current != nil {
			s.current.thinking.WriteString(d.Thinking)
		}
		s.sink.Thinking(d.Thinking)
	case "signature_delta":
		if s.current != nil {
			s.current.signature.WriteString(d.Signature)
		}
	}
}

func (s *streamState) stopBlock() {
	b := s.current
	s.current = nil
	if b == nil {
		return
	}

	switch b.kind {
	case "tool_use":
		raw := b.args.String()
		input, ok := provider.ParseOrDefault(raw)
		if !ok {
			s.sink.Logger().Warn("invalid tool arguments, using empty input",
				"tool", b.name, "id", b.id, "raw_len", len(raw))
		}
		call := provider.ToolCall{ID: b.id, Name: b.name, Input: input}
		s.toolCalls = append(s.toolCalls, call)
		s.sink.ToolCall(call)
	case "thinking":
		s.thinking = append(s.thinking, provider.ThinkingBlock(b.thinking.String(), b.signature.String()))
	case "redacted_thinking":
		s.thinking = append(s.thinking, provider.RedactedThinkingBlock(b.data))
	}
}

func (s *streamState) addUsage(u messagesUsage) {
	if s.usage == nil {
		s.usage = &provider.Usage{}
	}
	if u.InputTokens > 0 {
		s.usage.InputTokens = u.InputTokens
	}
	if u.OutputTokens > 0 {
		s.usage.OutputTokens = u.OutputTokens
	}
	s.usage.TotalTokens = s.usage.InputTokens + s.usage.OutputTokens
}

// finish checks stream integrity once the transport is exhausted.
func (s *streamState) finish() error {
	if s.current != nil && s.current.kind == "tool_use" {
		return fmt.Errorf("%w: %s (%s)", provider.ErrIncompleteToolCall, s.current.name, s.current.id)
	}
	return nil
}

// result snapshots the accumulated state.
func (s *streamState) result() provider.StreamResult {
	return provider.StreamResult{
		Text:           s.text.String(),
		ToolCalls:      s.toolCalls,
		ThinkingBlocks: s.thinking,
		StopReason:     s.stopReason,
		Usage:          s.usage,
	}
}

// cancelled snapshots the partial state with StopCancelled.
func (s *streamState) cancelled() provider.StreamResult {
	r := s.result()
	r.StopReason = provider.StopCancelled
	return r
}
