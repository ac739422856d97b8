package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/i2y/llmstream/provider"
	"github.com/i2y/llmstream/sse"
)

// errStreamDone ends the read loop once the response summary (or [DONE])
// has been seen. It never reaches callers.
var errStreamDone = errors.New("openai: stream done")

// pendingCall is a function_call output item whose arguments are still
// streaming. Items are keyed by the transport-local item id.
type pendingCall struct {
	callID string
	name   string
	args   strings.Builder

	// final holds the arguments of function_call_arguments.done while the
	// public call id is still unknown.
	final    string
	argsDone bool
}

// streamState accumulates one Stream call.
type streamState struct {
	sink *provider.Sink

	text       strings.Builder
	toolCalls  []provider.ToolCall
	stopReason provider.StopReason
	usage      *provider.Usage

	items       map[string]*pendingCall
	registered  map[string]bool // by call id
	resolvedIDs map[string]bool // by item id
}

func newStreamState(sink *provider.Sink) *streamState {
	return &streamState{
		sink:        sink,
		items:       make(map[string]*pendingCall),
		registered:  make(map[string]bool),
		resolvedIDs: make(map[string]bool),
	}
}

// handleLine decodes one framed line. Non-data lines are ignored.
func (s *streamState) handleLine(line string) error {
	data, ok := sse.Data(line)
	if !ok {
		return nil
	}
	if data == sse.DoneMarker {
		return errStreamDone
	}

	var event responseEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return fmt.Errorf("parsing event: %w", err)
	}
	return s.handle(&event)
}

// handle applies one event. errStreamDone ends the stream normally; any
// other error is fatal.
func (s *streamState) handle(event *responseEvent) error {
	switch event.Type {
	case "response.output_text.delta":
		s.text.WriteString(event.Delta)
		s.sink.Chunk(event.Delta)

	case "response.reasoning_summary_text.delta":
		s.sink.Thinking(event.Delta)

	case "response.output_item.added":
		if event.Item != nil && event.Item.Type == ItemFunctionCall {
			s.track(event.Item)
		}

	case "response.function_call_arguments.delta":
		s.item(event.ItemID).args.WriteString(event.Delta)

	case "response.function_call_arguments.done":
		pc := s.item(event.ItemID)
		if event.CallID != "" {
			pc.callID = event.CallID
		}
		if event.Name != "" {
			pc.name = event.Name
		}
		if pc.callID == "" {
			// Registration waits for an event that carries the call id.
			pc.final = event.Arguments
			pc.argsDone = true
			break
		}
		s.register(event.ItemID, pc, event.Arguments)

	case "response.output_item.done":
		if event.Item != nil && event.Item.Type == ItemFunctionCall {
			s.register(event.Item.ID, s.track(event.Item), event.Item.Arguments)
		}

	case "response.completed", "response.done":
		s.summarize(event.Response)
		return errStreamDone

	case "response.incomplete":
		s.summarize(event.Response)
		s.stopReason = provider.StopMaxTokens
		return errStreamDone

	case "response.failed":
		if event.Response != nil && event.Response.Error != nil {
			return streamError(event.Response.Error.Code, event.Response.Error.Message)
		}
		return streamError("", "response failed")

	case "error":
		return streamError(event.Code, event.Message)
	}

	return nil
}

// item returns the pending call for itemID, creating it when the stream
// skipped output_item.added.
func (s *streamState) item(itemID string) *pendingCall {
	pc, ok := s.items[itemID]
	if !ok {
		pc = &pendingCall{}
		s.items[itemID] = pc
	}
	return pc
}

// track records the call id and name announced for an output item.
func (s *streamState) track(it *outputItem) *pendingCall {
	pc := s.item(it.ID)
	if it.CallID != "" {
		pc.callID = it.CallID
	}
	if it.Name != "" {
		pc.name = it.Name
	}
	return pc
}

// register finalizes the call behind itemID. The same call is announced by
// several events; only the first registration per call counts.
func (s *streamState) register(itemID string, pc *pendingCall, arguments string) {
	delete(s.items, itemID)

	callID := pc.callID
	if callID == "" {
		callID = itemID
	}
	if s.registered[callID] || s.resolvedIDs[itemID] {
		return
	}
	s.registered[callID] = true
	s.resolvedIDs[itemID] = true

	raw := arguments
	if raw == "" {
		raw = pc.final
	}
	if raw == "" {
		raw = pc.args.String()
	}
	input, ok := provider.ParseOrDefault(raw)
	if !ok {
		s.sink.Logger().Warn("invalid tool arguments, using empty input",
			"tool", pc.name, "id", callID, "raw_len", len(raw))
	}

	call := provider.ToolCall{ID: callID, Name: pc.name, Input: input}
	s.toolCalls = append(s.toolCalls, call)
	s.sink.ToolCall(call)
}

// summarize registers calls that only the final response lists and sets the
// stop reason and usage.
func (s *streamState) summarize(resp *responseBody) {
	if resp != nil {
		for i := range resp.Output {
			it := &resp.Output[i]
			if it.Type == ItemFunctionCall {
				s.register(it.ID, s.track(it), it.Arguments)
			}
		}
		if resp.Usage != nil {
			s.usage = &provider.Usage{
				InputTokens:  resp.Usage.InputTokens,
				OutputTokens: resp.Usage.OutputTokens,
				TotalTokens:  resp.Usage.TotalTokens,
			}
			if s.usage.TotalTokens == 0 {
				s.usage.TotalTokens = s.usage.InputTokens + s.usage.OutputTokens
			}
		}
	}

	if len(s.toolCalls) > 0 {
		s.stopReason = provider.StopToolUse
	} else {
		s.stopReason = provider.StopEndTurn
	}
}

// finish checks stream integrity once the transport is exhausted. Calls
// whose arguments completed but whose call id never arrived are registered
// under their item id.
func (s *streamState) finish() error {
	itemIDs := make([]string, 0, len(s.items))
	for itemID, pc := range s.items {
		if pc.argsDone {
			itemIDs = append(itemIDs, itemID)
			continue
		}
		if pc.args.Len() > 0 || pc.name != "" {
			return fmt.Errorf("%w: %s (%s)", provider.ErrIncompleteToolCall, pc.name, itemID)
		}
	}

	slices.Sort(itemIDs)
	for _, itemID := range itemIDs {
		s.register(itemID, s.items[itemID], "")
	}
	return nil
}

// result snapshots the accumulated state.
func (s *streamState) result() provider.StreamResult {
	return provider.StreamResult{
		Text:       s.text.String(),
		ToolCalls:  s.toolCalls,
		StopReason: s.stopReason,
		Usage:      s.usage,
	}
}

// cancelled snapshots the partial state with StopCancelled.
func (s *streamState) cancelled() provider.StreamResult {
	r := s.result()
	r.StopReason = provider.StopCancelled
	return r
}
