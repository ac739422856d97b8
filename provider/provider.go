// Package provider defines the contract every LLM vendor adapter implements,
// along with the vendor-neutral message model.
package provider

import (
	"context"
	"errors"
	"time"
)

// DefaultSystemPrompt is sent when StreamOptions.SystemOverride is empty.
const DefaultSystemPrompt = `You are a coding assistant working inside the user's repository.
Use the available tools to read, search and edit files. Keep answers short and
explain what you changed.`

const (
	// BaselineMaxTokens is the response budget used when thinking is disabled.
	BaselineMaxTokens = 8192

	// ThinkingMargin is added on top of the thinking budget because vendors
	// share the response limit between reasoning and output tokens.
	ThinkingMargin = 4096
)

var (
	// ErrMissingAPIKey is reported through OnError before any request is sent.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrIncompleteToolCall is reported when a stream ends inside a tool call.
	ErrIncompleteToolCall = errors.New("incomplete tool call - possible timeout")
)

// Provider is the core abstraction for LLM vendor adapters.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string

	// Family returns the vendor family this provider implements.
	Family() Family

	// Model returns the default model used when StreamOptions.Model is empty.
	Model() string

	// Stream sends the conversation and blocks until exactly one of
	// cb.OnComplete or cb.OnError has been called. ctx cancels the stream;
	// cancellation is reported through OnComplete with StopCancelled.
	Stream(ctx context.Context, messages []Message, cb Callbacks, opts StreamOptions)

	// BuildAssistantMessage rebuilds an assistant turn for replay.
	BuildAssistantMessage(text string, toolCalls []ToolCall, thinking []ContentBlock) Message

	// BuildToolResultMessage packs tool results into a single user message.
	BuildToolResultMessage(results []ToolResult) Message
}

// Callbacks receive stream progress. Any of them may be nil.
type Callbacks struct {
	OnChunk    func(text string)
	OnToolCall func(call ToolCall)
	OnThinking func(text string)
	OnComplete func(result StreamResult)
	OnError    func(err error)
}

// StreamOptions configures one Stream call.
type StreamOptions struct {
	Tools          []ToolDefinition
	Model          string
	SystemOverride string
	Thinking       *ThinkingConfig
	MaxTokens      int // overrides BaselineMaxTokens when > 0
}

// SystemPrompt returns the override or the built-in prompt.
func (o StreamOptions) SystemPrompt() string {
	if o.SystemOverride != "" {
		return o.SystemOverride
	}
	return DefaultSystemPrompt
}

// ModelOr returns the requested model, or fallback when none was set.
func (o StreamOptions) ModelOr(fallback string) string {
	if o.Model != "" {
		return o.Model
	}
	return fallback
}

// ResponseBudget computes the max_tokens value for a request.
func (o StreamOptions) ResponseBudget() int {
	budget := BaselineMaxTokens
	if o.MaxTokens > 0 {
		budget = o.MaxTokens
	}
	if o.Thinking != nil && o.Thinking.BudgetTokens > 0 {
		budget += o.Thinking.BudgetTokens + ThinkingMargin
	}
	return budget
}

// Observer records the outcome of stream calls. metrics.Metrics implements it.
type Observer interface {
	ObserveStream(family Family, stop StopReason, err error, d time.Duration)
	ObserveToolCall(family Family, name string)
}

// Collect runs p.Stream and returns the terminal value instead of using callbacks.
func Collect(ctx context.Context, p Provider, messages []Message, opts StreamOptions) (*StreamResult, error) {
	var (
		result *StreamResult
		err    error
	)
	p.Stream(ctx, messages, Callbacks{
		OnComplete: func(r StreamResult) { result = &r },
		OnError:    func(e error) { err = e },
	}, opts)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("stream finished without a result")
	}
	return result, nil
}
