// Package anthropic implements the provider contract over the Anthropic
// Messages API event stream.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/i2y/llmstream/provider"
)

// DefaultModel is used when neither the provider nor the call names a model.
const DefaultModel = "claude-sonnet-4-20250514"

// APIKeyEnv is the environment variable consulted when no key is configured.
const APIKeyEnv = "ANTHROPIC_API_KEY"

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

func init() {
	provider.Register(provider.FamilyAnthropic, func(model string) provider.Provider {
		return New(WithModel(model))
	})
}

// Provider implements provider.Provider for the Anthropic Messages API.
type Provider struct {
	client    *client
	apiKey    string
	model     string
	maxTokens int
	logger    *slog.Logger
	observer  provider.Observer
}

var _ provider.Provider = (*Provider)(nil)

// Option configures the Anthropic provider.
type Option func(*providerConfig)

type providerConfig struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
	observer   provider.Observer
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *providerConfig) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *providerConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *providerConfig) {
		c.httpClient = client
	}
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(c *providerConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the response budget used when a call does not set
// StreamOptions.MaxTokens.
func WithMaxTokens(n int) Option {
	return func(c *providerConfig) {
		c.maxTokens = n
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *providerConfig) {
		c.logger = logger
	}
}

// WithObserver records stream outcomes, e.g. into metrics.
func WithObserver(o provider.Observer) Option {
	return func(c *providerConfig) {
		c.observer = o
	}
}

// New creates a new Anthropic provider. A missing API key is not an error
// here; it is reported by Stream before any request is made.
func New(opts ...Option) *Provider {
	cfg := &providerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.model == "" {
		cfg.model = DefaultModel
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return &Provider{
		client:    newClient(cfg.baseURL, cfg.httpClient),
		apiKey:    cfg.apiKey,
		model:     cfg.model,
		maxTokens: cfg.maxTokens,
		logger:    cfg.logger,
		observer:  cfg.observer,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "anthropic"
}

// Family returns provider.FamilyAnthropic.
func (p *Provider) Family() provider.Family {
	return provider.FamilyAnthropic
}

// Model returns the default model.
func (p *Provider) Model() string {
	return p.model
}

func (p *Provider) resolveAPIKey() string {
	if p.apiKey != "" {
		return p.apiKey
	}
	return os.Getenv(APIKeyEnv)
}

// Stream implements provider.Provider.
func (p *Provider) Stream(ctx context.Context, messages []provider.Message, cb provider.Callbacks, opts provider.StreamOptions) {
	sink := provider.NewSink(cb, provider.FamilyAnthropic, p.logger, p.observer)
	state := newStreamState(sink)

	apiKey := p.resolveAPIKey()
	if apiKey == "" {
		sink.Fail(fmt.Errorf("%w: set %s or use WithAPIKey", provider.ErrMissingAPIKey, APIKeyEnv))
		return
	}
	if ctx.Err() != nil {
		sink.Complete(state.cancelled())
		return
	}

	req := p.buildRequest(messages, opts)
	sink.Logger().Debug("anthropic.Stream",
		"model", req.Model, "messages", len(req.Messages), "tools", len(req.Tools), "max_tokens", req.MaxTokens)

	reader, err := p.client.messagesStream(ctx, apiKey, req)
	if err != nil {
		if ctx.Err() != nil {
			sink.Complete(state.cancelled())
			return
		}
		sink.Fail(err)
		return
	}
	defer func() { _ = reader.Close() }()

	for !state.stopped {
		if ctx.Err() != nil {
			_ = reader.Close()
			sink.Complete(state.cancelled())
			return
		}

		event, err := reader.ReadEvent()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				sink.Complete(state.cancelled())
				return
			}
			sink.Fail(fmt.Errorf("reading stream: %w", err))
			return
		}

		if err := state.handle(event); err != nil {
			sink.Fail(err)
			return
		}
	}

	if err := state.finish(); err != nil {
		sink.Fail(err)
		return
	}
	sink.Complete(state.result())
}

// BuildAssistantMessage implements provider.Provider.
func (p *Provider) BuildAssistantMessage(text string, toolCalls []provider.ToolCall, thinking []provider.ContentBlock) provider.Message {
	return provider.BuildAssistantMessage(text, toolCalls, thinking)
}

// BuildToolResultMessage implements provider.Provider.
func (p *Provider) BuildToolResultMessage(results []provider.ToolResult) provider.Message {
	return provider.BuildToolResultMessage(results)
}

// buildRequest converts messages and options to an Anthropic API request.
func (p *Provider) buildRequest(messages []provider.Message, opts provider.StreamOptions) *messagesRequest {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = p.maxTokens
	}
	apiReq := &messagesRequest{
		Model:     opts.ModelOr(p.model),
		MaxTokens: opts.ResponseBudget(),
		System:    opts.SystemPrompt(),
		Messages:  make([]message, 0, len(messages)),
	}

	for _, msg := range messages {
		apiReq.Messages = append(apiReq.Messages, convertMessage(msg))
	}

	for _, tool := range opts.Tools {
		schema := tool.InputSchema
		if len(schema) == 0 {
			schema = emptyObjectSchema
		}
		apiReq.Tools = append(apiReq.Tools, toolDef{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}

	if opts.Thinking != nil && opts.Thinking.BudgetTokens > 0 {
		apiReq.Thinking = &thinkingParam{
			Type:         "enabled",
			BudgetTokens: opts.Thinking.BudgetTokens,
		}
	}

	return apiReq
}

func convertMessage(msg provider.Message) message {
	if len(msg.Blocks) == 0 {
		return message{Role: string(msg.Role), Content: msg.Text}
	}

	parts := make([]any, 0, len(msg.Blocks))
	for _, b := range msg.Blocks {
		switch b.Type {
		case provider.BlockText:
			parts = append(parts, textPart{Type: "text", Text: b.Text})
		case provider.BlockToolUse:
			input := b.Input
			if input == nil {
				input = map[string]any{}
			}
			parts = append(parts, toolUsePart{Type: "tool_use", ID: b.ID, Name: b.Name, Input: input})
		case provider.BlockToolResult:
			parts = append(parts, toolResultPart{
				Type:      "tool_result",
				ToolUseID: b.ToolUseID,
				Content:   b.Content,
				IsError:   b.IsError,
			})
		case provider.BlockThinking:
			parts = append(parts, thinkingPart{Type: "thinking", Thinking: b.Thinking, Signature: b.Signature})
		case provider.BlockRedactedThinking:
			parts = append(parts, redactedThinkingPart{Type: "redacted_thinking", Data: b.Data})
		}
	}
	return message{Role: string(msg.Role), Content: parts}
}
