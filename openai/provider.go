// Package openai implements the provider contract over the OpenAI Responses
// API event stream.
package openai

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
	"github.com/i2y/llmstream/sse"
)

// DefaultModel is used when neither the provider nor the call names a model.
const DefaultModel = "gpt-4.1"

// APIKeyEnv is the environment variable consulted when no key is configured.
const APIKeyEnv = "OPENAI_API_KEY"

const readChunkSize = 4096

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

func init() {
	provider.Register(provider.FamilyOpenAI, func(model string) provider.Provider {
		return New(WithModel(model))
	})
}

// Provider implements provider.Provider for the OpenAI Responses API.
type Provider struct {
	client    *client
	apiKey    string
	model     string
	maxTokens int
	logger    *slog.Logger
	observer  provider.Observer
}

var _ provider.Provider = (*Provider)(nil)

// Option configures the OpenAI provider.
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

// WithObserver records stream outcomes.
func WithObserver(o provider.Observer) Option {
	return func(c *providerConfig) {
		c.observer = o
	}
}

// New creates a new OpenAI provider. The API key is resolved per call, so a
// missing key surfaces through OnError instead of here.
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
	return "openai"
}

// Family returns provider.FamilyOpenAI.
func (p *Provider) Family() provider.Family {
	return provider.FamilyOpenAI
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
	sink := provider.NewSink(cb, provider.FamilyOpenAI, p.logger, p.observer)
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
	sink.Logger().Debug("openai.Stream",
		"model", req.Model, "items", len(req.Input), "tools", len(req.Tools))

	body, err := p.client.responsesStream(ctx, apiKey, req)
	if err != nil {
		if ctx.Err() != nil {
			sink.Complete(state.cancelled())
			return
		}
		sink.Fail(err)
		return
	}
	defer func() { _ = body.Close() }()

	err = consume(ctx, body, state)
	switch {
	case errors.Is(err, errStreamDone):
		// The response is complete; a later cancellation does not change it.
	case ctx.Err() != nil:
		sink.Complete(state.cancelled())
		return
	case err != nil:
		sink.Fail(err)
		return
	}
	if err := state.finish(); err != nil {
		sink.Fail(err)
		return
	}
	sink.Complete(state.result())
}

// consume reads body in raw chunks, frames them into lines and applies each
// event. It returns errStreamDone when the stream ended with a summary or
// [DONE], nil on a bare EOF, and ctx.Err() when cancelled.
func consume(ctx context.Context, body io.Reader, state *streamState) error {
	var lines sse.LineReader
	buf := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			for _, line := range lines.Feed(buf[:n]) {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := state.handleLine(line); err != nil {
					return err
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			if line, ok := lines.Flush(); ok {
				return state.handleLine(line)
			}
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("reading stream: %w", readErr)
		}
	}
}

// BuildAssistantMessage implements provider.Provider.
func (p *Provider) BuildAssistantMessage(text string, toolCalls []provider.ToolCall, thinking []provider.ContentBlock) provider.Message {
	return provider.BuildAssistantMessage(text, toolCalls, thinking)
}

// BuildToolResultMessage implements provider.Provider.
func (p *Provider) BuildToolResultMessage(results []provider.ToolResult) provider.Message {
	return provider.BuildToolResultMessage(results)
}

// buildRequest converts messages and options to a Responses API request.
// Thinking options are not forwarded.
func (p *Provider) buildRequest(messages []provider.Message, opts provider.StreamOptions) *responsesRequest {
	apiReq := &responsesRequest{
		Model:             opts.ModelOr(p.model),
		Instructions:      opts.SystemPrompt(),
		Input:             InputFromMessages(messages),
		ParallelToolCalls: true,
		MaxOutputTokens:   opts.MaxTokens,
	}
	if apiReq.MaxOutputTokens == 0 {
		apiReq.MaxOutputTokens = p.maxTokens
	}

	for _, tool := range opts.Tools {
		schema := tool.InputSchema
		if len(schema) == 0 {
			schema = emptyObjectSchema
		}
		apiReq.Tools = append(apiReq.Tools, toolDef{
			Type:        "function",
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  schema,
		})
	}
	if len(apiReq.Tools) > 0 {
		apiReq.ToolChoice = "auto"
	}

	return apiReq
}
