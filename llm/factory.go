// Package llm selects and builds provider adapters.
//
// Importing this package registers both adapters. Callers that only need one
// vendor can import the adapter package directly instead.
package llm

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/i2y/llmstream/anthropic"
	"github.com/i2y/llmstream/config"
	"github.com/i2y/llmstream/openai"
	"github.com/i2y/llmstream/provider"
)

// Option configures providers built by this package.
type Option func(*buildConfig)

type buildConfig struct {
	apiKey     string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
	observer   provider.Observer
}

// WithAPIKey sets the API key instead of reading the vendor's variable.
func WithAPIKey(key string) Option {
	return func(c *buildConfig) {
		c.apiKey = key
	}
}

// WithBaseURL points the adapter at a different endpoint.
func WithBaseURL(url string) Option {
	return func(c *buildConfig) {
		c.baseURL = url
	}
}

// WithMaxTokens sets the adapter's default response budget.
func WithMaxTokens(n int) Option {
	return func(c *buildConfig) {
		c.maxTokens = n
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *buildConfig) {
		c.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *buildConfig) {
		c.logger = logger
	}
}

// WithObserver records stream outcomes, e.g. a *metrics.Metrics.
func WithObserver(o provider.Observer) Option {
	return func(c *buildConfig) {
		c.observer = o
	}
}

// ForModel builds the adapter whose family serves modelID. Unrecognized
// models use the anthropic adapter. It never fails: credential problems are
// reported by the first Stream call.
//
// Without options the adapter comes from the provider registry, so a
// factory registered with provider.Register replaces the built-in one.
func ForModel(modelID string, opts ...Option) provider.Provider {
	return resolve(provider.FamilyForModel(modelID), modelID, opts)
}

// ByType builds the adapter for an explicitly named family ("anthropic",
// "claude" or "openai").
func ByType(family, modelID string, opts ...Option) (provider.Provider, error) {
	f, err := provider.ParseFamily(family)
	if err != nil {
		return nil, err
	}
	return resolve(f, modelID, opts), nil
}

// FromConfig builds the adapter for modelID, or for cfg.DefaultModel when
// modelID is empty, applying the matching providers section. Explicit opts
// override values from cfg.
func FromConfig(cfg *config.Config, modelID string, opts ...Option) provider.Provider {
	if modelID == "" {
		modelID = cfg.DefaultModel
	}
	family := provider.FamilyForModel(modelID)
	pc := cfg.Provider(family)
	if modelID == "" {
		modelID = pc.DefaultModel
	}

	base := []Option{WithBaseURL(pc.BaseURL), WithMaxTokens(pc.MaxTokens)}
	if key := pc.APIKey(); key != "" {
		base = append(base, WithAPIKey(key))
	}
	return build(family, modelID, append(base, opts...))
}

func resolve(family provider.Family, modelID string, opts []Option) provider.Provider {
	if len(opts) == 0 {
		if p, err := provider.Get(family, modelID); err == nil {
			return p
		}
	}
	return build(family, modelID, opts)
}

func build(family provider.Family, modelID string, opts []Option) provider.Provider {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch family {
	case provider.FamilyOpenAI:
		return openai.New(
			openai.WithModel(modelID),
			openai.WithAPIKey(cfg.apiKey),
			openai.WithBaseURL(cfg.baseURL),
			openai.WithMaxTokens(cfg.maxTokens),
			openai.WithHTTPClient(cfg.httpClient),
			openai.WithLogger(cfg.logger),
			openai.WithObserver(cfg.observer),
		)
	case provider.FamilyAnthropic:
		return anthropic.New(
			anthropic.WithModel(modelID),
			anthropic.WithAPIKey(cfg.apiKey),
			anthropic.WithBaseURL(cfg.baseURL),
			anthropic.WithMaxTokens(cfg.maxTokens),
			anthropic.WithHTTPClient(cfg.httpClient),
			anthropic.WithLogger(cfg.logger),
			anthropic.WithObserver(cfg.observer),
		)
	default:
		panic(fmt.Sprintf("llm: unhandled provider family %s", family))
	}
}
