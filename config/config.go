// Package config loads provider settings from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/i2y/llmstream/provider"
	"github.com/i2y/llmstream/retry"
)

// Config is the root of a configuration file.
//
// Example:
//
//	log_level: info
//	default_model: claude-sonnet-4-20250514
//	retry:
//	  max_retries: 3
//	  base_delay_ms: 1000
//	  max_delay_ms: 30000
//	providers:
//	  anthropic:
//	    api_key_env: ANTHROPIC_API_KEY
//	  openai:
//	    base_url: https://api.openai.com/v1
type Config struct {
	LogLevel     string                    `yaml:"log_level"`
	DefaultModel string                    `yaml:"default_model"`
	Retry        RetryConfig               `yaml:"retry"`
	Providers    map[string]ProviderConfig `yaml:"providers"`
}

// RetryConfig mirrors retry.Config with millisecond fields.
type RetryConfig struct {
	MaxRetries  int `yaml:"max_retries"`
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
}

// ProviderConfig configures one adapter family.
type ProviderConfig struct {
	BaseURL      string `yaml:"base_url"`
	APIKeyEnv    string `yaml:"api_key_env"`
	MaxTokens    int    `yaml:"max_tokens"`
	DefaultModel string `yaml:"default_model"`
}

// Default returns the built-in configuration.
func Default() *Config {
	d := retry.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Retry: RetryConfig{
			MaxRetries:  d.MaxRetries,
			BaseDelayMs: int(d.BaseDelay / time.Millisecond),
			MaxDelayMs:  int(d.MaxDelay / time.Millisecond),
		},
		Providers: map[string]ProviderConfig{},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries))
	}
	if c.Retry.BaseDelayMs <= 0 {
		errs = append(errs, fmt.Errorf("retry.base_delay_ms must be positive, got %d", c.Retry.BaseDelayMs))
	}
	if c.Retry.MaxDelayMs < c.Retry.BaseDelayMs {
		errs = append(errs, fmt.Errorf("retry.max_delay_ms (%d) must be >= base_delay_ms (%d)",
			c.Retry.MaxDelayMs, c.Retry.BaseDelayMs))
	}
	seen := make(map[provider.Family]string)
	for _, name := range slices.Sorted(maps.Keys(c.Providers)) {
		p := c.Providers[name]
		family, err := provider.ParseFamily(name)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("providers: %w", err))
		case seen[family] != "":
			errs = append(errs, fmt.Errorf("providers: %q and %q both configure %s", seen[family], name, family))
		default:
			seen[family] = name
		}
		if p.MaxTokens < 0 {
			errs = append(errs, fmt.Errorf("providers.%s.max_tokens must not be negative", name))
		}
	}

	return errors.Join(errs...)
}

// RetryPolicy converts the retry section.
func (c *Config) RetryPolicy() retry.Config {
	return retry.Config{
		MaxRetries: c.Retry.MaxRetries,
		BaseDelay:  time.Duration(c.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:   time.Duration(c.Retry.MaxDelayMs) * time.Millisecond,
	}
}

// SlogLevel returns the configured log level. Invalid values, which
// Validate rejects, fall back to info.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// Provider returns the settings for family, or the zero value. Validate
// guarantees at most one section per family.
func (c *Config) Provider(family provider.Family) ProviderConfig {
	for name, p := range c.Providers {
		if f, err := provider.ParseFamily(name); err == nil && f == family {
			return p
		}
	}
	return ProviderConfig{}
}

// APIKey resolves the provider's key from its configured environment
// variable. An empty result lets the adapter apply its own fallback.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

func parseLevel(s string) (slog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
