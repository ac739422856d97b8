// Package retry classifies provider errors and computes backoff delays.
// It never retries by itself; the caller owns the retry loop.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Config bounds a caller's retry loop.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1000 * time.Millisecond,
		MaxDelay:   30000 * time.Millisecond,
	}
}

var (
	networkPatterns = []string{
		"econnrefused",
		"econnreset",
		"etimedout",
		"enotfound",
		"eai_again",
		"connection refused",
		"connection reset",
		"timeout",
		"timed out",
		"no such host",
		"network is unreachable",
		"socket hang up",
		"broken pipe",
		"unexpected eof",
	}

	rateLimitPatterns = []string{
		"rate limit",
		"rate_limit",
		"too many requests",
	}

	serverPatterns = []string{
		"overloaded",
		"unavailable",
		"internal server error",
		"bad gateway",
	}

	// A status code only counts where it is labelled as one or leads the
	// message; numbers inside vendor text ("204291 tokens") do not.
	retryableStatusPattern = regexp.MustCompile(`(?:^|\bstatus:? |\bhttp |\bcode:? )(?:429|5\d\d)\b`)
)

const incompleteToolCallPattern = "incomplete tool call"

// statusCoder is implemented by vendor API errors.
type statusCoder interface {
	HTTPStatusCode() int
}

// IsRetryable reports whether err is worth retrying: network failures, rate
// limits, server-side overload, and streams cut off inside a tool call.
// Malformed requests and auth failures are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		status := sc.HTTPStatusCode()
		if retryableStatus(status) {
			return true
		}
		if status >= 400 && status < 500 {
			return false
		}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	return IsRetryableMessage(err.Error())
}

// IsRetryableMessage applies the message-pattern classes of IsRetryable.
func IsRetryableMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return containsAny(msg, networkPatterns) ||
		containsAny(msg, rateLimitPatterns) ||
		containsAny(msg, serverPatterns) ||
		retryableStatusPattern.MatchString(msg) ||
		strings.Contains(msg, incompleteToolCallPattern)
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// maxShift keeps BaseDelay << attempt from overflowing.
const maxShift = 32

// ComputeBackoff returns min(BaseDelay*2^attempt + jitter, MaxDelay), where
// jitter is uniform in [0, BaseDelay).
func ComputeBackoff(attempt int, cfg Config) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxShift {
		attempt = maxShift
	}

	delay := cfg.BaseDelay << attempt
	if delay < 0 || (cfg.BaseDelay > 0 && delay/cfg.BaseDelay != 1<<attempt) {
		return cfg.MaxDelay
	}
	if cfg.BaseDelay > 0 {
		delay += rand.N(cfg.BaseDelay)
	}
	if delay > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return delay
}

// Wait sleeps for delay or until ctx is done.
func Wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
