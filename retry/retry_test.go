package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr struct {
	status  int
	message string
}

func (e *statusErr) Error() string {
	if e.message != "" {
		return e.message
	}
	return fmt.Sprintf("api error %d", e.status)
}

func (e *statusErr) HTTPStatusCode() int { return e.status }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "connection reset code", err: errors.New("read tcp: ECONNRESET"), want: true},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:443: connect: connection refused"), want: true},
		{name: "dns failure", err: errors.New("dial tcp: lookup api.example.com: no such host"), want: true},
		{name: "socket hang up", err: errors.New("socket hang up"), want: true},
		{name: "rate limit", err: errors.New("429 rate limit"), want: true},
		{name: "too many requests", err: errors.New("Too Many Requests"), want: true},
		{name: "service unavailable", err: errors.New("503 service unavailable"), want: true},
		{name: "overloaded", err: errors.New("anthropic API error (type overloaded_error): Overloaded"), want: true},
		{name: "internal server error status", err: errors.New("openai API error (status 500): boom"), want: true},
		{name: "incomplete tool call", err: errors.New("incomplete tool call - possible timeout"), want: true},
		{name: "wrapped incomplete tool call", err: fmt.Errorf("stream: %w", errors.New("incomplete tool call - possible timeout")), want: true},
		{name: "invalid api key", err: errors.New("invalid api key"), want: false},
		{name: "bad request", err: errors.New("openai API error (status 400): malformed input"), want: false},
		{name: "cancelled", err: context.Canceled, want: false},
		{name: "typed 429", err: &statusErr{status: 429}, want: true},
		{name: "typed 502", err: &statusErr{status: 502}, want: true},
		{name: "typed 401", err: &statusErr{status: 401}, want: false},
		{name: "typed 400 mentioning a 5xx number", err: &statusErr{status: 400, message: "max_tokens: 550 > 512, which is the maximum allowed"}, want: false},
		{name: "typed 400 with 429 inside a number", err: &statusErr{status: 400, message: "prompt is too long: 204291 tokens > 200000 maximum"}, want: false},
		{name: "typed 400 mentioning 4290 bytes", err: &statusErr{status: 400, message: "request body of 4290 bytes is invalid"}, want: false},
		{name: "typed 400 mentioning overload", err: &statusErr{status: 400, message: "tool list overloaded with duplicates"}, want: false},
		{name: "typed 401 with message", err: &statusErr{status: 401, message: "invalid x-api-key"}, want: false},
		{name: "untyped 429 inside a number", err: errors.New("prompt is too long: 204291 tokens > 200000 maximum"), want: false},
		{name: "untyped 5xx inside text", err: errors.New("max_tokens: 550 > 512"), want: false},
		{name: "leading status code", err: errors.New("502 from upstream"), want: true},
		{name: "labelled status 429", err: errors.New("openai API error (status 429): slow down"), want: true},
		{name: "net timeout", err: fmt.Errorf("reading body: %w", timeoutErr{}), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestComputeBackoff_Range(t *testing.T) {
	cfg := Config{MaxRetries: 3, BaseDelay: 1000 * time.Millisecond, MaxDelay: 30000 * time.Millisecond}

	for i := 0; i < 200; i++ {
		d := ComputeBackoff(2, cfg)
		require.GreaterOrEqual(t, d, 4000*time.Millisecond)
		require.LessOrEqual(t, d, 5000*time.Millisecond)
	}
}

func TestComputeBackoff_NeverExceedsCap(t *testing.T) {
	cfg := DefaultConfig()

	for attempt := -1; attempt < 100; attempt++ {
		d := ComputeBackoff(attempt, cfg)
		assert.LessOrEqual(t, d, cfg.MaxDelay, "attempt %d", attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0), "attempt %d", attempt)
	}
}

func TestComputeBackoff_Grows(t *testing.T) {
	cfg := Config{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Hour}

	assert.Less(t, ComputeBackoff(0, cfg), 200*time.Millisecond)
	assert.GreaterOrEqual(t, ComputeBackoff(3, cfg), 800*time.Millisecond)
	assert.Less(t, ComputeBackoff(3, cfg), 900*time.Millisecond)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.MaxDelay)
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
