package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/llmstream/provider"
	"github.com/i2y/llmstream/provider/providertest"
	"github.com/i2y/llmstream/retry"
)

func sseEvent(data string) string {
	var head struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal([]byte(data), &head)
	return "event: " + head.Type + "\ndata: " + data + "\n\n"
}

func sseHandler(events ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			_, _ = fmt.Fprint(w, sseEvent(ev))
		}
	}
}

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(WithAPIKey("test-key"), WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func userTurn() []provider.Message {
	return []provider.Message{provider.UserMessage("hello")}
}

const (
	evMessageStart = `{"type":"message_start","message":{"id":"msg_1","model":"claude-test","usage":{"input_tokens":12,"output_tokens":1}}}`
	evMessageStop  = `{"type":"message_stop"}`
)

func TestStream_Text(t *testing.T) {
	p := newTestProvider(t, sseHandler(
		evMessageStart,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		`{"type":"ping"}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":", world"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":7}}`,
		evMessageStop,
	))

	var rec providertest.Recorder
	p.Stream(context.Background(), userTurn(), rec.Callbacks(), provider.StreamOptions{})

	require.NoError(t, rec.Err)
	require.NotNil(t, rec.Result)
	assert.Equal(t, 1, rec.Terminals)
	assert.Equal(t, []string{"Hello", ", world"}, rec.Chunks)
	assert.Equal(t, "Hello, world", rec.Result.Text)
	assert.Equal(t, provider.StopEndTurn, rec.Result.StopReason)
	assert.Empty(t, rec.Result.ToolCalls)
	require.NotNil(t, rec.Result.Usage)
	assert.Equal(t, provider.Usage{InputTokens: 12, OutputTokens: 7, TotalTokens: 19}, *rec.Result.Usage)
}

func TestStream_ToolUseFragments(t *testing.T) {
	p := newTestProvider(t, sseHandler(
		evMessageStart,
		`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"read_file","input":{}}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"a\":"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"1}"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"tool_use"}}`,
		evMessageStop,
	))

	var rec providertest.Recorder
	p.Stream(context.Background(), userTurn(), rec.Callbacks(), provider.StreamOptions{})

	require.NoError(t, rec.Err)
	require.NotNil(t, rec.Result)
	require.Len(t, rec.Result.ToolCalls, 1)
	call := rec.Result.ToolCalls[0]
	assert.Equal(t, "toolu_1", call.ID)
	assert.Equal(t, "read_file", call.Name)
	assert.Equal(t, map[string]any{"a": float64(1)}, call.Input)
	assert.Equal(t, rec.Result.ToolCalls, rec.ToolCalls)
	assert.Equal(t, provider.StopToolUse, rec.Result.StopReason)
	assert.Empty(t, rec.Result.Text)
}

func TestStream_ThinkingBlocks(t *testing.T) {
	p := newTestProvider(t, sseHandler(
		evMessageStart,
		`{"type":"content_block_start","index":0,"content_block":{"type":"thinking","thinking":""}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"Let me "}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"check."}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"signature_delta","signature":"c2ln"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"signature_delta","signature":"Lw=="}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"content_block_start","index":1,"content_block":{"type":"redacted_thinking","data":"EmwKAhgB+/=="}}`,
		`{"type":"content_block_stop","index":1}`,
		`{"type":"content_block_start","index":2,"content_block":{"type":"text","text":""}}`,
		`{"type":"content_block_delta","index":2,"delta":{"type":"text_delta","text":"Done."}}`,
		`{"type":"content_block_stop","index":2}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"}}`,
		evMessageStop,
	))

	var rec providertest.Recorder
	p.Stream(context.Background(), userTurn(), rec.Callbacks(), provider.StreamOptions{})

	require.NoError(t, rec.Err)
	require.NotNil(t, rec.Result)
	assert.Equal(t, "Done.", rec.Result.Text)
	assert.Equal(t, []string{"Let me ", "check."}, rec.Thinking)
	assert.Equal(t, []provider.ContentBlock{
		provider.ThinkingBlock("Let me check.", "c2lnLw=="),
		provider.RedactedThinkingBlock("EmwKAhgB+/=="),
	}, rec.Result.ThinkingBlocks)
}

func TestStream_MalformedToolArguments(t *testing.T) {
	p := newTestProvider(t, sseHandler(
		evMessageStart,
		`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_9","name":"grep"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"pattern\": "}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"tool_use"}}`,
		evMessageStop,
	))

	var rec providertest.Recorder
	p.Stream(context.Background(), userTurn(), rec.Callbacks(), provider.StreamOptions{})

	require.NoError(t, rec.Err)
	require.NotNil(t, rec.Result)
	require.Len(t, rec.ToolCalls, 1)
	assert.Equal(t, "grep", rec.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{}, rec.ToolCalls[0].Input)
}

func TestStream_UnterminatedToolUse(t *testing.T) {
	p := newTestProvider(t, sseHandler(
		evMessageStart,
		`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_2","name":"edit"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"path\":\"a.go\""}}`,
	))

	var rec providertest.Recorder
	p.Stream(context.Background(), userTurn(), rec.Callbacks(), provider.StreamOptions{})

	require.Error(t, rec.Err)
	assert.Nil(t, rec.Result)
	assert.Equal(t, 1, rec.Terminals)
	assert.ErrorIs(t, rec.Err, provider.ErrIncompleteToolCall)
	assert.Empty(t, rec.ToolCalls)
	assert.True(t, retry.IsRetryable(rec.Err))
}

func TestStream_CancelMidStream(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, sseEvent(evMessageStart))
		_, _ = fmt.Fprint(w, sseEvent(`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`))
		_, _ = fmt.Fprint(w, sseEvent(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"partial"}}`))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := providertest.Recorder{OnChunkHook: func(string) { cancel() }}
	p.Stream(ctx, userTurn(), rec.Callbacks(), provider.StreamOptions{})

	require.NoError(t, rec.Err)
	require.NotNil(t, rec.Result)
	assert.Equal(t, 1, rec.Terminals)
	assert.Equal(t, provider.StopCancelled, rec.Result.StopReason)
	assert.Equal(t, "partial", rec.Result.Text)
}

func TestStream_CancelledBeforeStart(t *testing.T) {
	var hits atomic.Int32
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var rec providertest.Recorder
	p.Stream(ctx, userTurn(), rec.Callbacks(), provider.StreamOptions{})

	require.NotNil(t, rec.Result)
	assert.Equal(t, provider.StopCancelled, rec.Result.StopReason)
	assert.Zero(t, hits.Load())
}

func TestStream_MissingAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))

	var rec providertest.Recorder
	p.Stream(context.Background(), userTurn(), rec.Callbacks(), provider.StreamOptions{})

	assert.ErrorIs(t, rec.Err, provider.ErrMissingAPIKey)
	assert.Nil(t, rec.Result)
	assert.Zero(t, hits.Load())
}

func TestStream_APIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "env-key")

	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		sseHandler(evMessageStart, evMessageStop)(w, r)
	}))
	defer srv.Close()

	var rec providertest.Recorder
	New(WithBaseURL(srv.URL)).Stream(context.Background(), userTurn(), rec.Callbacks(), provider.StreamOptions{})

	require.NoError(t, rec.Err)
	assert.Equal(t, "env-key", gotKey)
}

func TestStream_HTTPErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantType      string
		wantRetryable bool
	}{
		{
			name:          "rate limited",
			status:        http.StatusTooManyRequests,
			body:          `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`,
			wantType:      "rate_limit_error",
			wantRetryable: true,
		},
		{
			name:          "overloaded",
			status:        529,
			body:          `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			wantType:      "overloaded_error",
			wantRetryable: true,
		},
		{
			name:          "bad key",
			status:        http.StatusUnauthorized,
			body:          `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
			wantType:      "authentication_error",
			wantRetryable: false,
		},
		{
			name:          "non-json body",
			status:        http.StatusBadGateway,
			body:          "upstream gone",
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			var rec providertest.Recorder
			p.Stream(context.Background(), userTurn(), rec.Callbacks(), provider.StreamOptions{})

			var apiErr *APIError
			require.ErrorAs(t, rec.Err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.wantRetryable, retry.IsRetryable(rec.Err))
		})
	}
}

func TestStream_ErrorEvent(t *testing.T) {
	p := newTestProvider(t, sseHandler(
		evMessageStart,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`,
		`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
	))

	var rec providertest.Recorder
	p.Stream(context.Background(), userTurn(), rec.Callbacks(), provider.StreamOptions{})

	var apiErr *APIError
	require.ErrorAs(t, rec.Err, &apiErr)
	assert.Equal(t, "overloaded_error", apiErr.Type)
	assert.Equal(t, 529, apiErr.StatusCode)
	assert.Nil(t, rec.Result)
	assert.True(t, retry.IsRetryable(rec.Err))
}

func TestStream_RequestBody(t *testing.T) {
	var (
		body    map[string]any
		headers http.Header
	)
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sseHandler(evMessageStart, evMessageStop)(w, r)
	}))

	messages := []provider.Message{
		provider.UserMessage("fix the bug"),
		provider.BuildAssistantMessage("Looking.", []provider.ToolCall{
			{ID: "toolu_1", Name: "read_file", Input: map[string]any{"path": "main.go"}},
		}, []provider.ContentBlock{provider.ThinkingBlock("hmm", "sig==")}),
		provider.BuildToolResultMessage([]provider.ToolResult{
			{ToolUseID: "toolu_1", Content: "package main", IsError: false},
		}),
	}
	opts := provider.StreamOptions{
		Model:          "claude-override",
		SystemOverride: "be terse",
		Thinking:       provider.EnableThinking(2000),
		Tools: []provider.ToolDefinition{{
			Name:        "read_file",
			Description: "Read a file",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}}}`),
		}},
	}

	var rec providertest.Recorder
	p.Stream(context.Background(), messages, rec.Callbacks(), opts)
	require.NoError(t, rec.Err)

	assert.Equal(t, "test-key", headers.Get("x-api-key"))
	assert.Equal(t, apiVersion, headers.Get("anthropic-version"))

	assert.Equal(t, "claude-override", body["model"])
	assert.Equal(t, "be terse", body["system"])
	assert.Equal(t, true, body["stream"])
	assert.Equal(t, float64(provider.BaselineMaxTokens+2000+provider.ThinkingMargin), body["max_tokens"])
	assert.Equal(t, map[string]any{"type": "enabled", "budget_tokens": float64(2000)}, body["thinking"])

	tools := body["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "read_file", tools[0].(map[string]any)["name"])
	assert.Contains(t, tools[0].(map[string]any), "input_schema")

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, map[string]any{"role": "user", "content": "fix the bug"}, msgs[0])

	assistant := msgs[1].(map[string]any)["content"].([]any)
	require.Len(t, assistant, 3)
	assert.Equal(t, map[string]any{"type": "thinking", "thinking": "hmm", "signature": "sig=="}, assistant[0])
	assert.Equal(t, map[string]any{"type": "text", "text": "Looking."}, assistant[1])
	assert.Equal(t, map[string]any{
		"type": "tool_use", "id": "toolu_1", "name": "read_file",
		"input": map[string]any{"path": "main.go"},
	}, assistant[2])

	results := msgs[2].(map[string]any)
	assert.Equal(t, "user", results["role"])
	assert.Equal(t, []any{map[string]any{
		"type": "tool_result", "tool_use_id": "toolu_1", "content": "package main",
	}}, results["content"])
}

func TestStream_DefaultsWithoutThinking(t *testing.T) {
	var body map[string]any
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sseHandler(evMessageStart, evMessageStop)(w, r)
	}))

	var rec providertest.Recorder
	p.Stream(context.Background(), userTurn(), rec.Callbacks(), provider.StreamOptions{})
	require.NoError(t, rec.Err)

	assert.Equal(t, DefaultModel, body["model"])
	assert.Equal(t, provider.DefaultSystemPrompt, body["system"])
	assert.Equal(t, float64(provider.BaselineMaxTokens), body["max_tokens"])
	assert.NotContains(t, body, "thinking")
	assert.NotContains(t, body, "tools")
}

func TestProvider_Identity(t *testing.T) {
	p := New()
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, provider.FamilyAnthropic, p.Family())
	assert.Equal(t, DefaultModel, p.Model())
	assert.Equal(t, "claude-x", New(WithModel("claude-x")).Model())
}
