// Package providertest provides utilities for testing provider adapters.
package providertest

import (
	"strings"

	"github.com/i2y/llmstream/provider"
)

// Recorder captures every callback of a Stream call.
type Recorder struct {
	Chunks    []string
	Thinking  []string
	ToolCalls []provider.ToolCall
	Result    *provider.StreamResult
	Err       error

	// Terminals counts OnComplete and OnError invocations together.
	Terminals int

	// OnChunkHook, when set, runs after a chunk is recorded.
	OnChunkHook func(text string)
}

// Callbacks returns callbacks that record into r.
func (r *Recorder) Callbacks() provider.Callbacks {
	return provider.Callbacks{
		OnChunk: func(text string) {
			r.Chunks = append(r.Chunks, text)
			if r.OnChunkHook != nil {
				r.OnChunkHook(text)
			}
		},
		OnThinking: func(text string) {
			r.Thinking = append(r.Thinking, text)
		},
		OnToolCall: func(call provider.ToolCall) {
			r.ToolCalls = append(r.ToolCalls, call)
		},
		OnComplete: func(result provider.StreamResult) {
			r.Terminals++
			r.Result = &result
		},
		OnError: func(err error) {
			r.Terminals++
			r.Err = err
		},
	}
}

// Text joins the recorded chunks.
func (r *Recorder) Text() string {
	return strings.Join(r.Chunks, "")
}
