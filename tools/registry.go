package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/i2y/llmstream/provider"
)

// FileTools returns the read-only file tools: read, glob and grep.
func FileTools() []Tool {
	return []Tool{
		MustRead(),
		MustGlob(),
		MustGrep(),
	}
}

// Registry dispatches tool calls by name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	r.Register(tools...)
	return r
}

// Register adds tools. A tool with an existing name replaces the old one and
// keeps its position.
func (r *Registry) Register(tools ...Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		name := t.Definition().Name
		if _, ok := r.tools[name]; !ok {
			r.order = append(r.order, name)
		}
		r.tools[name] = t
	}
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the tool definitions in registration order, ready for
// StreamOptions.Tools.
func (r *Registry) Definitions() []provider.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]provider.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Call executes one tool call. Unknown tools and tool failures become
// error results so the model can see them.
func (r *Registry) Call(ctx context.Context, call provider.ToolCall) provider.ToolResult {
	tool, ok := r.Get(call.Name)
	if !ok {
		return errorResult(call.ID, fmt.Errorf("unknown tool %q", call.Name))
	}

	args, err := json.Marshal(call.Input)
	if err != nil {
		return errorResult(call.ID, fmt.Errorf("encoding arguments: %w", err))
	}

	out, err := tool.Execute(ctx, args)
	if err != nil {
		return errorResult(call.ID, err)
	}

	content, ok := out.(string)
	if !ok {
		b, err := json.Marshal(out)
		if err != nil {
			return errorResult(call.ID, fmt.Errorf("encoding result: %w", err))
		}
		content = string(b)
	}
	return provider.ToolResult{ToolUseID: call.ID, Content: content}
}

// CallAll executes calls in order.
func (r *Registry) CallAll(ctx context.Context, calls []provider.ToolCall) []provider.ToolResult {
	results := make([]provider.ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, r.Call(ctx, call))
	}
	return results
}

func errorResult(id string, err error) provider.ToolResult {
	return provider.ToolResult{ToolUseID: id, Content: "Error: " + err.Error(), IsError: true}
}
