// Package tools provides local tools that an agent loop can offer to a
// provider and execute when the model calls them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/i2y/llmstream/provider"
	"github.com/i2y/llmstream/schema"
)

// Tool is an executable tool with a vendor-neutral definition.
type Tool interface {
	// Definition returns the name, description and input schema sent to the
	// provider.
	Definition() provider.ToolDefinition

	// Execute runs the tool with JSON arguments.
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// TypedTool is a Tool whose input schema is generated from In.
type TypedTool[In any, Out any] struct {
	def provider.ToolDefinition
	fn  func(ctx context.Context, in In) (Out, error)
}

// New creates a tool from a function. The input schema is reflected from In.
//
// Example:
//
//	type LsInput struct {
//	    Dir string `json:"dir" jsonschema:"required,description=Directory to list"`
//	}
//
//	ls, err := tools.New("ls", "List a directory", func(ctx context.Context, in LsInput) ([]string, error) {
//	    ...
//	})
func New[In any, Out any](name, description string, fn func(ctx context.Context, in In) (Out, error)) (*TypedTool[In, Out], error) {
	def, err := schema.ToolFor[In](name, description)
	if err != nil {
		return nil, err
	}
	return &TypedTool[In, Out]{def: def, fn: fn}, nil
}

// MustNew is like New but panics on error.
func MustNew[In any, Out any](name, description string, fn func(ctx context.Context, in In) (Out, error)) *TypedTool[In, Out] {
	t, err := New(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

// Definition implements Tool.
func (t *TypedTool[In, Out]) Definition() provider.ToolDefinition {
	return t.def
}

// Execute implements Tool.
func (t *TypedTool[In, Out]) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var input In
	if len(args) > 0 {
		if err := json.Unmarshal(args, &input); err != nil {
			return nil, fmt.Errorf("decoding %s arguments: %w", t.def.Name, err)
		}
	}
	return t.fn(ctx, input)
}

// TypedCall calls the tool without JSON round-tripping.
func (t *TypedTool[In, Out]) TypedCall(ctx context.Context, input In) (Out, error) {
	return t.fn(ctx, input)
}
