// Package schema provides JSON Schema generation from Go types, for use as
// tool input schemas.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/i2y/llmstream/provider"
)

// Reflector is configured for tool input schemas.
// DoNotReference inlines all definitions to avoid $ref, and Anonymous keeps
// Go package paths out of the schema.
var Reflector = &jsonschema.Reflector{
	DoNotReference: true,
	Anonymous:      true,
}

// Generate creates a JSON Schema from a Go type.
// The type should be a struct with json and jsonschema tags.
//
// Example:
//
//	type ReadFileInput struct {
//	    Path  string `json:"path" jsonschema:"required,description=File path relative to the repository root"`
//	    Limit int    `json:"limit,omitempty"`
//	}
//
//	schema, err := schema.Generate[ReadFileInput]()
func Generate[T any]() (json.RawMessage, error) {
	var zero T
	s := Reflector.Reflect(&zero)
	// Vendors only need the schema body.
	s.Version = ""
	return json.Marshal(s)
}

// MustGenerate is like Generate but panics on error.
// Useful for package-level schema definitions.
func MustGenerate[T any]() json.RawMessage {
	schema, err := Generate[T]()
	if err != nil {
		panic(err)
	}
	return schema
}

// ToolFor builds a tool definition whose input schema is generated from T.
func ToolFor[T any](name, description string) (provider.ToolDefinition, error) {
	s, err := Generate[T]()
	if err != nil {
		return provider.ToolDefinition{}, fmt.Errorf("generating schema for tool %q: %w", name, err)
	}
	return provider.ToolDefinition{
		Name:        name,
		Description: description,
		InputSchema: s,
	}, nil
}

// MustToolFor is like ToolFor but panics on error.
func MustToolFor[T any](name, description string) provider.ToolDefinition {
	def, err := ToolFor[T](name, description)
	if err != nil {
		panic(err)
	}
	return def
}
