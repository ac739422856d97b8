package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test types modelled on typical coding-agent tool inputs.
type listDirInput struct {
	Dir       string `json:"dir"`
	Recursive bool   `json:"recursive"`
}

type readFileInput struct {
	Path   string `json:"path" jsonschema:"required,description=File path relative to the repository root"`
	Offset int    `json:"offset" jsonschema:"required"`
	Limit  int    `json:"limit,omitempty"`
}

type editInput struct {
	Path  string       `json:"path" jsonschema:"required"`
	Range listDirInput `json:"range"`
}

type grepInput struct {
	Patterns []string          `json:"patterns"`
	Env      map[string]string `json:"env"`
	Glob     *string           `json:"glob,omitempty"`
}

func parse(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return parsed
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name       string
		generator  func() (json.RawMessage, error)
		checkProps []string
	}{
		{name: "flat struct", generator: Generate[listDirInput], checkProps: []string{"dir", "recursive"}},
		{name: "required fields", generator: Generate[readFileInput], checkProps: []string{"path", "offset", "limit"}},
		{name: "nested struct", generator: Generate[editInput], checkProps: []string{"path", "range"}},
		{name: "collections and pointers", generator: Generate[grepInput], checkProps: []string{"patterns", "env", "glob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := tt.generator()
			require.NoError(t, err)
			require.True(t, json.Valid(schema))

			parsed := parse(t, schema)
			assert.Equal(t, "object", parsed["type"])
			assert.NotContains(t, parsed, "$schema")
			assert.NotContains(t, parsed, "$id")

			props, ok := parsed["properties"].(map[string]any)
			require.True(t, ok, "schema should have properties")
			for _, prop := range tt.checkProps {
				assert.Contains(t, props, prop)
			}
		})
	}
}

func TestGenerate_RequiredAndDescription(t *testing.T) {
	parsed := parse(t, MustGenerate[readFileInput]())

	required, ok := parsed["required"].([]any)
	require.True(t, ok, "schema should have required array")
	assert.ElementsMatch(t, []any{"path", "offset"}, required)

	path := parsed["properties"].(map[string]any)["path"].(map[string]any)
	assert.Equal(t, "File path relative to the repository root", path["description"])
}

func TestGenerate_NoReferences(t *testing.T) {
	assert.True(t, Reflector.DoNotReference)

	schema, err := Generate[editInput]()
	require.NoError(t, err)
	assert.NotContains(t, string(schema), "$ref")
	assert.NotContains(t, string(schema), "$defs")
}

func TestToolFor(t *testing.T) {
	def, err := ToolFor[readFileInput]("read_file", "Read a file from the workspace")
	require.NoError(t, err)

	assert.Equal(t, "read_file", def.Name)
	assert.Equal(t, "Read a file from the workspace", def.Description)

	parsed := parse(t, def.InputSchema)
	assert.Equal(t, "object", parsed["type"])
	assert.Contains(t, parsed["properties"], "path")
}

func TestMustToolFor(t *testing.T) {
	assert.NotPanics(t, func() {
		def := MustToolFor[struct{}]("pwd", "Print the working directory")
		assert.Equal(t, "object", parse(t, def.InputSchema)["type"])
	})
}
