package tools

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// GlobInput defines the input for the glob tool.
type GlobInput struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Glob pattern (e.g. **/*.go for all Go files)"`
	Path    string `json:"path,omitempty" jsonschema:"description=Base directory to search from (default: current directory)"`
}

// GlobOutput defines the output of the glob tool.
type GlobOutput struct {
	Files []string `json:"files"`
	Count int      `json:"count"`
}

// MustGlob returns the glob tool.
func MustGlob() *TypedTool[GlobInput, GlobOutput] {
	return MustNew("glob", "Find files matching a glob pattern. Supports ** for recursive matching.", globFiles)
}

func globFiles(_ context.Context, input GlobInput) (GlobOutput, error) {
	matches, err := glob(input.Path, input.Pattern)
	if err != nil {
		return GlobOutput{}, err
	}
	return GlobOutput{Files: matches, Count: len(matches)}, nil
}

// glob matches pattern under base and returns paths joined with base.
func glob(base, pattern string) ([]string, error) {
	if base == "" {
		base = "."
	}
	base = filepath.Clean(base)

	matches, err := doublestar.Glob(os.DirFS(base), pattern)
	if err != nil {
		return nil, err
	}
	if base != "." {
		for i, m := range matches {
			matches[i] = filepath.Join(base, m)
		}
	}
	return matches, nil
}
