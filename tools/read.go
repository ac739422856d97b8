package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// ReadInput defines the input for the read tool.
type ReadInput struct {
	Path   string `json:"path" jsonschema:"required,description=File path to read"`
	Offset int    `json:"offset,omitempty" jsonschema:"description=Line offset to start from (0-based)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Max lines to read (default: 0 = all)"`
}

// ReadOutput defines the output of the read tool.
type ReadOutput struct {
	Content   string `json:"content"`
	Lines     int    `json:"lines"`
	Truncated bool   `json:"truncated"`
}

// MustRead returns the read tool.
func MustRead() *TypedTool[ReadInput, ReadOutput] {
	return MustNew("read", "Read the contents of a file. Supports reading specific line ranges.", readFile)
}

func readFile(ctx context.Context, input ReadInput) (ReadOutput, error) {
	file, err := os.Open(input.Path)
	if err != nil {
		return ReadOutput{}, fmt.Errorf("opening file: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	var lines []string
	lineNum := 0
	truncated := false

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return ReadOutput{}, err
		}
		if lineNum < input.Offset {
			lineNum++
			continue
		}
		if input.Limit > 0 && len(lines) >= input.Limit {
			truncated = true
			break
		}
		lines = append(lines, scanner.Text())
		lineNum++
	}
	if err := scanner.Err(); err != nil {
		return ReadOutput{}, fmt.Errorf("reading file: %w", err)
	}

	return ReadOutput{
		Content:   strings.Join(lines, "\n"),
		Lines:     len(lines),
		Truncated: truncated,
	}, nil
}
