package tools

import (
	"bufio"
	"context"
	"os"
	"regexp"
)

const defaultMaxMatches = 100

// GrepInput defines the input for the grep tool.
type GrepInput struct {
	Pattern    string `json:"pattern" jsonschema:"required,description=Regular expression pattern to search for"`
	Path       string `json:"path,omitempty" jsonschema:"description=File or directory to search in (default: current directory)"`
	Glob       string `json:"glob,omitempty" jsonschema:"description=File pattern filter (e.g. **/*.go)"`
	MaxMatches int    `json:"max_matches,omitempty" jsonschema:"description=Maximum number of matches to return (default: 100)"`
}

// GrepOutput defines the output of the grep tool.
type GrepOutput struct {
	Matches []GrepMatch `json:"matches"`
	Count   int         `json:"count"`
}

// GrepMatch is a single matching line.
type GrepMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// MustGrep returns the grep tool.
func MustGrep() *TypedTool[GrepInput, GrepOutput] {
	return MustNew("grep",
		"Search for a regular expression pattern in files. Returns matching lines with file and line number.",
		grepFiles)
}

func grepFiles(ctx context.Context, input GrepInput) (GrepOutput, error) {
	re, err := regexp.Compile(input.Pattern)
	if err != nil {
		return GrepOutput{}, err
	}

	base := input.Path
	if base == "" {
		base = "."
	}
	maxMatches := input.MaxMatches
	if maxMatches <= 0 {
		maxMatches = defaultMaxMatches
	}

	info, err := os.Stat(base)
	if err != nil {
		return GrepOutput{}, err
	}

	files := []string{base}
	if info.IsDir() {
		pattern := input.Glob
		if pattern == "" {
			pattern = "**/*"
		}
		paths, err := glob(base, pattern)
		if err != nil {
			return GrepOutput{}, err
		}
		files = files[:0]
		for _, p := range paths {
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				files = append(files, p)
			}
		}
	}

	matches := []GrepMatch{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return GrepOutput{}, err
		}
		if len(matches) >= maxMatches {
			break
		}
		found, err := searchFile(path, re, maxMatches-len(matches))
		if err != nil {
			// unreadable files are skipped
			continue
		}
		matches = append(matches, found...)
	}

	return GrepOutput{Matches: matches, Count: len(matches)}, nil
}

func searchFile(path string, re *regexp.Regexp, limit int) ([]GrepMatch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var matches []GrepMatch
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		matches = append(matches, GrepMatch{File: path, Line: lineNum, Content: line})
		if len(matches) >= limit {
			break
		}
	}
	return matches, scanner.Err()
}
