// Package testutil reads the template fixtures under testdata.
package testutil

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TestInput represents a parsed fixture input file.
type TestInput struct {
	Context   map[string]any    `yaml:"context"`   // template variables
	Templates map[string]string `yaml:"templates"` // extra templates served by the loader
	Settings  *TestSettings     `yaml:"settings"`  // optional engine settings
	Template  string            `yaml:"-"`         // template source after ---
}

// TestSettings represents the settings block of a fixture header. Unset
// fields keep the engine defaults.
type TestSettings struct {
	StrictVariables bool   `yaml:"strict_variables"`
	AutoEscaping    *bool  `yaml:"auto_escaping"`
	NewLineTrimming *bool  `yaml:"new_line_trimming"`
	MaxRenderedSize *int   `yaml:"max_rendered_size"`
	Locale          string `yaml:"locale"`
	Parallel        bool   `yaml:"parallel"`
}

// ParseTestInputFile reads and parses a fixture input file.
func ParseTestInputFile(path string) (*TestInput, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTestInput(string(content))
}

// ParseTestInput parses fixture input content.
// Format: YAML header\n---\ntemplate
//
// The template keeps its text exactly, except for the final newline of
// the file.
func ParseTestInput(content string) (*TestInput, error) {
	input := &TestInput{}

	parts := strings.SplitN(content, "\n---\n", 2)
	if len(parts) == 1 {
		input.Template = strings.TrimSuffix(strings.TrimPrefix(content, "---\n"), "\n")
		return input, nil
	}

	if strings.TrimSpace(parts[0]) != "" {
		if err := yaml.Unmarshal([]byte(parts[0]), input); err != nil {
			return nil, err
		}
	}
	input.Template = strings.TrimSuffix(parts[1], "\n")
	if input.Context == nil {
		input.Context = make(map[string]any)
	}
	return input, nil
}

// GlobTestInputs finds all fixture input files matching a pattern.
func GlobTestInputs(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

// TestResult represents the result of running a single fixture.
type TestResult struct {
	Name     string
	Passed   bool
	Skipped  bool
	Error    error
	Expected string
	Actual   string
}

// Diff returns a simple diff between expected and actual output.
func (r *TestResult) Diff() string {
	if r.Expected == r.Actual {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("=== Expected ===\n")
	sb.WriteString(r.Expected)
	if !strings.HasSuffix(r.Expected, "\n") {
		sb.WriteString("⏎\n") // Show missing newline
	}
	sb.WriteString("=== Actual ===\n")
	sb.WriteString(r.Actual)
	if !strings.HasSuffix(r.Actual, "\n") {
		sb.WriteString("⏎\n")
	}
	sb.WriteString("=== End ===\n")
	return sb.String()
}
