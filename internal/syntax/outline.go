// Package syntax extracts source outlines with tree-sitter. An outline is
// the flat list of top-level declarations (functions, methods, types,
// classes) with line numbers, indented by nesting depth. Grammars require a
// cgo build; without cgo every language is reported as unsupported.
package syntax

import (
	"fmt"
	"strings"
)

// Symbol is one declaration found in a source file.
type Symbol struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Line      int    `json:"line"`
	Depth     int    `json:"depth"`
	Signature string `json:"signature"`
}

// Outline is the result of parsing one source file.
type Outline struct {
	Language  string   `json:"language"`
	Symbols   []Symbol `json:"symbols"`
	HasErrors bool     `json:"has_errors"`
}

// Render formats the outline as line-numbered text for tool output.
func (o *Outline) Render() string {
	if len(o.Symbols) == 0 {
		return "no symbols found"
	}

	lines := make([]string, 0, len(o.Symbols)+1)
	for _, s := range o.Symbols {
		indent := strings.Repeat("  ", s.Depth)
		lines = append(lines, fmt.Sprintf("%5d  %s%s", s.Line, indent, s.Signature))
	}
	if o.HasErrors {
		lines = append(lines, "", "note: source has syntax errors, outline may be incomplete")
	}
	return strings.Join(lines, "\n")
}

// SupportedLanguages lists the grammars the outliner ships with.
func SupportedLanguages() []string {
	return []string{"go", "python", "typescript", "tsx", "javascript", "jsx", "bash"}
}
