//go:build !cgo

package syntax

import "fmt"

// Outliner parses source files and collects their declarations. Without cgo
// the grammars are unavailable and every language is unsupported.
type Outliner struct{}

// NewOutliner builds an outliner. Grammars need cgo; this one supports
// nothing.
func NewOutliner() *Outliner {
	return &Outliner{}
}

// Supports always reports false without cgo.
func (o *Outliner) Supports(language string) bool {
	return false
}

// Outline always fails without cgo.
func (o *Outliner) Outline(code, language string) (*Outline, error) {
	return nil, fmt.Errorf("source outlines require a cgo build")
}
