//go:build cgo

package syntax

import (
	"fmt"
	"strings"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_bash "github.com/tree-sitter/tree-sitter-bash/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Outliner parses source files and collects their declarations.
type Outliner struct {
	languages map[string]unsafe.Pointer
}

// NewOutliner builds an outliner with all bundled grammars.
func NewOutliner() *Outliner {
	return &Outliner{
		languages: map[string]unsafe.Pointer{
			"go":         tree_sitter_go.Language(),
			"python":     tree_sitter_python.Language(),
			"typescript": tree_sitter_typescript.LanguageTypescript(),
			// The TypeScript grammar parses plain JavaScript too.
			"javascript": tree_sitter_typescript.LanguageTypescript(),
			"tsx":        tree_sitter_typescript.LanguageTSX(),
			"jsx":        tree_sitter_typescript.LanguageTSX(),
			"bash":       tree_sitter_bash.Language(),
		},
	}
}

// Supports reports whether a grammar exists for language.
func (o *Outliner) Supports(language string) bool {
	_, ok := o.languages[normalizeLanguage(language)]
	return ok
}

// Outline parses code and returns its declarations in source order.
func (o *Outliner) Outline(code, language string) (*Outline, error) {
	language = normalizeLanguage(language)

	if strings.TrimSpace(code) == "" {
		return &Outline{Language: language}, nil
	}

	lang, ok := o.languages[language]
	if !ok {
		return nil, fmt.Errorf("language not supported for outline: %s (supported: %s)",
			language, strings.Join(SupportedLanguages(), ", "))
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(tree_sitter.NewLanguage(lang)); err != nil {
		return nil, fmt.Errorf("failed to set parser language: %w", err)
	}

	source := []byte(code)
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s source", language)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("failed to parse %s source", language)
	}

	var symbols []Symbol
	o.walk(root, source, 0, &symbols)

	return &Outline{
		Language:  language,
		Symbols:   symbols,
		HasErrors: root.HasError(),
	}, nil
}

// symbolKinds maps grammar node kinds to outline labels. Node kinds are
// distinct enough across the bundled grammars to share one table.
var symbolKinds = map[string]string{
	"function_declaration":           "func",
	"generator_function_declaration": "func",
	"method_declaration":             "method",
	"type_spec":                      "type",
	"type_alias":                     "type",
	"function_definition":            "func",
	"class_definition":               "class",
	"class_declaration":              "class",
	"abstract_class_declaration":     "class",
	"interface_declaration":          "interface",
	"enum_declaration":               "enum",
	"type_alias_declaration":         "type",
	"method_definition":              "method",
}

func (o *Outliner) walk(node *tree_sitter.Node, source []byte, depth int, out *[]Symbol) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}

		kind := child.Kind()
		label, ok := symbolKinds[kind]
		if !ok {
			if kind == "lexical_declaration" || kind == "variable_declaration" {
				o.collectFunctionValues(child, source, depth, out)
				continue
			}
			// Containers like export statements, decorated definitions and
			// grouped type declarations hold declarations one level down.
			o.walk(child, source, depth, out)
			continue
		}

		name := nodeName(child, source)
		if name == "" {
			o.walk(child, source, depth, out)
			continue
		}

		sig := signature(child, source)
		if label == "type" && !strings.HasPrefix(sig, "type") {
			sig = "type " + sig
		}

		*out = append(*out, Symbol{
			Kind:      label,
			Name:      name,
			Line:      int(child.StartPosition().Row) + 1,
			Depth:     depth,
			Signature: sig,
		})

		if body := child.ChildByFieldName("body"); body != nil {
			o.walk(body, source, depth+1, out)
		}
	}
}

// collectFunctionValues emits const/let/var declarators whose value is a
// function, the usual shape of JavaScript and TypeScript handlers.
func (o *Outliner) collectFunctionValues(node *tree_sitter.Node, source []byte, depth int, out *[]Symbol) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		decl := node.NamedChild(i)
		if decl == nil || decl.Kind() != "variable_declarator" {
			continue
		}

		value := decl.ChildByFieldName("value")
		if value == nil {
			continue
		}
		switch value.Kind() {
		case "arrow_function", "function_expression", "function":
		default:
			continue
		}

		name := nodeName(decl, source)
		if name == "" {
			continue
		}

		*out = append(*out, Symbol{
			Kind:      "func",
			Name:      name,
			Line:      int(decl.StartPosition().Row) + 1,
			Depth:     depth,
			Signature: signature(node, source),
		})
	}
}

func nodeName(node *tree_sitter.Node, source []byte) string {
	name := node.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	return string(source[name.StartByte():name.EndByte()])
}

// signature is the trimmed first line of the node text, capped for
// single-line declarations that drag their body along.
func signature(node *tree_sitter.Node, source []byte) string {
	text := string(source[node.StartByte():node.EndByte()])
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimRight(strings.TrimSpace(text), " {")
	if len(text) > 100 {
		text = text[:100] + "..."
	}
	return text
}
