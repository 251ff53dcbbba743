//go:build cgo

package syntax

import (
	"strings"
	"testing"
)

type symbolWant struct {
	kind  string
	name  string
	line  int
	depth int
}

func checkSymbols(t *testing.T, got []Symbol, want []symbolWant) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d symbols, want %d:\n%+v", len(got), len(want), got)
	}
	for i, w := range want {
		s := got[i]
		if s.Kind != w.kind || s.Name != w.name || s.Line != w.line || s.Depth != w.depth {
			t.Errorf("symbol %d = {%s %s line=%d depth=%d}, want {%s %s line=%d depth=%d}",
				i, s.Kind, s.Name, s.Line, s.Depth, w.kind, w.name, w.line, w.depth)
		}
	}
}

func TestOutlineGo(t *testing.T) {
	src := `package store

type Store struct {
	db string
}

type Saver interface {
	Save() error
}

func New(path string) (*Store, error) {
	return nil, nil
}

func (s *Store) Save() error {
	return nil
}
`
	got, err := NewOutliner().Outline(src, "go")
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	checkSymbols(t, got.Symbols, []symbolWant{
		{"type", "Store", 3, 0},
		{"type", "Saver", 7, 0},
		{"func", "New", 11, 0},
		{"method", "Save", 15, 0},
	})
	if got.Symbols[0].Signature != "type Store struct" {
		t.Errorf("struct signature = %q", got.Symbols[0].Signature)
	}
	if got.Symbols[3].Signature != "func (s *Store) Save() error" {
		t.Errorf("method signature = %q", got.Symbols[3].Signature)
	}
	if got.HasErrors {
		t.Error("HasErrors = true for valid source")
	}
}

func TestOutlinePython(t *testing.T) {
	src := `class Greeter:
    def __init__(self, name):
        self.name = name

    def greet(self):
        return "hi " + self.name

@lru_cache
def main():
    pass
`
	got, err := NewOutliner().Outline(src, "python")
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	checkSymbols(t, got.Symbols, []symbolWant{
		{"class", "Greeter", 1, 0},
		{"func", "__init__", 2, 1},
		{"func", "greet", 5, 1},
		{"func", "main", 9, 0},
	})
}

func TestOutlineTypeScript(t *testing.T) {
	src := `export interface User {
  id: string;
}

export class Service {
  fetch(id: string): User {
    return null;
  }
}

export function build(): Service {
  return new Service();
}

const handler = async (req: Request) => {
  return null;
};

enum Color { Red, Green }

type Alias = string;
`
	got, err := NewOutliner().Outline(src, "typescript")
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	checkSymbols(t, got.Symbols, []symbolWant{
		{"interface", "User", 1, 0},
		{"class", "Service", 5, 0},
		{"method", "fetch", 6, 1},
		{"func", "build", 11, 0},
		{"func", "handler", 15, 0},
		{"enum", "Color", 19, 0},
		{"type", "Alias", 21, 0},
	})
	if sig := got.Symbols[4].Signature; !strings.HasPrefix(sig, "const handler") {
		t.Errorf("arrow function signature = %q", sig)
	}
}

func TestOutlineBash(t *testing.T) {
	src := `#!/usr/bin/env bash

greet() {
  echo "hi"
}

function cleanup {
  rm -f /tmp/thing
}
`
	got, err := NewOutliner().Outline(src, "bash")
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	checkSymbols(t, got.Symbols, []symbolWant{
		{"func", "greet", 3, 0},
		{"func", "cleanup", 7, 0},
	})
}

func TestOutlineFlagsSyntaxErrors(t *testing.T) {
	got, err := NewOutliner().Outline("package x\n\nfunc broken( {\n", "go")
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	if !got.HasErrors {
		t.Error("HasErrors = false for broken source")
	}
}

func TestOutlineUnsupportedLanguage(t *testing.T) {
	_, err := NewOutliner().Outline("puts 1", "ruby")
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Errorf("err = %v, want unsupported language error", err)
	}
}

func TestOutlineEmptySource(t *testing.T) {
	got, err := NewOutliner().Outline("   \n", "go")
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	if len(got.Symbols) != 0 {
		t.Errorf("Symbols = %+v, want none", got.Symbols)
	}
}

func TestSupportsAliases(t *testing.T) {
	o := NewOutliner()
	for _, lang := range []string{"go", "golang", "python", "py", "TS ", "sh", "shell", "jsx"} {
		if !o.Supports(lang) {
			t.Errorf("Supports(%q) = false", lang)
		}
	}
	if o.Supports("ruby") {
		t.Error(`Supports("ruby") = true`)
	}
}
