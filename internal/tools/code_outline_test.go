//go:build cgo

package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCodeOutlineGoFile(t *testing.T) {
	ws, dir := newFileToolWorkspace(t)
	src := "package demo\n\ntype Greeter struct{}\n\nfunc (g Greeter) Greet() string {\n\treturn \"hi\"\n}\n\nfunc New() Greeter {\n\treturn Greeter{}\n}\n"
	if err := os.WriteFile(filepath.Join(dir, "demo.go"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewCodeOutlineTool(ws).Execute(context.Background(), map[string]any{"path": "demo.go"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "demo.go (go)") {
		t.Errorf("missing header:\n%s", got)
	}
	for _, want := range []string{"type Greeter", "func (g Greeter) Greet() string", "func New() Greeter"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestCodeOutlineLanguageOverride(t *testing.T) {
	ws, dir := newFileToolWorkspace(t)
	if err := os.WriteFile(filepath.Join(dir, "script"), []byte("def run():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewCodeOutlineTool(ws).Execute(context.Background(), map[string]any{
		"path":     "script",
		"language": "python",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "def run():") {
		t.Errorf("missing symbol:\n%s", got)
	}
}

func TestCodeOutlineUndetectableLanguage(t *testing.T) {
	ws, dir := newFileToolWorkspace(t)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewCodeOutlineTool(ws).Execute(context.Background(), map[string]any{"path": "notes.txt"})
	if err == nil || !strings.Contains(err.Error(), "cannot detect language") {
		t.Errorf("err = %v", err)
	}
}

func TestCodeOutlineMissingFile(t *testing.T) {
	ws, _ := newFileToolWorkspace(t)
	_, err := NewCodeOutlineTool(ws).Execute(context.Background(), map[string]any{"path": "gone.go"})
	if err == nil || !strings.Contains(err.Error(), "file not found") {
		t.Errorf("err = %v", err)
	}
}
