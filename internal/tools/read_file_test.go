package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newFileToolWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	root := t.TempDir()
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatal(err)
	}
	return ws, root
}

func TestReadFileWholeFile(t *testing.T) {
	ws, root := newFileToolWorkspace(t)
	content := "alpha\nbeta\ngamma"
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewReadFileTool(ws).Execute(context.Background(), map[string]any{"path": "f.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if got != content {
		t.Errorf("got %q, want %q", got, content)
	}
}

func TestReadFileLineRange(t *testing.T) {
	ws, root := newFileToolWorkspace(t)
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("1\n2\n3\n4\n5"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewReadFileTool(ws).Execute(context.Background(), map[string]any{
		"path":      "f.txt",
		"from_line": float64(2),
		"to_line":   float64(4),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "2\n3\n4" {
		t.Errorf("got %q", got)
	}
}

func TestReadFileRangeTooLarge(t *testing.T) {
	ws, root := newFileToolWorkspace(t)
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewReadFileTool(ws).Execute(context.Background(), map[string]any{
		"path":      "f.txt",
		"from_line": 1,
		"to_line":   5000,
	})
	if err == nil || !strings.Contains(err.Error(), "2000") {
		t.Errorf("err = %v", err)
	}
}

func TestReadFileTruncatesLongFiles(t *testing.T) {
	ws, root := newFileToolWorkspace(t)
	var sb strings.Builder
	for i := 0; i < 2500; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	if err := os.WriteFile(filepath.Join(root, "big.txt"), []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewReadFileTool(ws).Execute(context.Background(), map[string]any{"path": "big.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "file truncated") {
		t.Error("missing truncation notice")
	}
	if strings.Contains(got, "line 2400") {
		t.Error("content past the cap leaked into output")
	}
}

func TestReadFileMissing(t *testing.T) {
	ws, _ := newFileToolWorkspace(t)
	_, err := NewReadFileTool(ws).Execute(context.Background(), map[string]any{"path": "nope.txt"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}
