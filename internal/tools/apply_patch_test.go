package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const numbersFile = "0\n1\n2\n3\n4\n5\n6\n7"

func TestApplyPatchInsertsLines(t *testing.T) {
	ws, root := newFileToolWorkspace(t)
	if err := os.WriteFile(filepath.Join(root, "numbers.txt"), []byte(numbersFile), 0o644); err != nil {
		t.Fatal(err)
	}

	patch := `--- a/numbers.txt
+++ b/numbers.txt
@@ -3,6 +3,9 @@
 2
 3
 4
+A
+B
+C
 5
 6
 7
`
	got, err := NewApplyPatchTool(ws).Execute(context.Background(), map[string]any{
		"path": "numbers.txt",
		"diff": patch,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "applied 1 hunk(s)") {
		t.Errorf("result = %q", got)
	}

	data, _ := os.ReadFile(filepath.Join(root, "numbers.txt"))
	want := "0\n1\n2\n3\n4\nA\nB\nC\n5\n6\n7"
	if string(data) != want {
		t.Errorf("patched content = %q, want %q", data, want)
	}
}

func TestApplyPatchAcceptsBareHunks(t *testing.T) {
	ws, root := newFileToolWorkspace(t)
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("one\ntwo\nthree"), 0o644); err != nil {
		t.Fatal(err)
	}

	patch := `@@ -1,3 +1,3 @@
 one
-two
+TWO
 three
`
	_, err := NewApplyPatchTool(ws).Execute(context.Background(), map[string]any{
		"path": "f.txt",
		"diff": patch,
	})
	if err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(filepath.Join(root, "f.txt"))
	if string(data) != "one\nTWO\nthree" {
		t.Errorf("patched content = %q", data)
	}
}

func TestApplyPatchMissingFile(t *testing.T) {
	ws, _ := newFileToolWorkspace(t)
	_, err := NewApplyPatchTool(ws).Execute(context.Background(), map[string]any{
		"path": "ghost.txt",
		"diff": "@@ -1 +1 @@\n-a\n+b\n",
	})
	if err == nil || !strings.Contains(err.Error(), "write_file instead") {
		t.Errorf("err = %v", err)
	}
}

func TestApplyPatchRejectsGarbage(t *testing.T) {
	ws, root := newFileToolWorkspace(t)
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewApplyPatchTool(ws).Execute(context.Background(), map[string]any{
		"path": "f.txt",
		"diff": "this is not a diff at all",
	})
	if err == nil {
		t.Fatal("garbage diff succeeded")
	}
}
