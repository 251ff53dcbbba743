package tools

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ListDirTool lists one directory level of the workspace.
type ListDirTool struct {
	ws *Workspace
}

func NewListDirTool(ws *Workspace) *ListDirTool {
	return &ListDirTool{ws: ws}
}

func (t *ListDirTool) Spec() ToolSpec {
	return ToolSpec{
		Name: ToolListDir,
		Params: []Param{
			{Name: "path"},
		},
		Description: "List the entries of a workspace directory. Defaults to the workspace root; directories are marked with a trailing slash.",
	}
}

func (t *ListDirTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	given := GetStringParam(args, "path", ".")
	if strings.TrimSpace(given) == "" {
		given = "."
	}

	path, err := t.ws.Resolve(given)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory not found: %s", given)
		}
		return "", fmt.Errorf("list directory: %w", err)
	}

	if len(entries) == 0 {
		return "directory is empty", nil
	}

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&sb, "%s/\n", entry.Name())
			continue
		}
		size := int64(0)
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		fmt.Fprintf(&sb, "%s (%d bytes)\n", entry.Name(), size)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
