package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileTool creates or overwrites workspace files, creating parent
// directories as needed.
type WriteFileTool struct {
	ws *Workspace
}

func NewWriteFileTool(ws *Workspace) *WriteFileTool {
	return &WriteFileTool{ws: ws}
}

func (t *WriteFileTool) Spec() ToolSpec {
	return ToolSpec{
		Name: ToolWriteFile,
		Params: []Param{
			{Name: "path", Required: true},
			{Name: "content", Required: true},
		},
		Description: "Write content to a workspace file, replacing it if it exists. Parent directories are created automatically.",
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path, err := t.ws.Resolve(GetStringParam(args, "path", ""))
	if err != nil {
		return "", err
	}

	content, ok := args["content"].(string)
	if !ok {
		return "", fmt.Errorf("content is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return fmt.Sprintf("wrote %d bytes to %s", len(content), GetStringParam(args, "path", "")), nil
}
