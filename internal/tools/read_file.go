package tools

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// maxReadLines caps how many lines a single read may return.
const maxReadLines = 2000

// ReadFileTool reads workspace files, whole or by line range.
type ReadFileTool struct {
	ws *Workspace
}

func NewReadFileTool(ws *Workspace) *ReadFileTool {
	return &ReadFileTool{ws: ws}
}

func (t *ReadFileTool) Spec() ToolSpec {
	return ToolSpec{
		Name: ToolReadFile,
		Params: []Param{
			{Name: "path", Required: true},
			{Name: "from_line"},
			{Name: "to_line"},
		},
		Description: "Read a file from the workspace. Reads the entire file, or a specific range when from_line and to_line are given (1-indexed, at most 2000 lines per read).",
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path, err := t.ws.Resolve(GetStringParam(args, "path", ""))
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", GetStringParam(args, "path", ""))
		}
		return "", fmt.Errorf("read file: %w", err)
	}

	content := string(data)
	fromLine := GetIntParam(args, "from_line", 0)
	toLine := GetIntParam(args, "to_line", 0)

	if fromLine > 0 && toLine > 0 {
		if toLine < fromLine {
			return "", fmt.Errorf("to_line %d precedes from_line %d", toLine, fromLine)
		}
		if toLine-fromLine+1 > maxReadLines {
			return "", fmt.Errorf("cannot read more than %d lines at once", maxReadLines)
		}
		lines := strings.Split(content, "\n")
		if fromLine > len(lines) {
			return "", fmt.Errorf("from_line %d exceeds file length (%d lines)", fromLine, len(lines))
		}
		if toLine > len(lines) {
			toLine = len(lines)
		}
		return strings.Join(lines[fromLine-1:toLine], "\n"), nil
	}

	lines := strings.Split(content, "\n")
	if len(lines) > maxReadLines {
		content = strings.Join(lines[:maxReadLines], "\n")
		content += fmt.Sprintf("\n\n[file truncated: %d total lines, showing first %d; use from_line and to_line to read more]",
			len(lines), maxReadLines)
	}
	return content, nil
}
