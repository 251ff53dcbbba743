package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/codefionn/agentwerk/internal/syntax"
)

// CodeOutlineTool lists the declarations of a workspace source file so the
// model can navigate code without reading whole files.
type CodeOutlineTool struct {
	ws       *Workspace
	outliner *syntax.Outliner
}

func NewCodeOutlineTool(ws *Workspace) *CodeOutlineTool {
	return &CodeOutlineTool{ws: ws, outliner: syntax.NewOutliner()}
}

func (t *CodeOutlineTool) Spec() ToolSpec {
	return ToolSpec{
		Name: ToolCodeOutline,
		Params: []Param{
			{Name: "path", Required: true},
			{Name: "language"},
		},
		Description: "Outline the functions, methods and types of a source file with line numbers. Language is detected from the file extension; pass language to override.",
	}
}

func (t *CodeOutlineTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	given := GetStringParam(args, "path", "")
	path, err := t.ws.Resolve(given)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", given)
		}
		return "", fmt.Errorf("read file: %w", err)
	}

	language := GetStringParam(args, "language", "")
	if language == "" {
		language = syntax.DetectLanguage(path)
	}
	if language == "" {
		return "", fmt.Errorf("cannot detect language of %s; pass the language parameter", given)
	}

	outline, err := t.outliner.Outline(string(data), language)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s (%s)\n%s", given, outline.Language, outline.Render()), nil
}
