package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// ApplyPatchTool updates an existing workspace file by applying a unified
// diff. Models rarely get hunk offsets exactly right, so hunks are applied
// by their declared positions without strict context verification.
type ApplyPatchTool struct {
	ws *Workspace
}

func NewApplyPatchTool(ws *Workspace) *ApplyPatchTool {
	return &ApplyPatchTool{ws: ws}
}

func (t *ApplyPatchTool) Spec() ToolSpec {
	return ToolSpec{
		Name: ToolApplyPatch,
		Params: []Param{
			{Name: "path", Required: true},
			{Name: "diff", Required: true},
		},
		Description: "Apply a unified diff to an existing workspace file. The diff needs standard @@ hunk headers; file headers (---/+++) are optional.",
	}
}

func (t *ApplyPatchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	given := GetStringParam(args, "path", "")
	path, err := t.ws.Resolve(given)
	if err != nil {
		return "", err
	}

	patch, ok := args["diff"].(string)
	if !ok || strings.TrimSpace(patch) == "" {
		return "", fmt.Errorf("diff is required")
	}

	current, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("cannot patch non-existent file %s (use write_file instead)", given)
		}
		return "", fmt.Errorf("read file: %w", err)
	}

	updated, hunks, err := applyUnifiedDiff(string(current), patch)
	if err != nil {
		return "", fmt.Errorf("apply diff: %w", err)
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return fmt.Sprintf("applied %d hunk(s) to %s (%d bytes)", hunks, given, len(updated)), nil
}

// applyUnifiedDiff rebuilds content by walking the diff's hunks in order.
// Context and deletion lines advance the original cursor; additions emit.
func applyUnifiedDiff(original, patch string) (string, int, error) {
	// ParseFileDiff insists on file headers; synthesize them when the model
	// sent bare hunks.
	if !strings.HasPrefix(patch, "---") && !strings.HasPrefix(patch, "diff ") {
		patch = "--- a/file\n+++ b/file\n" + patch
	}

	fileDiff, err := diff.ParseFileDiff([]byte(patch))
	if err != nil {
		return "", 0, fmt.Errorf("parse unified diff: %w", err)
	}
	if len(fileDiff.Hunks) == 0 {
		return "", 0, fmt.Errorf("diff contains no hunks")
	}

	lines := strings.Split(original, "\n")
	result := make([]string, 0, len(lines))
	cursor := 0

	for _, hunk := range fileDiff.Hunks {
		start := int(hunk.OrigStartLine) - 1
		if start < 0 {
			start = 0
		}
		for cursor < start && cursor < len(lines) {
			result = append(result, lines[cursor])
			cursor++
		}

		for _, line := range strings.Split(string(hunk.Body), "\n") {
			if line == "" {
				continue
			}
			switch line[0] {
			case ' ':
				if cursor < len(lines) {
					result = append(result, lines[cursor])
					cursor++
				}
			case '-':
				if cursor < len(lines) {
					cursor++
				}
			case '+':
				result = append(result, line[1:])
			}
		}
	}

	for cursor < len(lines) {
		result = append(result, lines[cursor])
		cursor++
	}

	return strings.Join(result, "\n"), len(fileDiff.Hunks), nil
}
