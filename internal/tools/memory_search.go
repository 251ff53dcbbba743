package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/codefionn/agentwerk/internal/task"
)

// SolutionSearcher recalls stored fixes for problems similar to a query.
type SolutionSearcher interface {
	SearchSimilar(problem string, limit int) ([]task.Snippet, error)
}

// MemorySearchTool lets the model query the solution store directly instead
// of relying on the snippets recalled into the prompt.
type MemorySearchTool struct {
	store SolutionSearcher
}

func NewMemorySearchTool(store SolutionSearcher) *MemorySearchTool {
	return &MemorySearchTool{store: store}
}

func (t *MemorySearchTool) Spec() ToolSpec {
	return ToolSpec{
		Name: ToolMemorySearch,
		Params: []Param{
			{Name: "query", Required: true},
			{Name: "limit"},
		},
		Description: "Search previously stored solutions for problems similar to the query. Optional limit (default 5).",
	}
}

func (t *MemorySearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query := strings.TrimSpace(GetStringParam(args, "query", ""))
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	limit := GetIntParam(args, "limit", 5)
	if limit <= 0 {
		limit = 5
	}

	snippets, err := t.store.SearchSimilar(query, limit)
	if err != nil {
		return "", fmt.Errorf("memory search: %w", err)
	}
	if len(snippets) == 0 {
		return "no stored solutions match: " + query, nil
	}

	var sb strings.Builder
	for i, s := range snippets {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, s.Problem, s.Solution)
		if s.Category != "" {
			fmt.Fprintf(&sb, "   category: %s\n", s.Category)
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
