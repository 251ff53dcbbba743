package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/codefionn/agentwerk/internal/task"
)

type fakeSearcher struct {
	snippets []task.Snippet
	err      error
	gotQuery string
	gotLimit int
}

func (f *fakeSearcher) SearchSimilar(problem string, limit int) ([]task.Snippet, error) {
	f.gotQuery = problem
	f.gotLimit = limit
	return f.snippets, f.err
}

func TestMemorySearchFormatsSnippets(t *testing.T) {
	store := &fakeSearcher{snippets: []task.Snippet{
		{Problem: "tests fail with missing module", Solution: "run go mod tidy", Category: "build"},
		{Problem: "nil map write panic", Solution: "initialize the map with make"},
	}}

	got, err := NewMemorySearchTool(store).Execute(context.Background(), map[string]any{
		"query": "module errors",
		"limit": float64(3),
	})
	if err != nil {
		t.Fatal(err)
	}
	if store.gotQuery != "module errors" || store.gotLimit != 3 {
		t.Errorf("store called with (%q, %d)", store.gotQuery, store.gotLimit)
	}
	for _, want := range []string{
		"1. tests fail with missing module",
		"run go mod tidy",
		"category: build",
		"2. nil map write panic",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestMemorySearchNoMatches(t *testing.T) {
	got, err := NewMemorySearchTool(&fakeSearcher{}).Execute(context.Background(), map[string]any{"query": "anything"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "no stored solutions match: anything" {
		t.Errorf("got %q", got)
	}
}

func TestMemorySearchRequiresQuery(t *testing.T) {
	_, err := NewMemorySearchTool(&fakeSearcher{}).Execute(context.Background(), map[string]any{})
	if err == nil {
		t.Fatal("missing query succeeded")
	}
}

func TestMemorySearchDefaultLimit(t *testing.T) {
	store := &fakeSearcher{}
	if _, err := NewMemorySearchTool(store).Execute(context.Background(), map[string]any{"query": "q"}); err != nil {
		t.Fatal(err)
	}
	if store.gotLimit != 5 {
		t.Errorf("default limit = %d", store.gotLimit)
	}
}
