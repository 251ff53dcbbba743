package memory

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/codefionn/agentwerk/internal/task"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id string) *task.Run {
	run := &task.Run{
		ID:             id,
		UserInput:      "check the disk usage",
		TaskType:       task.TypeServerOps,
		SelectedModel:  "mistral:7b",
		IterationCount: 2,
		Status:         task.StatusCompleted,
		FinalAnswer:    "disk is 40% full",
		StartedAt:      time.Now().Add(-time.Minute),
		FinishedAt:     time.Now(),
	}
	run.AppendRecord(task.ExecutionRecord{
		ToolName:  "run_command",
		Arguments: map[string]any{"command": "df -h"},
		Result:    "/dev/sda1 40%",
	})
	run.AppendRecord(task.ExecutionRecord{
		ToolName:  "frobnicate",
		Arguments: map[string]any{},
		Error:     `unknown tool "frobnicate" (valid tools: run_command)`,
	})
	return run
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)
	run := sampleRun("run-1")

	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}

	if got.UserInput != run.UserInput {
		t.Errorf("UserInput = %q, want %q", got.UserInput, run.UserInput)
	}
	if got.TaskType != task.TypeServerOps {
		t.Errorf("TaskType = %q, want %q", got.TaskType, task.TypeServerOps)
	}
	if got.Status != task.StatusCompleted {
		t.Errorf("Status = %q, want %q", got.Status, task.StatusCompleted)
	}
	if got.FinalAnswer != run.FinalAnswer {
		t.Errorf("FinalAnswer = %q, want %q", got.FinalAnswer, run.FinalAnswer)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, run.StartedAt)
	}
	if got.FinishedAt.IsZero() {
		t.Errorf("FinishedAt was not persisted")
	}

	if len(got.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(got.Records))
	}
	first := got.Records[0]
	if first.ToolName != "run_command" || first.Result != "/dev/sda1 40%" {
		t.Errorf("first record = %+v", first)
	}
	if first.Arguments["command"] != "df -h" {
		t.Errorf("first record arguments = %#v", first.Arguments)
	}
	second := got.Records[1]
	if !second.IsError() || second.SequenceIndex != 1 {
		t.Errorf("second record = %+v", second)
	}
}

func TestSaveRunReplacesExistingState(t *testing.T) {
	store := newTestStore(t)
	run := sampleRun("run-2")
	run.Status = task.StatusRunning
	run.FinishedAt = time.Time{}

	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun(first) failed: %v", err)
	}

	run.AppendRecord(task.ExecutionRecord{ToolName: "write_file", Result: "ok"})
	run.Status = task.StatusCompleted
	run.FinishedAt = time.Now()

	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun(second) failed: %v", err)
	}

	got, err := store.GetRun("run-2")
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if got.Status != task.StatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if len(got.Records) != 3 {
		t.Errorf("got %d records after resave, want 3", len(got.Records))
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun("missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		run := sampleRun(id)
		run.Records = nil
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", id, err)
		}
	}

	runs, err := store.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if runs[0].ID != "new" || runs[2].ID != "old" {
		t.Errorf("run order = [%s %s %s], want [new mid old]", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	limited, err := store.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns(2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d runs with limit 2", len(limited))
	}
}

func TestSearchSimilar(t *testing.T) {
	store := newTestStore(t)

	solutions := []struct {
		problem  string
		solution string
		rating   int
	}{
		{"create a python function for fibonacci numbers", "def fib(n): ...", 5},
		{"create python script that parses csv", "import csv ...", 3},
		{"restart the nginx service", "systemctl restart nginx", 4},
	}
	for _, sol := range solutions {
		if _, err := store.SaveSolution(sol.problem, sol.solution, "coding", sol.rating); err != nil {
			t.Fatalf("SaveSolution() failed: %v", err)
		}
	}

	got, err := store.SearchSimilar("create python fibonacci", 3)
	if err != nil {
		t.Fatalf("SearchSimilar() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d snippets, want 1 (keywords are ANDed): %+v", len(got), got)
	}
	if got[0].Solution != "def fib(n): ..." {
		t.Errorf("Solution = %q", got[0].Solution)
	}

	got, err = store.SearchSimilar("create python", 3)
	if err != nil {
		t.Fatalf("SearchSimilar() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d snippets, want 2: %+v", len(got), got)
	}
	// "create python script ..." contains the query as an exact phrase, so
	// its bonus outweighs the other solution's higher rating.
	if got[0].Solution != "import csv ..." {
		t.Errorf("best snippet = %q, want the exact-phrase match first", got[0].Solution)
	}
}

func TestSearchSimilarExactPhraseWinsOverRating(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.SaveSolution("list files", "ls", "", 2); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveSolution("list files recursively with sizes and dates", "find . -ls", "", 5); err != nil {
		t.Fatal(err)
	}

	got, err := store.SearchSimilar("list files", 2)
	if err != nil {
		t.Fatalf("SearchSimilar() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d snippets, want 2", len(got))
	}
	// Both match the phrase, so the bonus ties and rating decides; the
	// longer problem also contains the phrase, so both earn the bonus.
	if got[0].Rating != 5 {
		t.Errorf("first snippet rating = %d, want 5", got[0].Rating)
	}
}

func TestSearchSimilarNoKeywords(t *testing.T) {
	store := newTestStore(t)

	got, err := store.SearchSimilar("   ", 3)
	if err != nil {
		t.Fatalf("SearchSimilar() failed: %v", err)
	}
	if got != nil {
		t.Errorf("SearchSimilar(blank) = %+v, want nil", got)
	}
}

func TestIncrementSuccessAffectsOrdering(t *testing.T) {
	store := newTestStore(t)

	firstID, err := store.SaveSolution("deploy the web app", "use rsync", "server_ops", 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveSolution("deploy the web app", "use scp", "server_ops", 4); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := store.IncrementSuccess(firstID); err != nil {
			t.Fatalf("IncrementSuccess() failed: %v", err)
		}
	}

	got, err := store.SearchSimilar("deploy web app", 2)
	if err != nil {
		t.Fatalf("SearchSimilar() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d snippets, want 2", len(got))
	}
	if got[0].Solution != "use rsync" {
		t.Errorf("first snippet = %q, want the often-successful one", got[0].Solution)
	}
}

func TestSaveRunRecordsRecallableSolution(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveRun(sampleRun("run-sol-1")); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	got, err := store.SearchSimilar("check the disk usage", 3)
	if err != nil {
		t.Fatalf("SearchSimilar() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d snippets, want the completed run's answer: %+v", len(got), got)
	}
	if got[0].Solution != "disk is 40% full" {
		t.Errorf("Solution = %q, want the run's final answer", got[0].Solution)
	}
	if got[0].Category != string(task.TypeServerOps) {
		t.Errorf("Category = %q, want %q", got[0].Category, task.TypeServerOps)
	}
}

func TestSaveRunUpsertsRepeatedProblem(t *testing.T) {
	store := newTestStore(t)

	first := sampleRun("run-sol-2")
	if err := store.SaveRun(first); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	second := sampleRun("run-sol-3")
	second.FinalAnswer = "disk is 55% full"
	if err := store.SaveRun(second); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	got, err := store.SearchSimilar("check the disk usage", 5)
	if err != nil {
		t.Fatalf("SearchSimilar() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d snippets, want one upserted row: %+v", len(got), got)
	}
	if got[0].Solution != "disk is 55% full" {
		t.Errorf("Solution = %q, want the latest answer", got[0].Solution)
	}
}

func TestSaveRunWithoutAnswerRecordsNoSolution(t *testing.T) {
	store := newTestStore(t)

	failed := sampleRun("run-sol-4")
	failed.Status = task.StatusFailed
	failed.FailureReason = "model call failed"
	if err := store.SaveRun(failed); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	capped := sampleRun("run-sol-5")
	capped.Status = task.StatusMaxIterationsReached
	capped.FinalAnswer = ""
	if err := store.SaveRun(capped); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	got, err := store.SearchSimilar("check the disk usage", 3)
	if err != nil {
		t.Fatalf("SearchSimilar() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d snippets, want none for non-completed runs: %+v", len(got), got)
	}
}
