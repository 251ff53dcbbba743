// Package task holds the domain types shared across the orchestration loop,
// the memory store and the interfaces: task runs, execution records, task
// classification and model selection.
package task

import "time"

// Status is the lifecycle state of a Run. The terminal status is set exactly
// once.
type Status string

const (
	StatusRunning              Status = "running"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
	StatusMaxIterationsReached Status = "max_iterations_reached"
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool { return s != StatusRunning && s != "" }

// ExecutionRecord is one tool invocation observed during a run: either the
// tool's result or the error that prevented or failed the execution. Exactly
// one of Result and Error is set. Records are immutable once appended.
type ExecutionRecord struct {
	ToolName      string         `json:"tool_name"`
	Arguments     map[string]any `json:"arguments,omitempty"`
	Result        string         `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	SequenceIndex int            `json:"sequence_index"`
}

// IsError reports whether the record describes a failed invocation.
func (r ExecutionRecord) IsError() bool { return r.Error != "" }

// Run is the full record of one user request across all loop rounds.
type Run struct {
	ID             string            `json:"id"`
	UserInput      string            `json:"user_input"`
	TaskType       Type              `json:"task_type"`
	SelectedModel  string            `json:"selected_model"`
	IterationCount int               `json:"iteration_count"`
	Records        []ExecutionRecord `json:"records"`
	Status         Status            `json:"status"`
	FinalAnswer    string            `json:"final_answer,omitempty"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at,omitempty"`
}

// AppendRecord appends rec to the run's observation log, assigning its
// sequence index and timestamp.
func (r *Run) AppendRecord(rec ExecutionRecord) {
	rec.SequenceIndex = len(r.Records)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	r.Records = append(r.Records, rec)
}

// Snippet is a prior solution surfaced as prompt context by the memory store
// or the knowledge base.
type Snippet struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
	Category string `json:"category,omitempty"`
	Rating   int    `json:"rating,omitempty"`
}
