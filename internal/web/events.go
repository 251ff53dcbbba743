package web

import (
	"github.com/codefionn/agentwerk/internal/orchestrator"
	"github.com/codefionn/agentwerk/internal/task"
)

// Event types broadcast over /ws, in lifecycle order. Connected is sent once
// to each client when its subscription is live.
const (
	EventConnected    = "connected"
	EventRunStarted   = "run_started"
	EventRoundStarted = "round_started"
	EventFragment     = "fragment"
	EventRecord       = "record"
	EventRunFinished  = "run_finished"
)

// Event is one frame pushed to websocket clients. Type and RunID are always
// set; the remaining fields depend on the type.
type Event struct {
	Type        string                `json:"type"`
	RunID       string                `json:"run_id"`
	Input       string                `json:"input,omitempty"`
	Model       string                `json:"model,omitempty"`
	TaskType    string                `json:"task_type,omitempty"`
	Round       int                   `json:"round,omitempty"`
	MaxRounds   int                   `json:"max_rounds,omitempty"`
	Text        string                `json:"text,omitempty"`
	Record      *task.ExecutionRecord `json:"record,omitempty"`
	Status      string                `json:"status,omitempty"`
	FinalAnswer string                `json:"final_answer,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// The hub is the loop's event sink in serve mode.
var _ orchestrator.Events = (*Hub)(nil)

func (h *Hub) RunStarted(run *task.Run) {
	h.publish(Event{
		Type:     EventRunStarted,
		RunID:    run.ID,
		Input:    run.UserInput,
		Model:    run.SelectedModel,
		TaskType: string(run.TaskType),
	})
}

func (h *Hub) RoundStarted(runID string, round, maxRounds int) {
	h.publish(Event{Type: EventRoundStarted, RunID: runID, Round: round, MaxRounds: maxRounds})
}

func (h *Hub) Fragment(runID, text string) {
	h.publish(Event{Type: EventFragment, RunID: runID, Text: text})
}

func (h *Hub) RecordAdded(runID string, rec task.ExecutionRecord) {
	h.publish(Event{Type: EventRecord, RunID: runID, Record: &rec})
}

func (h *Hub) RunFinished(run *task.Run) {
	h.publish(Event{
		Type:        EventRunFinished,
		RunID:       run.ID,
		Status:      string(run.Status),
		FinalAnswer: run.FinalAnswer,
		Error:       run.FailureReason,
	})
}
