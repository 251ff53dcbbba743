package orchestrator

import "github.com/codefionn/agentwerk/internal/task"

// Events receives loop progress notifications. Calls are made from the
// goroutine running the loop, so implementations must return quickly and do
// their own buffering if they fan out.
type Events interface {
	RunStarted(run *task.Run)
	RoundStarted(runID string, round, maxRounds int)
	Fragment(runID, text string)
	RecordAdded(runID string, rec task.ExecutionRecord)
	RunFinished(run *task.Run)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) RunStarted(*task.Run)                        {}
func (NopEvents) RoundStarted(string, int, int)               {}
func (NopEvents) Fragment(string, string)                     {}
func (NopEvents) RecordAdded(string, task.ExecutionRecord)    {}
func (NopEvents) RunFinished(*task.Run)                       {}
