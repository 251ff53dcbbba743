package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/codefionn/agentwerk/internal/orchestrator"
	"github.com/codefionn/agentwerk/internal/task"
)

// Loop progress messages delivered into the bubbletea update loop.
type (
	runStartedMsg struct{ run *task.Run }
	roundMsg      struct{ round, maxRounds int }
	fragmentMsg   struct{ text string }
	recordMsg     struct{ rec task.ExecutionRecord }
	runDoneMsg    struct{ run *task.Run }
)

// Relay bridges orchestrator events into a running bubbletea program. It is
// handed to the loop before the program exists, so the sender is bound later
// and events arriving before the bind are dropped.
type Relay struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func NewRelay() *Relay { return &Relay{} }

var _ orchestrator.Events = (*Relay)(nil)

func (r *Relay) bind(send func(tea.Msg)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.send = send
}

func (r *Relay) post(msg tea.Msg) {
	r.mu.Lock()
	send := r.send
	r.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (r *Relay) RunStarted(run *task.Run) { r.post(runStartedMsg{run: run}) }

func (r *Relay) RoundStarted(_ string, round, maxRounds int) {
	r.post(roundMsg{round: round, maxRounds: maxRounds})
}

func (r *Relay) Fragment(_ string, text string) { r.post(fragmentMsg{text: text}) }

func (r *Relay) RecordAdded(_ string, rec task.ExecutionRecord) {
	r.post(recordMsg{rec: rec})
}

// RunFinished is intentionally quiet: the run command itself returns
// runDoneMsg with the terminal run, which keeps exactly one completion
// message per run.
func (r *Relay) RunFinished(*task.Run) {}
