// Package orchestrator drives the round loop that turns a user request into
// model calls, tool executions and a finished task run: assemble the prompt,
// stream the model response, extract and normalize tool calls, execute them,
// record the observations, repeat until the model answers without tools or a
// terminal condition is hit.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codefionn/agentwerk/internal/consts"
	"github.com/codefionn/agentwerk/internal/llm"
	"github.com/codefionn/agentwerk/internal/prompt"
	"github.com/codefionn/agentwerk/internal/task"
	"github.com/codefionn/agentwerk/internal/toolcall"
	"github.com/codefionn/agentwerk/internal/tools"
)

// Memory is the slice of the persistence layer the loop needs. A nil Memory
// disables recall and persistence without changing loop behavior.
type Memory interface {
	SaveRun(run *task.Run) error
	SearchSimilar(problem string, limit int) ([]task.Snippet, error)
}

// Knowledge surfaces local documentation as prompt context. Knowledge
// snippets follow memory snippets in the prompt; nil disables the lookup.
type Knowledge interface {
	Snippets(text string, limit int) ([]task.Snippet, error)
}

// Config carries the loop's tunables.
type Config struct {
	// MaxIterations caps the number of rounds per run.
	MaxIterations int
	// PromptBudget caps the assembled prompt length in characters.
	PromptBudget int
	// MemoryLimit caps how many recalled solutions go into the prompt.
	MemoryLimit int
	// OSInfo is quoted in the prompt header.
	OSInfo string
	// FixedModel skips per-task model selection when set.
	FixedModel string
	// ModelOverrides pins a model per task type.
	ModelOverrides map[task.Type]string
	// ModelOptions are passed through to every model call.
	ModelOptions llm.Options
}

// Deps carries the loop's collaborators. Client and Registry are required;
// the rest default to inert implementations.
type Deps struct {
	Client    llm.Client
	Registry  *tools.Registry
	Memory    Memory
	Knowledge Knowledge
	Events    Events
	Logger    *zap.Logger
}

// Loop executes task runs. It holds only immutable collaborators; all
// per-run state lives in the task.Run value and is not shared, so one Loop
// may serve concurrent runs.
type Loop struct {
	client     llm.Client
	registry   *tools.Registry
	normalizer *toolcall.Normalizer
	assembler  *prompt.Assembler
	memory     Memory
	knowledge  Knowledge
	events     Events
	logger     *zap.Logger
	cfg        Config
}

func New(deps Deps, cfg Config) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = consts.DefaultMaxIterations
	}
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = 3
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := deps.Events
	if events == nil {
		events = NopEvents{}
	}

	return &Loop{
		client:     deps.Client,
		registry:   deps.Registry,
		normalizer: toolcall.NewNormalizer(deps.Registry, logger),
		assembler:  prompt.NewAssembler(cfg.PromptBudget),
		memory:     deps.Memory,
		knowledge:  deps.Knowledge,
		events:     events,
		logger:     logger,
		cfg:        cfg,
	}
}

// runState is the mutable state of one run in flight.
type runState struct {
	run      *task.Run
	guard    repetitionGuard
	snippets []task.Snippet
	notices  []string
}

func (s *runState) addNotice(notice string) {
	for _, existing := range s.notices {
		if existing == notice {
			return
		}
	}
	s.notices = append(s.notices, notice)
}

// Request describes one run submission. Optional fields left at their zero
// value select the defaults: a generated run ID and per-task model
// selection.
type Request struct {
	UserInput string
	Model     string
	RunID     string
}

// Run executes one user request to a terminal status. Every failure mode is
// folded into the returned run's status and records; Run never returns an
// error and never panics on tool misbehavior. Cancellation is cooperative:
// it is checked once per round, and a cancelled model call fails the run.
func (l *Loop) Run(ctx context.Context, userInput string) *task.Run {
	return l.Execute(ctx, Request{UserInput: userInput})
}

// Execute is Run with submission options. Callers that answer before the run
// finishes mint the run ID themselves and pass it here.
func (l *Loop) Execute(ctx context.Context, req Request) *task.Run {
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	st := &runState{
		run: &task.Run{
			ID:        runID,
			UserInput: req.UserInput,
			TaskType:  task.Classify(req.UserInput),
			Status:    task.StatusRunning,
			StartedAt: time.Now(),
		},
	}
	if req.Model != "" {
		st.run.SelectedModel = req.Model
	} else {
		st.run.SelectedModel = l.selectModel(ctx, st.run.TaskType)
	}
	st.snippets = l.recallSnippets(req.UserInput)

	l.logger.Info("task started",
		zap.String("run_id", st.run.ID),
		zap.String("task_type", string(st.run.TaskType)),
		zap.String("model", st.run.SelectedModel),
		zap.Int("recalled_snippets", len(st.snippets)))
	l.events.RunStarted(st.run)

	for round := 1; round <= l.cfg.MaxIterations; round++ {
		if err := ctx.Err(); err != nil {
			l.fail(st.run, fmt.Sprintf("cancelled before round %d: %v", round, err))
			break
		}

		st.run.IterationCount = round
		l.events.RoundStarted(st.run.ID, round, l.cfg.MaxIterations)

		if terminal := l.round(ctx, st, round); terminal {
			break
		}
	}

	if st.run.Status == task.StatusRunning {
		st.run.Status = task.StatusMaxIterationsReached
	}
	st.run.FinishedAt = time.Now()

	l.logger.Info("task finished",
		zap.String("run_id", st.run.ID),
		zap.String("status", string(st.run.Status)),
		zap.Int("rounds", st.run.IterationCount),
		zap.Int("records", len(st.run.Records)))

	l.persist(st.run)
	l.events.RunFinished(st.run)

	return st.run
}

// round plays one model round and returns true when the run reached a
// terminal status.
func (l *Loop) round(ctx context.Context, st *runState, round int) bool {
	promptText := l.assembler.Build(prompt.Input{
		UserInput:   st.run.UserInput,
		ToolCatalog: l.registry.DescribeAll(),
		OSInfo:      l.cfg.OSInfo,
		Snippets:    st.snippets,
		Records:     st.run.Records,
		Notices:     st.notices,
	})
	if estimated, _ := prompt.EstimateTokens(st.run.SelectedModel, promptText); estimated > 0 {
		l.logger.Debug("prompt assembled",
			zap.String("run_id", st.run.ID),
			zap.Int("round", round),
			zap.Int("estimated_tokens", estimated))
	}

	responseText, err := l.callModel(ctx, st.run, promptText)
	if err != nil {
		l.fail(st.run, fmt.Sprintf("model call failed: %v", err))
		return true
	}

	invocations := toolcall.Extract(responseText)
	if len(invocations) == 0 {
		if answer, ok := toolcall.FinalAnswer(responseText); ok {
			st.run.FinalAnswer = answer
		} else {
			st.run.FinalAnswer = strings.TrimSpace(responseText)
		}
		st.run.Status = task.StatusCompleted
		return true
	}

	for _, inv := range invocations {
		call, err := l.normalizer.Normalize(inv)
		if err != nil {
			// Recovery path: the failure becomes an observation the model
			// sees next round. For unknown tools it carries the valid name
			// list.
			l.appendRecord(st, task.ExecutionRecord{
				ToolName:  inv.ToolName,
				Arguments: invocationArguments(inv),
				Error:     err.Error(),
			})
			continue
		}

		repeats := st.guard.observe(call)
		if repeats >= repeatAbortAfter {
			l.logger.Warn("stopping run, identical call keeps repeating",
				zap.String("run_id", st.run.ID),
				zap.String("tool", call.ToolName),
				zap.Int("repeats", repeats))
			st.run.Status = task.StatusMaxIterationsReached
			return true
		}
		if repeats >= repeatNoticeAfter {
			st.addNotice(repeatNotice)
		}

		result, execErr := l.registry.Execute(ctx, call.ToolName, call.Arguments)
		rec := task.ExecutionRecord{ToolName: call.ToolName, Arguments: call.Arguments}
		if execErr != nil {
			rec.Error = execErr.Error()
		} else {
			rec.Result = result
		}
		l.appendRecord(st, rec)
	}

	return false
}

func (l *Loop) appendRecord(st *runState, rec task.ExecutionRecord) {
	st.run.AppendRecord(rec)
	appended := st.run.Records[len(st.run.Records)-1]
	if appended.IsError() {
		l.logger.Debug("tool call failed",
			zap.String("run_id", st.run.ID),
			zap.String("tool", appended.ToolName),
			zap.String("error", appended.Error))
	}
	l.events.RecordAdded(st.run.ID, appended)
}

func (l *Loop) callModel(ctx context.Context, run *task.Run, promptText string) (string, error) {
	var sb strings.Builder
	err := l.client.Stream(ctx, llm.Request{
		Model:   run.SelectedModel,
		Prompt:  promptText,
		Options: l.cfg.ModelOptions,
	}, func(fragment string) error {
		sb.WriteString(fragment)
		l.events.Fragment(run.ID, fragment)
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (l *Loop) selectModel(ctx context.Context, taskType task.Type) string {
	if l.cfg.FixedModel != "" {
		return l.cfg.FixedModel
	}

	listCtx, cancel := context.WithTimeout(ctx, consts.Timeout5Seconds)
	defer cancel()

	models, err := l.client.ListModels(listCtx)
	if err != nil {
		l.logger.Warn("model inventory unavailable, using default model", zap.Error(err))
		return l.client.ModelName()
	}
	if selected := task.SelectModel(taskType, models, l.cfg.ModelOverrides); selected != "" {
		return selected
	}
	return l.client.ModelName()
}

func (l *Loop) recallSnippets(userInput string) []task.Snippet {
	var snippets []task.Snippet
	if l.memory != nil {
		recalled, err := l.memory.SearchSimilar(userInput, l.cfg.MemoryLimit)
		if err != nil {
			l.logger.Warn("memory recall failed", zap.Error(err))
		} else {
			snippets = recalled
		}
	}
	if l.knowledge != nil {
		docs, err := l.knowledge.Snippets(userInput, l.cfg.MemoryLimit)
		if err != nil {
			l.logger.Warn("knowledge recall failed", zap.Error(err))
		} else {
			snippets = append(snippets, docs...)
		}
	}
	return snippets
}

func (l *Loop) fail(run *task.Run, reason string) {
	run.Status = task.StatusFailed
	run.FailureReason = reason
}

func (l *Loop) persist(run *task.Run) {
	if l.memory == nil {
		return
	}
	if err := l.memory.SaveRun(run); err != nil {
		l.logger.Warn("failed to persist run",
			zap.String("run_id", run.ID),
			zap.Error(err))
	}
}

// invocationArguments renders the raw arguments of a failed normalization
// for its error record.
func invocationArguments(inv toolcall.Invocation) map[string]any {
	if inv.Keyword != nil {
		return inv.Keyword
	}
	if len(inv.Positional) == 0 {
		return nil
	}
	return map[string]any{"args": inv.Positional}
}
