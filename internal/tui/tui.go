// Package tui is the interactive terminal session: a prompt line, a
// scrollback of loop events, and rendered final answers.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"go.uber.org/zap"
	"golang.design/x/clipboard"

	"github.com/codefionn/agentwerk/internal/buildinfo"
	"github.com/codefionn/agentwerk/internal/orchestrator"
	"github.com/codefionn/agentwerk/internal/task"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

const (
	inputPlaceholder = "Describe a task... (enter to run)"
	helpLine         = "enter run · ctrl+c cancel · ctrl+y copy answer · esc quit"
	recordClipLen    = 120
)

// clipboard.Init touches the display server, so it runs once and only when
// the user first copies.
var (
	clipboardOnce sync.Once
	clipboardErr  error
)

func clipboardReady() bool {
	clipboardOnce.Do(func() { clipboardErr = clipboard.Init() })
	return clipboardErr == nil
}

// Options wires the session to the loop. Relay must be the Events sink the
// loop was constructed with.
type Options struct {
	Loop   *orchestrator.Loop
	Relay  *Relay
	Logger *zap.Logger
}

// Model is the bubbletea model of one interactive session.
type Model struct {
	loop   *orchestrator.Loop
	relay  *Relay
	logger *zap.Logger

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	lines      []string
	busy       bool
	cancelling bool
	status     string
	round      int
	maxRounds  int
	streamed   int
	lastAnswer string
	cancel     context.CancelFunc
}

func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ti := textinput.New()
	ti.Placeholder = inputPlaceholder
	ti.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Line),
		spinner.WithStyle(statusStyle),
	)

	return &Model{
		loop:     opts.Loop,
		relay:    opts.Relay,
		logger:   logger,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
	}
}

// Run starts the session and blocks until the user quits.
func Run(opts Options) error {
	m := NewModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if opts.Relay != nil {
		opts.Relay.bind(p.Send)
	}
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = maxInt(3, msg.Height-4)
		m.input.Width = maxInt(10, msg.Width-4)
		m.ready = true
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case runStartedMsg:
		m.status = fmt.Sprintf("%s · %s", msg.run.SelectedModel, msg.run.TaskType)
		return m, nil

	case roundMsg:
		m.round = msg.round
		m.maxRounds = msg.maxRounds
		m.streamed = 0
		return m, nil

	case fragmentMsg:
		m.streamed += len(msg.text)
		return m, nil

	case recordMsg:
		m.appendLine(formatRecord(msg.rec))
		return m, nil

	case runDoneMsg:
		return m.finishRun(msg.run)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.busy {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.appendLine(userStyle.Render("> ") + text)
		m.busy = true
		m.cancelling = false
		m.status = "classifying"
		m.round, m.maxRounds, m.streamed = 0, 0, 0
		return m, tea.Batch(m.startRun(text), m.spinner.Tick)

	case "ctrl+c":
		if m.busy {
			m.requestCancel()
			return m, nil
		}
		return m, tea.Quit

	case "esc", "ctrl+d":
		m.requestCancel()
		return m, tea.Quit

	case "ctrl+y":
		m.copyLastAnswer()
		return m, nil

	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startRun executes the run on its own goroutine. Everything the loop does
// in between arrives through the relay; the command's message carries the
// terminal run.
func (m *Model) startRun(text string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	loop := m.loop
	return func() tea.Msg {
		defer cancel()
		return runDoneMsg{run: loop.Run(ctx, text)}
	}
}

// requestCancel stops the in-flight run before its next round. In-flight
// model and tool calls finish naturally.
func (m *Model) requestCancel() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.busy {
		m.cancelling = true
		m.status = "cancelling after the current step"
	}
}

func (m *Model) finishRun(run *task.Run) (tea.Model, tea.Cmd) {
	m.busy = false
	m.cancelling = false
	m.cancel = nil
	m.status = ""

	switch run.Status {
	case task.StatusCompleted:
		m.lastAnswer = run.FinalAnswer
		m.appendLine(m.renderMarkdown(run.FinalAnswer))
	case task.StatusMaxIterationsReached:
		m.appendLine(errorStyle.Render(
			fmt.Sprintf("stopped after %d rounds without a final answer (%d tool calls)",
				run.IterationCount, len(run.Records))))
	case task.StatusFailed:
		m.appendLine(errorStyle.Render("run failed: " + run.FailureReason))
	}
	m.appendLine("")
	return m, nil
}

func (m *Model) copyLastAnswer() {
	if m.lastAnswer == "" {
		return
	}
	if !clipboardReady() {
		m.logger.Debug("clipboard unavailable", zap.Error(clipboardErr))
		m.status = "clipboard unavailable"
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(m.lastAnswer))
	m.status = "answer copied"
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	width := maxInt(20, m.width-2)
	wrapped := make([]string, len(m.lines))
	for i, line := range m.lines {
		wrapped[i] = wordwrap.String(line, width)
	}
	m.viewport.SetContent(strings.Join(wrapped, "\n"))
	m.viewport.GotoBottom()
}

// renderMarkdown renders a final answer with glamour, falling back to
// wrapped plain text when the renderer cannot be built.
func (m *Model) renderMarkdown(text string) string {
	width := maxInt(20, m.width-2)
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		if out, renderErr := renderer.Render(text); renderErr == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return wordwrap.String(text, width)
}

func (m *Model) View() string {
	if !m.ready {
		return "starting..."
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(buildinfo.AppName))
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.statusLine())
	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(helpLine))
	return sb.String()
}

func (m *Model) statusLine() string {
	if !m.busy {
		if m.status != "" {
			return statusStyle.Render(m.status)
		}
		return statusStyle.Render("ready")
	}

	parts := []string{m.spinner.View()}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if m.round > 0 {
		parts = append(parts, fmt.Sprintf("round %d/%d", m.round, m.maxRounds))
	}
	if m.streamed > 0 {
		parts = append(parts, fmt.Sprintf("%d chars", m.streamed))
	}
	if m.cancelling {
		parts = append(parts, "cancelling")
	}
	return statusStyle.Render(strings.Join(parts, " · "))
}

// formatRecord folds one execution record into a single transcript line.
func formatRecord(rec task.ExecutionRecord) string {
	if rec.IsError() {
		return toolStyle.Render("⚙ "+rec.ToolName+" ") + errorStyle.Render(clip(rec.Error, recordClipLen))
	}
	return toolStyle.Render("⚙ " + rec.ToolName + " → " + clip(rec.Result, recordClipLen))
}

// clip reduces s to its first line, capped at n runes.
func clip(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimRight(s[:i], " ") + " …"
	}
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n]) + "…"
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
