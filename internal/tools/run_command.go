package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codefionn/agentwerk/internal/consts"
	"github.com/codefionn/agentwerk/internal/sandbox"
)

// RunCommandTool executes shell commands in the workspace. On Linux the
// command runs in a re-executed copy of this binary that applies Landlock
// before handing off to the shell; confinement cannot be applied in-process
// without restricting the whole agent.
type RunCommandTool struct {
	workdir        string
	timeout        time.Duration
	disableSandbox bool
	logger         *zap.Logger
}

func NewRunCommandTool(workdir string, timeout time.Duration, disableSandbox bool, logger *zap.Logger) *RunCommandTool {
	if timeout <= 0 {
		timeout = consts.DefaultCommandTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunCommandTool{
		workdir:        workdir,
		timeout:        timeout,
		disableSandbox: disableSandbox,
		logger:         logger,
	}
}

func (t *RunCommandTool) Spec() ToolSpec {
	return ToolSpec{
		Name: ToolRunCommand,
		Params: []Param{
			{Name: "command", Required: true},
			{Name: "timeout"},
		},
		Description: "Execute a shell command in the workspace and return its exit code, stdout and stderr. Optional timeout in seconds.",
	}
}

func (t *RunCommandTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	command := strings.TrimSpace(GetStringParam(args, "command", ""))
	if command == "" {
		return "", fmt.Errorf("command is required")
	}

	timeout := t.timeout
	if secs := GetIntParam(args, "timeout", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := t.buildCommand(ctx, command)
	cmd.Dir = t.workdir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.logger.Debug("running command",
		zap.String("command", command),
		zap.Duration("timeout", timeout),
		zap.Bool("sandboxed", t.sandboxed()))

	err := cmd.Run()

	exitCode := 0
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("command timed out after %s", timeout)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("command failed to start: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}

	t.logger.Debug("command finished", zap.Int("exit_code", exitCode))

	var sb strings.Builder
	fmt.Fprintf(&sb, "exit code: %d\n", exitCode)
	if out := strings.TrimRight(stdout.String(), "\n"); out != "" {
		sb.WriteString("stdout:\n")
		sb.WriteString(out)
		sb.WriteString("\n")
	}
	if errOut := strings.TrimRight(stderr.String(), "\n"); errOut != "" {
		sb.WriteString("stderr:\n")
		sb.WriteString(errOut)
		sb.WriteString("\n")
	}
	if stdout.Len() == 0 && stderr.Len() == 0 {
		sb.WriteString("(no output)\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (t *RunCommandTool) sandboxed() bool {
	return !t.disableSandbox && sandbox.Available()
}

// buildCommand prepares either the sandboxed re-exec or a plain shell
// invocation. The re-exec arguments are the contract with the hidden
// sandbox-exec mode of the main binary: mode, working directory, command.
func (t *RunCommandTool) buildCommand(ctx context.Context, command string) *exec.Cmd {
	if t.sandboxed() {
		if exe, err := os.Executable(); err == nil {
			return exec.CommandContext(ctx, exe, sandbox.ExecMode, t.workdir, command)
		}
		t.logger.Warn("cannot locate own executable, running command unsandboxed")
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}
