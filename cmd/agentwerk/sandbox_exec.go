package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/codefionn/agentwerk/internal/sandbox"
)

// exitUsage is returned when the helper itself fails, distinct from any
// exit code the confined command could produce.
const exitUsage = 125

// runSandboxExec is the hidden helper mode the shell tool re-execs into:
// restrict this process with Landlock, then hand off to the shell. The exit
// code of the command passes through unchanged.
func runSandboxExec(args []string) int {
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s %s <workdir> <command>\n", os.Args[0], sandbox.ExecMode)
		return exitUsage
	}
	workdir, command := args[0], args[1]

	if sandbox.Available() {
		if err := sandbox.Apply(sandbox.Policy{WorkingDir: workdir}, nil); err != nil {
			fmt.Fprintf(os.Stderr, "sandbox: %v\n", err)
			return exitUsage
		}
	}

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = workdir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "exec: %v\n", err)
		return exitUsage
	}
	return 0
}
