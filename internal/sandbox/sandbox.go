// Package sandbox confines shell commands with Linux Landlock. Landlock
// restricts the calling process and its children, so the shell tool re-execs
// the binary in a hidden helper mode that applies the policy to itself and
// then runs the command. On other platforms commands run unconfined.
package sandbox

import (
	"os"
	"path/filepath"
)

// ExecMode is the hidden first argument that switches the binary into the
// self-restricting command runner.
const ExecMode = "sandbox-exec"

// Policy lists what a confined command may touch. The working directory and
// temp directories are writable; system paths are read-only.
type Policy struct {
	WorkingDir string
	ExtraRW    []string
	ExtraRO    []string
}

// systemReadOnlyPaths is the fixed set of roots a shell needs to run
// programs. Missing paths are dropped during assembly.
var systemReadOnlyPaths = []string{
	"/usr",
	"/bin",
	"/sbin",
	"/lib",
	"/lib64",
	"/etc",
	"/opt",
	"/run/current-system/sw",
	"/nix/store",
}

// deviceFiles are writable device nodes most programs expect.
var deviceFiles = []string{
	"/dev/null",
	"/dev/zero",
	"/dev/random",
	"/dev/urandom",
	"/dev/tty",
}

// Paths expands the policy into deduplicated, absolute, existing read-only
// and read-write path lists. Pure apart from the existence checks, so the
// assembly is testable on every platform.
func (p Policy) Paths() (ro, rw []string) {
	seen := make(map[string]bool)

	add := func(dst *[]string, path string) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return
		}
		abs = filepath.Clean(abs)
		if seen[abs] {
			return
		}
		if _, err := os.Stat(abs); err != nil {
			return
		}
		seen[abs] = true
		*dst = append(*dst, abs)
	}

	// Read-write first so the workspace wins over a read-only duplicate.
	add(&rw, p.WorkingDir)
	add(&rw, os.TempDir())
	add(&rw, "/tmp")
	add(&rw, "/var/tmp")
	for _, path := range deviceFiles {
		add(&rw, path)
	}
	for _, path := range p.ExtraRW {
		add(&rw, path)
	}

	for _, path := range systemReadOnlyPaths {
		add(&ro, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		add(&ro, home)
	}
	for _, path := range p.ExtraRO {
		add(&ro, path)
	}

	return ro, rw
}
