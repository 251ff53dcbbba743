//go:build linux

package sandbox

import (
	"fmt"
	"os"

	landlock "github.com/landlock-lsm/go-landlock/landlock"
	"go.uber.org/zap"
)

// Available reports whether this build can confine commands.
func Available() bool { return true }

// Apply restricts the current process to the policy, best effort: older
// kernels degrade to the strongest supported Landlock ABI, kernels without
// Landlock degrade to no confinement.
func Apply(p Policy, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	ro, rw := p.Paths()

	// Landlock rejects directory rights on regular files, so device nodes
	// and other files get the file rule variants.
	rules := make([]landlock.Rule, 0, len(ro)+len(rw))
	for _, path := range ro {
		if isRegularFile(path) {
			rules = append(rules, landlock.ROFiles(path))
		} else {
			rules = append(rules, landlock.RODirs(path))
		}
	}
	for _, path := range rw {
		if isRegularFile(path) {
			rules = append(rules, landlock.RWFiles(path))
		} else {
			rules = append(rules, landlock.RWDirs(path))
		}
	}

	if err := landlock.V6.BestEffort().RestrictPaths(rules...); err != nil {
		return fmt.Errorf("landlock restriction failed: %w", err)
	}

	logger.Debug("landlock restrictions applied",
		zap.Int("read_only", len(ro)), zap.Int("read_write", len(rw)))
	return nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
