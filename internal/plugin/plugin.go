// Package plugin loads custom tools compiled to WebAssembly. A plugin is a
// <name>.wasm binary next to a <name>.json manifest in the plugin directory;
// it runs under WASI with the call arguments as JSON on stdin and its stdout
// as the tool result.
package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/codefionn/agentwerk/internal/consts"
	"github.com/codefionn/agentwerk/internal/tools"
)

// Manifest describes a plugin tool: the description shown in the catalog and
// the declared parameters, in positional order.
type Manifest struct {
	Description string        `json:"description"`
	Parameters  []tools.Param `json:"parameters,omitempty"`
}

// Tool is one loaded plugin. It satisfies tools.Tool; the binary is read and
// instantiated fresh on every call so plugins cannot keep state between runs.
type Tool struct {
	name     string
	wasmPath string
	manifest Manifest
	timeout  time.Duration
}

// LoadDir scans dir for wasm/manifest pairs. Pairs with a missing or
// malformed manifest are skipped with a warning so one broken plugin cannot
// block startup. A missing directory yields no plugins.
func LoadDir(dir string, timeout time.Duration, logger *zap.Logger) []*Tool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = consts.DefaultCommandTimeout
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("read plugin dir failed", zap.String("dir", dir), zap.Error(err))
		}
		return nil
	}

	var loaded []*Tool
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wasm") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".wasm")

		data, err := os.ReadFile(filepath.Join(dir, name+".json"))
		if err != nil {
			logger.Warn("plugin has no readable manifest",
				zap.String("plugin", name), zap.Error(err))
			continue
		}
		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			logger.Warn("plugin manifest malformed",
				zap.String("plugin", name), zap.Error(err))
			continue
		}

		loaded = append(loaded, &Tool{
			name:     name,
			wasmPath: filepath.Join(dir, entry.Name()),
			manifest: manifest,
			timeout:  timeout,
		})
		logger.Info("plugin loaded", zap.String("plugin", name))
	}
	return loaded
}

func (t *Tool) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        t.name,
		Params:      t.manifest.Parameters,
		Description: t.manifest.Description,
	}
}

// Execute runs the plugin binary to completion. A non-zero WASI exit code is
// a tool error carrying the plugin's stderr.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (string, error) {
	wasmBytes, err := os.ReadFile(t.wasmPath)
	if err != nil {
		return "", fmt.Errorf("read plugin %s: %w", t.name, err)
	}

	input, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode arguments: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	// CloseOnContextDone makes the deadline interrupt wasm that never
	// returns, not just host calls.
	runtime := wazero.NewRuntimeWithConfig(ctx,
		wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer runtime.Close(ctx)

	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return "", fmt.Errorf("compile plugin %s: %w", t.name, err)
	}

	stdout := &capWriter{limit: consts.MaxToolOutputBytes}
	stderr := &capWriter{limit: consts.MaxToolOutputBytes}

	config := wazero.NewModuleConfig().
		WithName(t.name).
		WithArgs(t.name).
		WithStdin(bytes.NewReader(input)).
		WithStdout(stdout).
		WithStderr(stderr).
		WithSysWalltime().
		WithSysNanotime()

	mod, err := runtime.InstantiateModule(ctx, compiled, config)
	if mod != nil {
		defer mod.Close(ctx)
	}
	if err != nil {
		if exitErr, ok := err.(*sys.ExitError); ok {
			if exitErr.ExitCode() == 0 {
				return stdout.String(), nil
			}
			return "", fmt.Errorf("plugin %s exited with code %d: %s",
				t.name, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("plugin %s timed out after %s", t.name, t.timeout)
		}
		return "", fmt.Errorf("run plugin %s: %w", t.name, err)
	}

	return stdout.String(), nil
}

// capWriter keeps at most limit bytes and swallows the rest so a runaway
// plugin cannot exhaust memory.
type capWriter struct {
	buf   bytes.Buffer
	limit int
}

func (w *capWriter) Write(p []byte) (int, error) {
	n := len(p)
	if remaining := w.limit - w.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			p = p[:remaining]
		}
		w.buf.Write(p)
	}
	return n, nil
}

func (w *capWriter) String() string { return w.buf.String() }
