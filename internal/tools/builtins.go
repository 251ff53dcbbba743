package tools

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/codefionn/agentwerk/internal/consts"
)

// BuiltinConfig carries the dependencies the builtin catalog needs.
type BuiltinConfig struct {
	WorkingDir     string
	CommandTimeout time.Duration
	DisableSandbox bool
	HTTPClient     *http.Client
	Memory         SolutionSearcher
	Logger         *zap.Logger
}

// RegisterBuiltins registers the builtin tool catalog. Registration order is
// fixed; it is the order the catalog renders in prompts.
func RegisterBuiltins(reg *Registry, cfg BuiltinConfig) error {
	ws, err := NewWorkspace(cfg.WorkingDir)
	if err != nil {
		return err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: consts.Timeout30Seconds}
	}

	builtins := []Tool{
		NewRunCommandTool(ws.Root(), cfg.CommandTimeout, cfg.DisableSandbox, logger),
		NewReadFileTool(ws),
		NewWriteFileTool(ws),
		NewListDirTool(ws),
		NewApplyPatchTool(ws),
		NewFetchURLTool(client),
		NewWebSearchTool(client),
		NewCodeOutlineTool(ws),
		NewSystemInfoTool(),
	}
	if cfg.Memory != nil {
		builtins = append(builtins, NewMemorySearchTool(cfg.Memory))
	}

	for _, t := range builtins {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
