package toolcall

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/codefionn/agentwerk/internal/tools"
)

// NormalizedCall is an invocation resolved against a tool specification:
// canonical tool name plus a parameter-name keyed argument map ready for
// execution. Arguments is never nil.
type NormalizedCall struct {
	ToolName  string
	Arguments map[string]any
}

// UnknownToolError reports an invocation naming a tool the registry does not
// know. Valid carries the registered tool names so the loop can feed them
// back to the model in the next round.
type UnknownToolError struct {
	Name  string
	Valid []string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q (valid tools: %s)", e.Name, strings.Join(e.Valid, ", "))
}

// ArityMismatchError reports more positional arguments than the tool
// declares parameters.
type ArityMismatchError struct {
	Tool     string
	Given    int
	Declared int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("tool %s takes %d parameter(s), got %d argument(s)", e.Tool, e.Declared, e.Given)
}

// MissingRequiredParameterError reports a required parameter left unfilled
// after argument mapping.
type MissingRequiredParameterError struct {
	Tool  string
	Param string
}

func (e *MissingRequiredParameterError) Error() string {
	return fmt.Sprintf("tool %s missing required parameter %q", e.Tool, e.Param)
}

// Normalizer resolves invocations against a tool registry.
type Normalizer struct {
	registry *tools.Registry
	logger   *zap.Logger
}

func NewNormalizer(registry *tools.Registry, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{registry: registry, logger: logger}
}

// Normalize maps one invocation onto its tool's declared parameters.
// Positional arguments zip with parameters in declaration order; keyword
// arguments match parameter names exactly, and unknown keys are dropped with
// a warning. Tool name lookup is case-insensitive, but the returned call
// carries the canonical registered name.
func (n *Normalizer) Normalize(inv Invocation) (NormalizedCall, error) {
	spec, ok := n.registry.Resolve(inv.ToolName)
	if !ok {
		return NormalizedCall{}, &UnknownToolError{Name: inv.ToolName, Valid: n.registry.Names()}
	}

	args := make(map[string]any)

	if inv.Keyword != nil {
		for key, value := range inv.Keyword {
			if paramDeclared(spec, key) {
				args[key] = value
			} else {
				n.logger.Warn("dropping unknown argument key",
					zap.String("tool", spec.Name),
					zap.String("key", key))
			}
		}
	} else {
		if len(inv.Positional) > len(spec.Params) {
			return NormalizedCall{}, &ArityMismatchError{
				Tool:     spec.Name,
				Given:    len(inv.Positional),
				Declared: len(spec.Params),
			}
		}
		for i, value := range inv.Positional {
			args[spec.Params[i].Name] = value
		}
	}

	for _, param := range spec.Params {
		if !param.Required {
			continue
		}
		if _, filled := args[param.Name]; !filled {
			return NormalizedCall{}, &MissingRequiredParameterError{Tool: spec.Name, Param: param.Name}
		}
	}

	return NormalizedCall{ToolName: spec.Name, Arguments: args}, nil
}

func paramDeclared(spec tools.ToolSpec, name string) bool {
	for _, param := range spec.Params {
		if param.Name == name {
			return true
		}
	}
	return false
}
