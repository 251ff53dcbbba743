// Package tools defines the capability model the orchestration loop
// executes against: tool specifications, the read-only registry and the
// builtin tool catalog.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/codefionn/agentwerk/internal/consts"
)

// Param declares one tool parameter. Declaration order matters: positional
// argument lists zip against it.
type Param struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// ToolSpec statically describes a callable capability. Specs are immutable
// after registry construction and no two specs share a name.
type ToolSpec struct {
	Name        string  `json:"name"`
	Params      []Param `json:"parameters,omitempty"`
	Description string  `json:"description"`
}

// Tool is one executable capability. Execute receives the normalized
// arguments keyed by declared parameter name and returns a textual result
// for the observation log.
type Tool interface {
	Spec() ToolSpec
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Registry maps tool names to implementations. It is built once at startup
// and read-only afterwards; names are matched case-insensitively.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering an empty or already-present name fails.
func (r *Registry) Register(t Tool) error {
	spec := t.Spec()
	name := strings.ToLower(strings.TrimSpace(spec.Name))
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Resolve looks up a tool spec by name.
func (r *Registry) Resolve(name string) (ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ToolSpec{}, false
	}
	return t.Spec(), true
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Specs returns all registered specs in registration order.
func (r *Registry) Specs() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	return specs
}

// DescribeAll renders the full tool catalog for prompt inclusion. The
// catalog is never filtered; the model must see every name the normalizer
// will accept.
func (r *Registry) DescribeAll() string {
	var sb strings.Builder
	for _, spec := range r.Specs() {
		sb.WriteString("- ")
		sb.WriteString(spec.Name)
		sb.WriteString("(")
		for i, p := range spec.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Name)
			if !p.Required {
				sb.WriteString("?")
			}
		}
		sb.WriteString("): ")
		sb.WriteString(spec.Description)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Execute dispatches a normalized call to the named tool. Tool panics are
// recovered and reported as errors; oversized output is truncated. The loop
// records the returned error, it never propagates it.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result string, err error) {
	r.mu.RLock()
	t, ok := r.tools[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("tool not found: %s", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = ""
			err = fmt.Errorf("tool %s panicked: %v", name, rec)
		}
	}()

	result, err = t.Execute(ctx, args)
	if err != nil {
		return "", err
	}
	if len(result) > consts.MaxToolOutputBytes {
		result = result[:consts.MaxToolOutputBytes] + "\n... (output truncated)"
	}
	return result, nil
}

// GetStringParam returns a string argument or defaultVal when absent or of
// another type.
func GetStringParam(args map[string]any, key string, defaultVal string) string {
	if val, ok := args[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultVal
}

// GetIntParam returns an integer argument, accepting the numeric types JSON
// decoding produces.
func GetIntParam(args map[string]any, key string, defaultVal int) int {
	if val, ok := args[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return int(i)
			}
		}
	}
	return defaultVal
}

// GetBoolParam returns a boolean argument or defaultVal.
func GetBoolParam(args map[string]any, key string, defaultVal bool) bool {
	if val, ok := args[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultVal
}
