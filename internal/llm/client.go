// Package llm provides streaming clients for locally hosted language model
// backends. Two wire protocols are supported: the Ollama HTTP API and the
// OpenAI-compatible chat completions API exposed by servers such as
// llama.cpp, LM Studio and vLLM.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Options carries per-request generation parameters. Zero values leave the
// backend defaults untouched.
type Options struct {
	Temperature float64
	// NumPredict caps the number of generated tokens.
	NumPredict int
}

// Request describes one completion round sent to a backend.
type Request struct {
	// Model overrides the client's configured model when non-empty.
	Model   string
	Prompt  string
	Options Options
}

// ModelInfo describes one model available on a backend.
type ModelInfo struct {
	Name string
	// Size is the model size in bytes as reported by the backend, 0 when
	// the backend does not report one.
	Size int64
}

// StreamFunc receives each text fragment as it arrives. Returning a non-nil
// error stops local consumption of the stream; it does not stop backend-side
// generation.
type StreamFunc func(fragment string) error

// Client is a streaming text-completion backend.
type Client interface {
	// Stream sends the request and invokes fn for every fragment until the
	// backend signals completion. The fragment sequence is finite and not
	// restartable.
	Stream(ctx context.Context, req Request, fn StreamFunc) error
	// Complete accumulates the full response text of Stream.
	Complete(ctx context.Context, req Request) (string, error)
	// ListModels returns the backend's model inventory.
	ListModels(ctx context.Context) ([]ModelInfo, error)
	// ModelName returns the configured default model.
	ModelName() string
}

// ModelUnavailableError reports that a model round failed for
// network, timeout, stall or backend reasons. After the configured fallback
// attempt is exhausted it is fatal to the enclosing task run.
type ModelUnavailableError struct {
	Model string
	Err   error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("model %q unavailable", e.Model)
	}
	return fmt.Sprintf("model %q unavailable: %v", e.Model, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// IsModelUnavailable reports whether err is (or wraps) a ModelUnavailableError.
func IsModelUnavailable(err error) bool {
	var target *ModelUnavailableError
	return errors.As(err, &target)
}

// ErrEmptyPrompt is returned when a request carries no prompt text.
var ErrEmptyPrompt = errors.New("llm: empty prompt")

func validateRequest(req Request) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// complete implements Complete in terms of a client's own Stream so wrapper
// types keep their semantics.
func complete(ctx context.Context, c Client, req Request) (string, error) {
	var sb strings.Builder
	err := c.Stream(ctx, req, func(fragment string) error {
		sb.WriteString(fragment)
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
