package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/codefionn/agentwerk/internal/consts"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"

	defaultRequestTimeout = 10 * time.Minute
	defaultStallTimeout   = 90 * time.Second
)

// OllamaClient talks to an Ollama server over its native HTTP API using
// newline-delimited JSON streaming.
type OllamaClient struct {
	baseURL      string
	model        string
	httpClient   *http.Client
	stallTimeout time.Duration
}

// NewOllamaClient creates a client for the given base URL and default model.
// An empty baseURL falls back to http://localhost:11434. requestTimeout
// bounds a whole model round, stallTimeout the gap between two fragments;
// zero values select defaults.
func NewOllamaClient(baseURL, model string, requestTimeout, stallTimeout time.Duration) (*OllamaClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("ollama client requires a model name")
	}
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	if stallTimeout <= 0 {
		stallTimeout = defaultStallTimeout
	}

	return &OllamaClient{
		baseURL: normalizeOllamaBaseURL(baseURL),
		model:   model,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		stallTimeout: stallTimeout,
	}, nil
}

func normalizeOllamaBaseURL(baseURL string) string {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return defaultOllamaBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}

// ModelName returns the configured default model.
func (c *OllamaClient) ModelName() string { return c.model }

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateEvent struct {
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason"`
	Error      string `json:"error"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	} `json:"models"`
}

// Stream sends a generate request and relays response fragments to fn until
// the server emits its done marker. Transport failures, non-OK statuses,
// backend-reported errors and stalls surface as *ModelUnavailableError.
func (c *OllamaClient) Stream(ctx context.Context, req Request, fn StreamFunc) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	payload := ollamaGenerateRequest{
		Model:  model,
		Prompt: req.Prompt,
		Stream: true,
	}
	if opts := buildOllamaOptions(req.Options); len(opts) > 0 {
		payload.Options = opts
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal generate request: %w", err)
	}

	// The stall watchdog cancels the request when the backend goes silent
	// between fragments.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var stalled atomic.Bool
	watchdog := time.AfterFunc(c.stallTimeout, func() {
		stalled.Store(true)
		cancel()
	})
	defer watchdog.Stop()

	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if stalled.Load() {
			err = fmt.Errorf("no response within %s", c.stallTimeout)
		}
		return &ModelUnavailableError{Model: model, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, consts.BufferSize64KB))
		return &ModelUnavailableError{
			Model: model,
			Err:   fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, consts.BufferSize256KB), consts.BufferSize1MB)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var event ollamaGenerateEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return fmt.Errorf("decode stream event: %w", err)
		}
		if event.Error != "" {
			return &ModelUnavailableError{Model: model, Err: errors.New(event.Error)}
		}

		if event.Response != "" {
			watchdog.Reset(c.stallTimeout)
			if err := fn(event.Response); err != nil {
				return err
			}
		}
		if event.Done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		if stalled.Load() {
			err = fmt.Errorf("stream stalled for %s: %w", c.stallTimeout, err)
		}
		return &ModelUnavailableError{Model: model, Err: err}
	}
	// Stream ended without a done marker; treat as a complete response.
	return nil
}

// Complete accumulates the streamed response into a single string.
func (c *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	return complete(ctx, c, req)
}

// ListModels queries /api/tags for the server's model inventory.
func (c *OllamaClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build tags request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models: status %d", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}

	models := make([]ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, ModelInfo{Name: m.Name, Size: m.Size})
	}
	return models, nil
}

func buildOllamaOptions(opts Options) map[string]interface{} {
	out := map[string]interface{}{}
	if opts.Temperature != 0 {
		out["temperature"] = opts.Temperature
	}
	if opts.NumPredict > 0 {
		out["num_predict"] = opts.NumPredict
	}
	return out
}
