package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAICompatClient implements Client against any server exposing the
// OpenAI chat completions API, which covers the common local runtimes
// (llama.cpp server, LM Studio, vLLM, LocalAI).
type OpenAICompatClient struct {
	client openai.Client
	model  string
}

// NewOpenAICompatClient constructs a client for an OpenAI-compatible server.
// baseURL must point at the API root (e.g. http://localhost:8080/v1). apiKey
// may be empty for unsecured local servers.
func NewOpenAICompatClient(baseURL, apiKey, model string) (*OpenAICompatClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("openai-compatible client requires a model name")
	}
	trimmedBase := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedBase == "" {
		return nil, fmt.Errorf("openai-compatible client requires a base URL")
	}

	opts := []option.RequestOption{option.WithBaseURL(trimmedBase)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &OpenAICompatClient{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// ModelName returns the configured default model.
func (c *OpenAICompatClient) ModelName() string { return c.model }

// Stream sends a chat completion request and relays content deltas to fn.
func (c *OpenAICompatClient) Stream(ctx context.Context, req Request, fn StreamFunc) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.Options.Temperature != 0 {
		params.Temperature = openai.Float(req.Options.Temperature)
	}
	if req.Options.NumPredict > 0 {
		params.MaxTokens = openai.Int(int64(req.Options.NumPredict))
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := fn(delta); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return &ModelUnavailableError{Model: model, Err: err}
	}
	return nil
}

// Complete accumulates the streamed response into a single string.
func (c *OpenAICompatClient) Complete(ctx context.Context, req Request) (string, error) {
	return complete(ctx, c, req)
}

// ListModels queries the server's /models endpoint.
func (c *OpenAICompatClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	models := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, ModelInfo{Name: m.ID})
	}
	return models, nil
}
