package llm

import (
	"context"
	"strings"
)

// fallbackClient retries one failed model round against a fallback model.
type fallbackClient struct {
	Client
	fallback string
}

// WithFallback wraps c so that a round failing with ModelUnavailable before
// any fragment was delivered is retried once against fallbackModel. Rounds
// that already streamed output are not retried since the consumer would
// observe duplicated fragments. An empty fallbackModel returns c unchanged.
func WithFallback(c Client, fallbackModel string) Client {
	fallbackModel = strings.TrimSpace(fallbackModel)
	if fallbackModel == "" {
		return c
	}
	return &fallbackClient{Client: c, fallback: fallbackModel}
}

func (c *fallbackClient) Stream(ctx context.Context, req Request, fn StreamFunc) error {
	delivered := false
	wrapped := func(fragment string) error {
		delivered = true
		return fn(fragment)
	}

	err := c.Client.Stream(ctx, req, wrapped)
	if err == nil || !IsModelUnavailable(err) || delivered {
		return err
	}
	if ctx.Err() != nil {
		return err
	}

	model := req.Model
	if model == "" {
		model = c.ModelName()
	}
	if model == c.fallback {
		return err
	}

	retry := req
	retry.Model = c.fallback
	return c.Client.Stream(ctx, retry, fn)
}

func (c *fallbackClient) Complete(ctx context.Context, req Request) (string, error) {
	return complete(ctx, c, req)
}
