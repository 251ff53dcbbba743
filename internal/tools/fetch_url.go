package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/codefionn/agentwerk/internal/consts"
	"github.com/codefionn/agentwerk/internal/htmlconv"
)

// FetchURLTool performs HTTP GET requests. HTML bodies are converted to
// markdown before they reach the observation log.
type FetchURLTool struct {
	client *http.Client
}

func NewFetchURLTool(client *http.Client) *FetchURLTool {
	if client == nil {
		client = &http.Client{Timeout: consts.Timeout30Seconds}
	}
	return &FetchURLTool{client: client}
}

func (t *FetchURLTool) Spec() ToolSpec {
	return ToolSpec{
		Name: ToolFetchURL,
		Params: []Param{
			{Name: "url", Required: true},
		},
		Description: "Fetch a URL with an HTTP GET request (http or https). HTML pages are converted to markdown; large bodies are truncated.",
	}
}

func (t *FetchURLTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	reqURL, err := normalizeFetchURL(GetStringParam(args, "url", ""))
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, consts.MaxFetchBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	truncated := len(body) > consts.MaxFetchBodyBytes
	if truncated {
		body = body[:consts.MaxFetchBodyBytes]
	}

	finalURL := reqURL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	content, converted := htmlconv.ConvertIfHTML(string(body))

	header := fmt.Sprintf("GET %s -> %d (%d bytes", finalURL, resp.StatusCode, len(body))
	if converted {
		header += ", converted to markdown"
	}
	if truncated {
		header += ", truncated"
	}
	header += ")"

	return header + "\n\n" + content, nil
}

// normalizeFetchURL fills in a missing scheme and rejects anything that is
// not plain http or https.
func normalizeFetchURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("url is required")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		parsed, err = url.Parse("https://" + trimmed)
		if err != nil {
			return nil, err
		}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return parsed, nil
}
