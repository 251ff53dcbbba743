package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/codefionn/agentwerk/internal/consts"
)

const (
	searchEndpoint       = "https://html.duckduckgo.com/html/"
	defaultSearchResults = 5
	maxSearchResults     = 25
)

// searchResult is one parsed hit from the results page.
type searchResult struct {
	Title   string
	URL     string
	Snippet string
}

// WebSearchTool queries the DuckDuckGo HTML endpoint, which needs no API
// key, and scrapes the result list.
type WebSearchTool struct {
	client   *http.Client
	endpoint string
}

func NewWebSearchTool(client *http.Client) *WebSearchTool {
	if client == nil {
		client = &http.Client{Timeout: consts.Timeout30Seconds}
	}
	return &WebSearchTool{client: client, endpoint: searchEndpoint}
}

func (t *WebSearchTool) Spec() ToolSpec {
	return ToolSpec{
		Name: ToolWebSearch,
		Params: []Param{
			{Name: "query", Required: true},
			{Name: "max_results"},
		},
		Description: "Search the web and return numbered results with title, URL and snippet. Optional max_results (default 5).",
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query := strings.TrimSpace(GetStringParam(args, "query", ""))
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	maxResults := GetIntParam(args, "max_results", defaultSearchResults)
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}
	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}

	results, err := t.search(ctx, query, maxResults)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return "no results found for: " + query, nil
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (t *WebSearchTool) search(ctx context.Context, query string, maxResults int) ([]searchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	// The endpoint serves CAPTCHAs to obvious bots.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, consts.BufferSize1MB))
	if err != nil {
		return nil, err
	}

	return parseSearchResults(string(body), maxResults)
}

// parseSearchResults walks the results page. Each hit is a div whose class
// contains both "result" and "results_links".
func parseSearchResults(page string, maxResults int) ([]searchResult, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var results []searchResult
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" {
			class := attrValue(n, "class")
			if strings.Contains(class, "result") && strings.Contains(class, "results_links") {
				if r := parseResultNode(n); r.Title != "" && r.URL != "" {
					results = append(results, r)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return results, nil
}

func parseResultNode(n *html.Node) searchResult {
	var r searchResult
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			class := attrValue(n, "class")
			switch {
			case strings.Contains(class, "result__a"):
				r.URL = resolveRedirect(attrValue(n, "href"))
				r.Title = textContent(n)
			case strings.Contains(class, "result__snippet"):
				r.Snippet = textContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return r
}

// resolveRedirect unwraps the interstitial /l/?uddg=<target> links the
// endpoint wraps results in.
func resolveRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.TrimSpace(sb.String())
}
