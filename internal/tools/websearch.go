package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultTavilyBaseURL = "https://api.tavily.com"

// WebSearchTool queries the Tavily search API for current web results.
type WebSearchTool struct {
	apiKey     string
	maxResults int
	baseURL    string
	client     *http.Client
}

// WebSearchOption customizes a WebSearchTool.
type WebSearchOption func(*WebSearchTool)

// WithWebSearchBaseURL overrides the API endpoint. Used in tests.
func WithWebSearchBaseURL(u string) WebSearchOption {
	return func(t *WebSearchTool) { t.baseURL = strings.TrimRight(u, "/") }
}

// WithWebSearchClient overrides the HTTP client.
func WithWebSearchClient(c *http.Client) WebSearchOption {
	return func(t *WebSearchTool) { t.client = c }
}

// NewWebSearchTool creates a WebSearchTool.
func NewWebSearchTool(apiKey string, maxResults int, opts ...WebSearchOption) (*WebSearchTool, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tavily api key is required")
	}
	if maxResults <= 0 {
		return nil, fmt.Errorf("max results must be positive")
	}
	t := &WebSearchTool{
		apiKey:     apiKey,
		maxResults: maxResults,
		baseURL:    defaultTavilyBaseURL,
		client:     newDefaultClient(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Name implements Tool.
func (t *WebSearchTool) Name() string { return "web_search" }

// Description implements Tool.
func (t *WebSearchTool) Description() string {
	return "Searches the web for current information. Input: a search query. " +
		"Returns titles, URLs, and content snippets of the top results."
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Invoke implements Tool.
func (t *WebSearchTool) Invoke(ctx context.Context, input string) (string, error) {
	body, err := json.Marshal(tavilyRequest{APIKey: t.apiKey, Query: input, MaxResults: t.maxResults})
	if err != nil {
		return "", fmt.Errorf("encoding search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling search api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("search api returned %d: %s", resp.StatusCode, snippet)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding search response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return "no web results found for this query", nil
	}

	var b strings.Builder
	for i, r := range parsed.Results {
		fmt.Fprintf(&b, "Result %d: %s (%s)\n%s\n", i+1, r.Title, r.URL, r.Content)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
