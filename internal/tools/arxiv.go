package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const defaultArxivBaseURL = "https://export.arxiv.org/api/query"

// ArxivTool queries the arXiv Atom API for paper abstracts.
type ArxivTool struct {
	topK     int
	maxChars int
	baseURL  string
	client   *http.Client
}

// ArxivOption customizes an ArxivTool.
type ArxivOption func(*ArxivTool)

// WithArxivBaseURL overrides the API endpoint. Used in tests.
func WithArxivBaseURL(u string) ArxivOption {
	return func(t *ArxivTool) { t.baseURL = strings.TrimRight(u, "/") }
}

// WithArxivClient overrides the HTTP client.
func WithArxivClient(c *http.Client) ArxivOption {
	return func(t *ArxivTool) { t.client = c }
}

// NewArxivTool creates an ArxivTool. Abstracts are truncated to maxChars to
// keep observations bounded.
func NewArxivTool(topK, maxChars int, opts ...ArxivOption) (*ArxivTool, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top-k must be positive")
	}
	if maxChars <= 0 {
		return nil, fmt.Errorf("max chars must be positive")
	}
	t := &ArxivTool{
		topK:     topK,
		maxChars: maxChars,
		baseURL:  defaultArxivBaseURL,
		client:   newDefaultClient(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Name implements Tool.
func (t *ArxivTool) Name() string { return "arxiv" }

// Description implements Tool.
func (t *ArxivTool) Description() string {
	return "Searches arXiv for scientific papers. Input: a research topic or keywords. " +
		"Returns titles and abstract excerpts of the most relevant papers."
}

type arxivFeed struct {
	Entries []struct {
		Title   string `xml:"title"`
		Summary string `xml:"summary"`
		ID      string `xml:"id"`
	} `xml:"entry"`
}

// Invoke implements Tool.
func (t *ArxivTool) Invoke(ctx context.Context, input string) (string, error) {
	params := url.Values{
		"search_query": {"all:" + input},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(t.topK)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building arxiv request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling arxiv api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("arxiv api returned %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&feed); err != nil {
		return "", fmt.Errorf("decoding arxiv feed: %w", err)
	}
	if len(feed.Entries) == 0 {
		return "no arxiv papers found for this query", nil
	}

	var b strings.Builder
	for i, entry := range feed.Entries {
		summary := strings.Join(strings.Fields(entry.Summary), " ")
		// Truncate on rune boundaries so multi-byte text stays valid UTF-8.
		if runes := []rune(summary); len(runes) > t.maxChars {
			summary = string(runes[:t.maxChars])
		}
		fmt.Fprintf(&b, "Paper %d: %s (%s)\n%s\n\n",
			i+1, strings.TrimSpace(entry.Title), entry.ID, summary)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
