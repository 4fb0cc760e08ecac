package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// WikipediaTool queries the MediaWiki API for article extracts.
//
// A single request combines generator=search with prop=extracts so the top
// matching pages come back with their plain-text intros in one round trip.
type WikipediaTool struct {
	language string
	topK     int
	baseURL  string
	client   *http.Client
}

// WikipediaOption customizes a WikipediaTool.
type WikipediaOption func(*WikipediaTool)

// WithWikipediaBaseURL overrides the API endpoint. Used in tests.
func WithWikipediaBaseURL(u string) WikipediaOption {
	return func(t *WikipediaTool) { t.baseURL = strings.TrimRight(u, "/") }
}

// WithWikipediaClient overrides the HTTP client.
func WithWikipediaClient(c *http.Client) WikipediaOption {
	return func(t *WikipediaTool) { t.client = c }
}

// NewWikipediaTool creates a WikipediaTool for the given language edition.
func NewWikipediaTool(language string, topK int, opts ...WikipediaOption) (*WikipediaTool, error) {
	if language == "" {
		return nil, fmt.Errorf("language is required")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("top-k must be positive")
	}
	t := &WikipediaTool{
		language: language,
		topK:     topK,
		baseURL:  fmt.Sprintf("https://%s.wikipedia.org/w/api.php", language),
		client:   newDefaultClient(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Name implements Tool.
func (t *WikipediaTool) Name() string { return "wikipedia" }

// Description implements Tool.
func (t *WikipediaTool) Description() string {
	return "Searches Wikipedia for encyclopedic knowledge. Input: a topic or question. " +
		"Returns summaries of the most relevant articles."
}

type wikipediaResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Index   int    `json:"index"`
		} `json:"pages"`
	} `json:"query"`
}

// Invoke implements Tool.
func (t *WikipediaTool) Invoke(ctx context.Context, input string) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"generator":     {"search"},
		"gsrsearch":     {input},
		"gsrlimit":      {strconv.Itoa(t.topK)},
		"prop":          {"extracts"},
		"exintro":       {"1"},
		"explaintext":   {"1"},
		"formatversion": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building wikipedia request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling wikipedia api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wikipedia api returned %d", resp.StatusCode)
	}

	var parsed wikipediaResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding wikipedia response: %w", err)
	}
	if len(parsed.Query.Pages) == 0 {
		return "no wikipedia articles found for this query", nil
	}

	// Pages arrive as a map keyed by page ID; the search rank is in Index.
	type page struct {
		title, extract string
		rank           int
	}
	pages := make([]page, 0, len(parsed.Query.Pages))
	for _, p := range parsed.Query.Pages {
		pages = append(pages, page{title: p.Title, extract: p.Extract, rank: p.Index})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].rank < pages[j].rank })

	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "Article: %s\n%s\n\n", p.title, p.extract)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
