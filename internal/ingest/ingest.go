// Package ingest bootstraps the document corpus from web pages and local
// files, splitting content into overlapping chunks for indexing.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/koopa0/ragent/internal/index"
)

// defaultFetchTimeout bounds page fetches when no client is supplied.
const defaultFetchTimeout = 30 * time.Second

// Loader fetches and chunks source material into documents.
type Loader struct {
	chunkSize    int
	chunkOverlap int
	client       *http.Client
	logger       *slog.Logger
}

// Config carries the Loader settings.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	Client       *http.Client
	Logger       *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(cfg Config) (*Loader, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", cfg.ChunkOverlap)
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: defaultFetchTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loader{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		client:       cfg.Client,
		logger:       cfg.Logger,
	}, nil
}

// FromURL fetches a web page, extracts the readable article text, and
// returns it chunked. The page URL becomes the document source.
func (l *Loader) FromURL(ctx context.Context, pageURL string) ([]index.Document, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url %q: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %q: %w", pageURL, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %q: status %d", pageURL, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return nil, fmt.Errorf("extracting article from %q: %w", pageURL, err)
	}

	docs := l.chunk(article.TextContent, pageURL)
	l.logger.Info("url ingested", "url", pageURL, "title", article.Title, "chunks", len(docs))
	return docs, nil
}

// FromFile reads a local text file and returns it chunked. The file path
// becomes the document source.
func (l *Loader) FromFile(path string) ([]index.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	docs := l.chunk(string(content), filepath.ToSlash(path))
	l.logger.Info("file ingested", "path", path, "chunks", len(docs))
	return docs, nil
}

// chunk splits text into overlapping rune windows. Each chunk advances by
// chunkSize minus chunkOverlap, so consecutive chunks share context.
func (l *Loader) chunk(text, source string) []index.Document {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	stride := l.chunkSize - l.chunkOverlap

	var docs []index.Document
	for start := 0; start < len(runes); start += stride {
		end := start + l.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			docs = append(docs, index.NewDocument(piece, map[string]string{
				index.MetadataSource: source,
			}))
		}
		if end == len(runes) {
			break
		}
	}
	return docs
}
