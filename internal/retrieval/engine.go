package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/koopa0/ragent/internal/config"
	"github.com/koopa0/ragent/internal/index"
)

// ErrAllIndicesUnavailable indicates both candidate indices failed for a
// query, leaving nothing to fuse.
var ErrAllIndicesUnavailable = errors.New("all indices unavailable")

// Searcher is the candidate lookup contract satisfied by both index kinds.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]index.ScoredDocument, error)
}

// Rebuilder is implemented by indices that can replace their corpus.
type Rebuilder interface {
	Rebuild(ctx context.Context, docs []index.Document) error
}

// Engine composes dense and sparse lookup, fusion, and reranking into the
// retrieval operation the orchestrator consumes.
//
// Degrade policy: a single failed index is logged and skipped, the pipeline
// continues with the surviving candidates. A failed reranker falls back to
// fusion order. Only the loss of both indices is an error.
type Engine struct {
	dense    Searcher
	sparse   Searcher
	reranker Reranker
	cfg      config.RetrievalConfig
	logger   *slog.Logger
}

// Config carries the Engine dependencies.
type Config struct {
	Dense     Searcher
	Sparse    Searcher
	Reranker  Reranker
	Retrieval config.RetrievalConfig
	Logger    *slog.Logger
}

func (c *Config) validate() error {
	if c.Dense == nil {
		return fmt.Errorf("dense searcher is required")
	}
	if c.Sparse == nil {
		return fmt.Errorf("sparse searcher is required")
	}
	if c.Reranker == nil {
		return fmt.Errorf("reranker is required")
	}
	if c.Retrieval.DenseTopK <= 0 || c.Retrieval.SparseTopK <= 0 || c.Retrieval.FinalTopK <= 0 {
		return fmt.Errorf("top-k values must be positive")
	}
	return nil
}

// New creates a retrieval Engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid retrieval config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		dense:    cfg.Dense,
		sparse:   cfg.Sparse,
		reranker: cfg.Reranker,
		cfg:      cfg.Retrieval,
		logger:   cfg.Logger,
	}, nil
}

// Retrieve runs the full pipeline for one query: parallel-free sequential
// lookup of both indices, weighted fusion, rerank, truncation to the final
// top-k. An empty query returns no documents and touches no index.
func (e *Engine) Retrieve(ctx context.Context, query string) ([]index.Document, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	denseHits, denseErr := e.dense.Search(ctx, query, e.cfg.DenseTopK)
	if denseErr != nil {
		e.logger.Warn("dense index unavailable, continuing sparse-only", "error", denseErr)
	}
	sparseHits, sparseErr := e.sparse.Search(ctx, query, e.cfg.SparseTopK)
	if sparseErr != nil {
		e.logger.Warn("sparse index unavailable, continuing dense-only", "error", sparseErr)
	}
	if denseErr != nil && sparseErr != nil {
		return nil, fmt.Errorf("%w: dense: %v; sparse: %v", ErrAllIndicesUnavailable, denseErr, sparseErr)
	}

	fused := Fuse(denseHits, sparseHits, e.cfg.DenseWeight, e.cfg.SparseWeight)
	if len(fused) == 0 {
		return nil, nil
	}

	ranked, err := e.reranker.Rerank(ctx, query, fused)
	if err != nil {
		e.logger.Warn("reranker unavailable, using fusion order", "error", err)
		ranked = fused
	}

	if len(ranked) > e.cfg.FinalTopK {
		ranked = ranked[:e.cfg.FinalTopK]
	}

	docs := make([]index.Document, len(ranked))
	for i, sd := range ranked {
		docs[i] = sd.Document
	}
	e.logger.Debug("retrieval complete",
		"dense_hits", len(denseHits),
		"sparse_hits", len(sparseHits),
		"fused", len(fused),
		"returned", len(docs))
	return docs, nil
}

// Rebuild replaces the corpus of every index that supports rebuilding.
func (e *Engine) Rebuild(ctx context.Context, docs []index.Document) error {
	for _, idx := range []Searcher{e.dense, e.sparse} {
		rb, ok := idx.(Rebuilder)
		if !ok {
			continue
		}
		if err := rb.Rebuild(ctx, docs); err != nil {
			return fmt.Errorf("rebuilding index: %w", err)
		}
	}
	return nil
}
