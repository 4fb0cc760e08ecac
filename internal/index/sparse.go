package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// Sparse is a keyword-statistical index backed by an in-memory bleve index.
// Bleve's default scorer provides the BM25-style term weighting the sparse
// retrieval leg needs, without any external service.
//
// Sparse is safe for concurrent use: Rebuild constructs a fresh bleve index
// and swaps it in atomically; the previous index is closed after the swap.
type Sparse struct {
	logger *slog.Logger

	mu   sync.RWMutex
	idx  bleve.Index
	docs map[string]Document
}

// sparseDoc is the shape indexed into bleve. Only content is searchable;
// full documents are kept in a side map keyed by ID.
type sparseDoc struct {
	Content string `json:"content"`
}

// NewSparse creates an empty sparse index.
func NewSparse(logger *slog.Logger) (*Sparse, error) {
	if logger == nil {
		logger = slog.Default()
	}

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}

	return &Sparse{logger: logger, idx: idx, docs: map[string]Document{}}, nil
}

// Rebuild indexes all documents into a fresh bleve index and atomically
// replaces the current one.
func (s *Sparse) Rebuild(ctx context.Context, docs []Document) error {
	if err := ValidateAll(docs); err != nil {
		return err
	}

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("creating bleve index: %w", err)
	}

	batch := idx.NewBatch()
	byID := make(map[string]Document, len(docs))
	for _, doc := range docs {
		if err := batch.Index(doc.ID, sparseDoc{Content: doc.Content}); err != nil {
			_ = idx.Close()
			return fmt.Errorf("batching document %s: %w", doc.ID, err)
		}
		byID[doc.ID] = doc
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("indexing batch: %w", err)
	}

	s.mu.Lock()
	old := s.idx
	s.idx = idx
	s.docs = byID
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			s.logger.Warn("closing previous sparse index", "error", err)
		}
	}

	s.logger.Debug("sparse index rebuilt", "documents", len(docs))
	return nil
}

// Search returns the top k documents by keyword relevance score.
// An empty corpus or query with no matches yields an empty result.
func (s *Sparse) Search(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	s.mu.RLock()
	idx := s.idx
	docs := s.docs
	s.mu.RUnlock()

	if len(docs) == 0 || k <= 0 {
		return nil, nil
	}

	q := bleve.NewMatchQuery(query)
	q.SetField("content")
	req := bleve.NewSearchRequestOptions(q, k, 0, false)

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", err)
	}

	results := make([]ScoredDocument, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc, ok := docs[hit.ID]
		if !ok {
			// Hit from a stale segment; skip rather than fabricate.
			continue
		}
		results = append(results, ScoredDocument{Document: doc, Score: hit.Score})
	}
	return results, nil
}

// Len returns the number of indexed documents.
func (s *Sparse) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Close releases the underlying bleve index.
func (s *Sparse) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx == nil {
		return nil
	}
	err := s.idx.Close()
	s.idx = nil
	s.docs = nil
	return err
}
