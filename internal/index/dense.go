package index

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/firebase/genkit/go/ai"
)

// Dense is an in-memory nearest-neighbor index over vector-embedded
// documents. Embeddings are computed through the injected ai.Embedder.
//
// Dense is safe for concurrent use: searches read an immutable snapshot and
// Rebuild swaps a freshly built snapshot in under a write lock.
type Dense struct {
	embedder ai.Embedder
	logger   *slog.Logger

	mu   sync.RWMutex
	snap *denseSnapshot
}

// denseSnapshot is an immutable corpus build. A new one replaces the old
// wholesale on Rebuild; it is never mutated in place.
type denseSnapshot struct {
	docs    []Document
	vectors [][]float32
}

// NewDense creates an empty dense index.
func NewDense(embedder ai.Embedder, logger *slog.Logger) (*Dense, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dense{embedder: embedder, logger: logger, snap: &denseSnapshot{}}, nil
}

// Rebuild embeds all documents and atomically replaces the index contents.
// In-flight searches keep using the previous snapshot until the swap.
func (d *Dense) Rebuild(ctx context.Context, docs []Document) error {
	if err := ValidateAll(docs); err != nil {
		return err
	}

	snap := &denseSnapshot{
		docs:    make([]Document, len(docs)),
		vectors: make([][]float32, len(docs)),
	}
	copy(snap.docs, docs)

	if len(docs) > 0 {
		input := make([]*ai.Document, len(docs))
		for i, doc := range docs {
			input[i] = ai.DocumentFromText(doc.Content, nil)
		}

		resp, err := d.embedder.Embed(ctx, &ai.EmbedRequest{Input: input})
		if err != nil {
			return fmt.Errorf("embedding corpus: %w", err)
		}
		if len(resp.Embeddings) != len(docs) {
			return fmt.Errorf("embedder returned %d vectors for %d documents", len(resp.Embeddings), len(docs))
		}
		for i, emb := range resp.Embeddings {
			snap.vectors[i] = emb.Embedding
		}
	}

	d.mu.Lock()
	d.snap = snap
	d.mu.Unlock()

	d.logger.Debug("dense index rebuilt", "documents", len(docs))
	return nil
}

// Search returns the top k documents by cosine similarity to the query.
// An empty corpus yields an empty, non-error result.
func (d *Dense) Search(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	d.mu.RLock()
	snap := d.snap
	d.mu.RUnlock()

	if len(snap.docs) == 0 || k <= 0 {
		return nil, nil
	}

	resp, err := d.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(query, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedder returned empty query vector")
	}
	qv := resp.Embeddings[0].Embedding

	results := make([]ScoredDocument, 0, len(snap.docs))
	for i, doc := range snap.docs {
		results = append(results, ScoredDocument{
			Document: doc,
			Score:    cosineSimilarity(qv, snap.vectors[i]),
		})
	}

	// Stable sort keeps indexing order for equal scores, so results are
	// reproducible for a fixed corpus and query.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of indexed documents.
func (d *Dense) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.snap.docs)
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Mismatched or zero-magnitude vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
