// Package index provides the document model and the two sub-indices of the
// hybrid retrieval pipeline: a dense (vector similarity) index and a sparse
// (keyword statistical) index over the same corpus.
//
// Both indices share rebuild semantics: Rebuild constructs a fresh index from
// the full document set and atomically swaps it in, so in-flight searches
// never observe a partially built corpus.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// MetadataSource is the metadata key every document must carry. It records
// where the content came from (URL, file path, "system", ...).
const MetadataSource = "source"

// Sentinel errors for document validation.
var (
	// ErrEmptyContent indicates a document with no content.
	ErrEmptyContent = errors.New("document content is empty")

	// ErrMissingSource indicates a document without a "source" metadata entry.
	ErrMissingSource = errors.New("document metadata missing source")
)

// Document is an immutable piece of corpus content. Documents are produced
// by ingestion, owned by the indices once indexed, and never mutated after
// indexing.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// NewDocument creates a Document with a deterministic content-derived ID.
// The metadata map is copied so callers cannot mutate indexed documents.
func NewDocument(content string, metadata map[string]string) Document {
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	sum := sha256.Sum256([]byte(meta[MetadataSource] + "\x00" + content))
	return Document{
		ID:       hex.EncodeToString(sum[:8]),
		Content:  content,
		Metadata: meta,
	}
}

// Source returns the document's source metadata, or "" if absent.
func (d Document) Source() string {
	return d.Metadata[MetadataSource]
}

// Validate checks the document invariants enforced at indexing time.
func (d Document) Validate() error {
	if d.Content == "" {
		return ErrEmptyContent
	}
	if d.Metadata[MetadataSource] == "" {
		return fmt.Errorf("%w: id=%s", ErrMissingSource, d.ID)
	}
	return nil
}

// ValidateAll validates every document, returning the first violation.
func ValidateAll(docs []Document) error {
	for i, doc := range docs {
		if err := doc.Validate(); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	return nil
}

// ScoredDocument pairs a document with a stage-local relevance score.
// Scores from different stages (dense, sparse, fusion, rerank) use different
// scales and must not be compared across stages.
type ScoredDocument struct {
	Document Document
	Score    float64
}
