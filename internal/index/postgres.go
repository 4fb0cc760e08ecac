package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// Pool defines the database operations PostgresDense needs.
// *pgxpool.Pool satisfies it in production.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresDense is a pgvector-backed dense index for corpora that must
// survive restarts. It is the durable alternative to Dense; both satisfy the
// retrieval engine's Searcher contract.
//
// Rebuild replaces rows per document via UPSERT inside one transaction-free
// pass; each SELECT sees a consistent row set because pgvector queries are
// single statements.
type PostgresDense struct {
	pool     Pool
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewPostgresDense creates a pgvector-backed dense index.
func NewPostgresDense(pool Pool, embedder ai.Embedder, logger *slog.Logger) (*PostgresDense, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDense{pool: pool, embedder: embedder, logger: logger}, nil
}

// Rebuild clears the documents table and re-indexes the given corpus.
func (p *PostgresDense) Rebuild(ctx context.Context, docs []Document) error {
	if err := ValidateAll(docs); err != nil {
		return err
	}

	if _, err := p.pool.Exec(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}

	for _, doc := range docs {
		if err := p.upsert(ctx, doc); err != nil {
			return err
		}
	}

	p.logger.Debug("postgres dense index rebuilt", "documents", len(docs))
	return nil
}

func (p *PostgresDense) upsert(ctx context.Context, doc Document) error {
	resp, err := p.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(doc.Content, nil)},
	})
	if err != nil {
		return fmt.Errorf("embedding document %s: %w", doc.ID, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return fmt.Errorf("empty embedding returned for document %s", doc.ID)
	}
	vec := pgvector.NewVector(resp.Embeddings[0].Embedding)

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %s: %w", doc.ID, err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO documents (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4::vector)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
		    metadata = EXCLUDED.metadata,
		    embedding = EXCLUDED.embedding`,
		doc.ID, doc.Content, metadata, vec.String())
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}
	return nil
}

// Search returns the top k documents by cosine similarity to the query.
func (p *PostgresDense) Search(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	if k <= 0 {
		return nil, nil
	}

	resp, err := p.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(query, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedder returned empty query vector")
	}
	qv := pgvector.NewVector(resp.Embeddings[0].Embedding)

	rows, err := p.pool.Query(ctx, `
		SELECT id, content, metadata, 1 - (embedding <=> $1::vector) AS similarity
		FROM documents
		ORDER BY embedding <=> $1::vector
		LIMIT $2`,
		qv.String(), k)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}
	defer rows.Close()

	var results []ScoredDocument
	for rows.Next() {
		var (
			id, content string
			metadata    []byte
			similarity  float64
		)
		if err := rows.Scan(&id, &content, &metadata, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}

		meta := map[string]string{}
		if err := json.Unmarshal(metadata, &meta); err != nil {
			p.logger.Warn("unparseable document metadata", "document_id", id, "error", err)
		}

		results = append(results, ScoredDocument{
			Document: Document{ID: id, Content: content, Metadata: meta},
			Score:    similarity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}
	return results, nil
}
