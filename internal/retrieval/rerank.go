package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"github.com/koopa0/ragent/internal/index"
	"github.com/koopa0/ragent/internal/llm"
)

// Reranker rescores a small candidate set with a pairwise query-document
// relevance model. Rerank scores replace fusion scores entirely; the two
// scales are unrelated.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []index.ScoredDocument) ([]index.ScoredDocument, error)
}

const rerankSystemPrompt = `You are a relevance grader. ` +
	`Given a search query and a document, rate how well the document answers the query. ` +
	`Respond with ONLY an integer from 0 (irrelevant) to 100 (directly answers the query). ` +
	`No explanation, no punctuation.`

var firstIntPattern = regexp.MustCompile(`-?\d+`)

// ModelReranker grades each (query, candidate) pair with one model call,
// standing in for a cross-encoder. Unparseable grades degrade that candidate
// to score 0; a transport failure fails the whole batch so the engine can
// fall back to fusion order.
type ModelReranker struct {
	completer llm.Completer
	logger    *slog.Logger
}

// NewModelReranker creates a ModelReranker.
func NewModelReranker(completer llm.Completer, logger *slog.Logger) (*ModelReranker, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelReranker{completer: completer, logger: logger}, nil
}

// Rerank scores every candidate against the query and re-sorts by the new
// score, descending. Input fusion order is preserved for equal scores.
func (r *ModelReranker) Rerank(ctx context.Context, query string, candidates []index.ScoredDocument) ([]index.ScoredDocument, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	reranked := make([]index.ScoredDocument, len(candidates))
	for i, cand := range candidates {
		prompt := fmt.Sprintf("Query: %s\n\nDocument:\n%s", query, cand.Document.Content)
		resp, err := r.completer.Complete(ctx, rerankSystemPrompt, prompt)
		if err != nil {
			return nil, fmt.Errorf("grading candidate %d: %w", i, err)
		}

		reranked[i] = index.ScoredDocument{
			Document: cand.Document,
			Score:    r.parseGrade(cand.Document.ID, resp),
		}
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	return reranked, nil
}

// parseGrade extracts the integer grade, clamped to [0, 100].
// A response with no integer degrades to 0 rather than failing the batch.
func (r *ModelReranker) parseGrade(docID, resp string) float64 {
	match := firstIntPattern.FindString(resp)
	if match == "" {
		r.logger.Warn("reranker returned no grade", "document_id", docID, "response", resp)
		return 0
	}
	grade, err := strconv.Atoi(match)
	if err != nil {
		r.logger.Warn("reranker grade unparseable", "document_id", docID, "response", resp)
		return 0
	}
	if grade < 0 {
		return 0
	}
	if grade > 100 {
		return 100
	}
	return float64(grade)
}
