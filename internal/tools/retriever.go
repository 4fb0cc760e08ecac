package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/koopa0/ragent/internal/index"
)

// Retriever is the slice of the retrieval engine the tool needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]index.Document, error)
}

// RetrieverTool exposes the local corpus to the agent.
type RetrieverTool struct {
	retriever Retriever
}

// NewRetrieverTool creates a RetrieverTool.
func NewRetrieverTool(retriever Retriever) (*RetrieverTool, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	return &RetrieverTool{retriever: retriever}, nil
}

// Name implements Tool.
func (t *RetrieverTool) Name() string { return "retriever" }

// Description implements Tool.
func (t *RetrieverTool) Description() string {
	return "Searches the local document corpus. Input: a search query. " +
		"Returns the most relevant document excerpts with their sources."
}

// Invoke implements Tool. Retrieval failures and empty result sets both come
// back as observations, never as errors: the agent should move on to another
// tool instead of failing the turn.
func (t *RetrieverTool) Invoke(ctx context.Context, input string) (string, error) {
	docs, err := t.retriever.Retrieve(ctx, input)
	if err != nil {
		return fmt.Sprintf("retrieval failed: %v", err), nil
	}
	if len(docs) == 0 {
		return "no documents found in the local corpus for this query", nil
	}

	var b strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&b, "Source %d (%s): %s\n", i+1, doc.Source(), doc.Content)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
