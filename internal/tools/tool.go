// Package tools provides the external information tools available to the
// agent: corpus retrieval, web search, Wikipedia, and arXiv.
//
// Every tool returns a plain text observation. Errors from Invoke are
// reported to the agent loop, which converts them into observation strings
// so a broken tool never aborts a search.
package tools

import (
	"context"
	"net/http"
	"time"
)

// defaultHTTPTimeout bounds external calls when no custom client is
// supplied, so a stalled service cannot hang the agent loop.
const defaultHTTPTimeout = 15 * time.Second

// maxResponseBytes caps how much of a response body is decoded.
const maxResponseBytes = 1 << 20

func newDefaultClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// Tool is a named capability the agent can invoke with free-text input.
type Tool interface {
	// Name is the identifier the agent uses to select the tool.
	Name() string
	// Description tells the model what the tool does and what input it wants.
	Description() string
	// Invoke runs the tool and returns a text observation.
	Invoke(ctx context.Context, input string) (string, error)
}
