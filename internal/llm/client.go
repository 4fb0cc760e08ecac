// Package llm wraps the Genkit language-model surface behind a minimal
// Completer contract so the gate, generator, reranker, and agent can be
// unit-tested with scripted stand-ins instead of a live model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
)

// Completer is the minimal language-model contract consumed by this
// application. Implementations issue one completion per call; the system
// prompt may be empty.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ErrModelUnavailable indicates the model call failed after exhausting
// retries. Callers decide whether this is fatal (direct generation, agent
// reasoning) or contained (sufficiency judging, reranking).
var ErrModelUnavailable = errors.New("model unavailable")

// Config contains all required parameters for the Genkit-backed client.
type Config struct {
	Genkit      *genkit.Genkit
	ModelName   string // Provider-qualified model name (e.g. "googleai/gemini-2.5-flash")
	Temperature float32
	Logger      *slog.Logger

	// Retry holds backoff settings for transient failures (zero value uses defaults).
	Retry RetryConfig

	// Limiter is an optional proactive rate limiter applied before each attempt.
	Limiter *rate.Limiter
}

// Client is the production Completer backed by Genkit.
//
// All configuration is captured immutably at construction time so the client
// is safe for concurrent use across turns.
type Client struct {
	g           *genkit.Genkit
	modelName   string
	temperature float32
	retry       RetryConfig
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	return &Client{
		g:           cfg.Genkit,
		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
		retry:       retry,
		limiter:     cfg.Limiter,
		logger:      logger,
	}, nil
}

// Complete issues one generation request and returns the response text.
// Transient provider failures are retried with exponential backoff; a final
// failure is wrapped in ErrModelUnavailable.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithPrompt(prompt),
		ai.WithConfig(map[string]any{"temperature": c.temperature}),
	}
	if system != "" {
		opts = append(opts, ai.WithSystem(system))
	}

	resp, err := c.generateWithRetry(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrModelUnavailable)
	}
	return text, nil
}
