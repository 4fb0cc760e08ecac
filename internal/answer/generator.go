// Package answer generates the direct answer from retrieved context.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/koopa0/ragent/internal/index"
	"github.com/koopa0/ragent/internal/llm"
)

// ErrAnswerGeneration indicates the direct answer could not be produced.
// This is fatal for the turn; there is no fallback path.
var ErrAnswerGeneration = errors.New("answer generation failed")

const generatorSystemPrompt = `You are a precise assistant. Answer the question using ONLY the ` +
	`provided documents. If the documents do not contain the answer, say so plainly. ` +
	`Cite the document source in brackets when you use it.`

// Generator produces context-grounded answers.
type Generator struct {
	completer llm.Completer
	logger    *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(completer llm.Completer, logger *slog.Logger) (*Generator, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{completer: completer, logger: logger}, nil
}

// Generate answers the question from the documents. The prompt restricts the
// model to the supplied context; it does not forbid an empty document list,
// but the orchestrator only routes here when the gate judged the context
// sufficient.
func (g *Generator) Generate(ctx context.Context, question string, docs []index.Document) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: empty question", ErrAnswerGeneration)
	}

	answer, err := g.completer.Complete(ctx, generatorSystemPrompt, buildAnswerPrompt(question, docs))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnswerGeneration, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: model returned empty answer", ErrAnswerGeneration)
	}

	g.logger.Debug("answer generated", "question_len", len(question), "documents", len(docs))
	return answer, nil
}

func buildAnswerPrompt(question string, docs []index.Document) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nDocuments:\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, doc.Source(), doc.Content)
	}
	return b.String()
}
