// Package judge implements the sufficiency gate: a model call that decides
// whether retrieved context is enough to answer a question directly, or
// whether the agent should search external sources.
package judge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/koopa0/ragent/internal/index"
	"github.com/koopa0/ragent/internal/llm"
)

// Decision is the routing outcome of the gate.
type Decision int

const (
	// DirectAnswer routes to answer generation from the retrieved context.
	DirectAnswer Decision = iota
	// AgentSearch routes to the tool-augmented agent.
	AgentSearch
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	switch d {
	case DirectAnswer:
		return "direct_answer"
	case AgentSearch:
		return "agent_search"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Verdict is the judge's raw classification of the model response before it
// collapses into a Decision.
type Verdict int

const (
	// Sufficient means the model affirmed the context answers the question.
	Sufficient Verdict = iota
	// Insufficient means the model denied it.
	Insufficient
	// Indeterminate means the response matched neither pattern.
	// Treated as Insufficient: an unsure judge must not block a search.
	Indeterminate
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case Sufficient:
		return "sufficient"
	case Insufficient:
		return "insufficient"
	case Indeterminate:
		return "indeterminate"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

const judgeSystemPrompt = `You are a strict relevance judge. ` +
	`Given a question and retrieved documents, decide whether the documents contain enough ` +
	`information to answer the question. Reply with exactly one word: "yes" if they do, "no" if they do not.`

// Gate is the sufficiency gate.
//
// Failure modes are deliberately asymmetric: any model error or unreadable
// verdict routes to AgentSearch, never to a direct answer from context the
// judge could not vouch for.
type Gate struct {
	completer    llm.Completer
	affirmatives []string
	logger       *slog.Logger
}

// NewGate creates a Gate. affirmatives is the token set recognized as a
// "sufficient" verdict, matched case-insensitively as substrings.
func NewGate(completer llm.Completer, affirmatives []string, logger *slog.Logger) (*Gate, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if len(affirmatives) == 0 {
		return nil, fmt.Errorf("at least one affirmative token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{completer: completer, affirmatives: affirmatives, logger: logger}, nil
}

// Decide routes the question. Empty context short-circuits to AgentSearch
// without a model call; there is nothing to judge.
func (g *Gate) Decide(ctx context.Context, question string, docs []index.Document) (Decision, error) {
	if len(docs) == 0 {
		g.logger.Debug("no retrieved context, routing to agent")
		return AgentSearch, nil
	}

	prompt := buildJudgePrompt(question, docs)
	resp, err := g.completer.Complete(ctx, judgeSystemPrompt, prompt)
	if err != nil {
		g.logger.Warn("judge call failed, routing to agent", "error", err)
		return AgentSearch, nil
	}

	verdict := g.classify(resp)
	g.logger.Debug("judge verdict", "verdict", verdict, "response", resp)
	if verdict == Sufficient {
		return DirectAnswer, nil
	}
	return AgentSearch, nil
}

// classify maps the raw model response to a Verdict.
func (g *Gate) classify(resp string) Verdict {
	normalized := strings.ToLower(strings.TrimSpace(resp))
	if normalized == "" {
		return Indeterminate
	}
	for _, token := range g.affirmatives {
		if strings.Contains(normalized, strings.ToLower(token)) {
			return Sufficient
		}
	}
	if strings.Contains(normalized, "no") || strings.Contains(normalized, "non") {
		return Insufficient
	}
	return Indeterminate
}

func buildJudgePrompt(question string, docs []index.Document) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nDocuments:\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, doc.Source(), doc.Content)
	}
	return b.String()
}
