// Package orchestrator drives one question-answering turn through an
// explicit state machine: retrieve, decide, answer, persist.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/koopa0/ragent/internal/agent"
	"github.com/koopa0/ragent/internal/checkpoint"
	"github.com/koopa0/ragent/internal/index"
	"github.com/koopa0/ragent/internal/judge"
)

// State is a stage of the per-turn state machine. Each turn passes through
// the states in order; there are no cycles.
type State int

const (
	// StateStart is the initial state before retrieval.
	StateStart State = iota
	// StateRetrieved holds after corpus retrieval, successful or degraded.
	StateRetrieved
	// StateDecided holds after the sufficiency gate routed the turn.
	StateDecided
	// StateAnswered holds once an answer exists, from either path.
	StateAnswered
	// StatePersisted is the terminal state after the checkpoint write.
	StatePersisted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateRetrieved:
		return "retrieved"
	case StateDecided:
		return "decided"
	case StateAnswered:
		return "answered"
	case StatePersisted:
		return "persisted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidInput rejects unusable questions or thread ids.
var ErrInvalidInput = errors.New("invalid input")

// Retriever supplies context documents for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]index.Document, error)
}

// Gate routes a turn between the direct and agent paths.
type Gate interface {
	Decide(ctx context.Context, question string, docs []index.Document) (judge.Decision, error)
}

// Generator produces the direct answer from retrieved context.
type Generator interface {
	Generate(ctx context.Context, question string, docs []index.Document) (string, error)
}

// AgentRunner executes the tool-augmented search.
type AgentRunner interface {
	Run(ctx context.Context, question string) (*agent.Result, error)
}

// Result is the outcome of one turn.
type Result struct {
	Answer        string           `json:"answer"`
	Decision      judge.Decision   `json:"decision"`
	RetrievedDocs []index.Document `json:"retrieved_docs,omitempty"`
	AgentSteps    []agent.Step     `json:"agent_steps,omitempty"`
	// Degraded reports that the answer was produced but checkpoint
	// persistence failed; the accompanying error carries the cause.
	Degraded bool `json:"degraded,omitempty"`
}

// Config carries the Orchestrator dependencies.
type Config struct {
	Retriever Retriever
	Gate      Gate
	Generator Generator
	Agent     AgentRunner
	Store     checkpoint.Store
	Logger    *slog.Logger
}

func (c *Config) validate() error {
	if c.Retriever == nil {
		return fmt.Errorf("retriever is required")
	}
	if c.Gate == nil {
		return fmt.Errorf("gate is required")
	}
	if c.Generator == nil {
		return fmt.Errorf("generator is required")
	}
	if c.Agent == nil {
		return fmt.Errorf("agent is required")
	}
	if c.Store == nil {
		return fmt.Errorf("checkpoint store is required")
	}
	return nil
}

// Orchestrator runs question-answering turns.
type Orchestrator struct {
	retriever Retriever
	gate      Gate
	generator Generator
	agent     AgentRunner
	store     checkpoint.Store
	logger    *slog.Logger
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		retriever: cfg.Retriever,
		gate:      cfg.Gate,
		generator: cfg.Generator,
		agent:     cfg.Agent,
		store:     cfg.Store,
		logger:    cfg.Logger,
	}, nil
}

// Run executes one turn for a question on a thread.
//
// Error policy per stage:
//   - retrieval failure degrades to empty context and the agent path
//   - direct answer failure is fatal for the turn, nothing is persisted
//   - agent failure becomes an error-message answer and is persisted
//   - checkpoint failure returns BOTH the completed Result and the error,
//     with Result.Degraded set
func (o *Orchestrator) Run(ctx context.Context, threadID, question string) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", ErrInvalidInput)
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, fmt.Errorf("%w: empty thread id", ErrInvalidInput)
	}

	logger := o.logger.With("thread_id", threadID)
	state := StateStart
	logger.Debug("turn started", "state", state)

	// START -> RETRIEVED. Retrieval failure is contained: the turn
	// continues with no context, which forces the agent path.
	docs, err := o.retriever.Retrieve(ctx, question)
	if err != nil {
		logger.Warn("retrieval degraded", "error", err)
		docs = nil
	}
	state = StateRetrieved
	logger.Debug("state transition", "state", state, "documents", len(docs))

	// RETRIEVED -> DECIDED. The gate fails open internally; Decide only
	// errors on programmer mistakes.
	decision, err := o.gate.Decide(ctx, question, docs)
	if err != nil {
		logger.Warn("gate failed, routing to agent", "error", err)
		decision = judge.AgentSearch
	}
	state = StateDecided
	logger.Debug("state transition", "state", state, "decision", decision)

	result := &Result{Decision: decision, RetrievedDocs: docs}

	// DECIDED -> ANSWERED.
	switch decision {
	case judge.DirectAnswer:
		answer, err := o.generator.Generate(ctx, question, docs)
		if err != nil {
			logger.Error("direct answer failed", "error", err)
			return nil, err
		}
		result.Answer = answer
	case judge.AgentSearch:
		agentResult, err := o.agent.Run(ctx, question)
		if err != nil {
			// The turn still produces a persistable outcome: the user
			// gets an honest failure message, the thread keeps its record.
			logger.Error("agent failed", "error", err)
			result.Answer = fmt.Sprintf("The search could not be completed: %v", err)
		} else {
			result.Answer = agentResult.Answer
			result.AgentSteps = agentResult.Steps
		}
	}
	state = StateAnswered
	logger.Debug("state transition", "state", state)

	// ANSWERED -> PERSISTED.
	saveErr := o.store.Save(ctx, threadID, checkpoint.SessionState{
		Question:      question,
		RetrievedDocs: docs,
		Answer:        result.Answer,
	})
	if saveErr != nil {
		logger.Error("checkpoint save failed", "error", saveErr)
		result.Degraded = true
		if !errors.Is(saveErr, checkpoint.ErrCheckpointIO) {
			saveErr = fmt.Errorf("%w: %v", checkpoint.ErrCheckpointIO, saveErr)
		}
		return result, saveErr
	}
	state = StatePersisted
	logger.Info("turn complete", "state", state, "decision", decision)

	return result, nil
}

// History returns the latest persisted state for a thread.
func (o *Orchestrator) History(ctx context.Context, threadID string) (checkpoint.SessionState, bool, error) {
	if strings.TrimSpace(threadID) == "" {
		return checkpoint.SessionState{}, false, fmt.Errorf("%w: empty thread id", ErrInvalidInput)
	}
	return o.store.Load(ctx, threadID)
}
