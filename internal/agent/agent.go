// Package agent implements the tool-augmented search loop used when
// retrieved context is insufficient.
//
// The loop follows a plain-text protocol: each iteration the model either
// requests a tool with "TOOL:" and "INPUT:" lines, or finishes with a
// "FINAL:" line. Observations from tool calls are appended to the transcript
// for the next iteration. The iteration budget is a hard cap.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/koopa0/ragent/internal/llm"
	"github.com/koopa0/ragent/internal/tools"
)

// ErrAgentExecution indicates the loop itself failed, as opposed to a tool
// failing inside it. Tool failures are observations; this is a model-level
// fault the caller has to handle.
var ErrAgentExecution = errors.New("agent execution failed")

// UnableToAnswer is the terminal answer when the budget runs out and even a
// summary of the collected observations cannot be produced.
const UnableToAnswer = "I was unable to find a reliable answer to this question."

// Step records one iteration of the loop for diagnostics.
type Step struct {
	Iteration   int    `json:"iteration"`
	Tool        string `json:"tool,omitempty"`
	Input       string `json:"input,omitempty"`
	Observation string `json:"observation,omitempty"`
}

// Result is the outcome of a Run.
type Result struct {
	Answer     string `json:"answer"`
	Steps      []Step `json:"steps"`
	Iterations int    `json:"iterations"`
	Exhausted  bool   `json:"exhausted"`
}

// Agent runs the bounded tool loop.
type Agent struct {
	completer     llm.Completer
	tools         map[string]tools.Tool
	toolOrder     []string
	maxIterations int
	logger        *slog.Logger
}

// Config carries the Agent dependencies.
type Config struct {
	Completer     llm.Completer
	Tools         []tools.Tool
	MaxIterations int
	Logger        *slog.Logger
}

// New creates an Agent. Tool names must be unique.
func New(cfg Config) (*Agent, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if len(cfg.Tools) == 0 {
		return nil, fmt.Errorf("at least one tool is required")
	}
	if cfg.MaxIterations <= 0 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", cfg.MaxIterations)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	byName := make(map[string]tools.Tool, len(cfg.Tools))
	order := make([]string, 0, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		if _, dup := byName[tool.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", tool.Name())
		}
		byName[tool.Name()] = tool
		order = append(order, tool.Name())
	}

	return &Agent{
		completer:     cfg.Completer,
		tools:         byName,
		toolOrder:     order,
		maxIterations: cfg.MaxIterations,
		logger:        cfg.Logger,
	}, nil
}

const agentSystemTemplate = `You are a research agent answering a question with the help of tools.

Available tools:
%s
On each turn, respond in EXACTLY one of these two formats:

To use a tool:
TOOL: <tool name>
INPUT: <input for the tool>

To give the final answer:
FINAL: <your answer>

Use tools to gather evidence before answering. Never invent tool names.`

func (a *Agent) systemPrompt() string {
	var b strings.Builder
	for _, name := range a.toolOrder {
		fmt.Fprintf(&b, "- %s: %s\n", name, a.tools[name].Description())
	}
	return fmt.Sprintf(agentSystemTemplate, b.String())
}

// Run executes the loop for one question.
//
// The model failing mid-loop returns ErrAgentExecution. An exhausted budget
// is not an error: Run makes one last summarization attempt over the
// collected observations and falls back to UnableToAnswer.
func (a *Agent) Run(ctx context.Context, question string) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", ErrAgentExecution)
	}

	system := a.systemPrompt()
	var transcript strings.Builder
	transcript.WriteString("Question: " + question + "\n")

	result := &Result{}
	for i := 1; i <= a.maxIterations; i++ {
		result.Iterations = i
		a.logger.Debug("agent iteration", "iteration", i, "max", a.maxIterations)

		resp, err := a.completer.Complete(ctx, system, transcript.String())
		if err != nil {
			return nil, fmt.Errorf("%w: iteration %d: %v", ErrAgentExecution, i, err)
		}

		if final, ok := parseFinal(resp); ok {
			result.Answer = final
			a.logger.Info("agent finished", "iterations", i)
			return result, nil
		}

		step := Step{Iteration: i}
		toolName, input, ok := parseToolCall(resp)
		if !ok {
			step.Observation = "Response did not follow the protocol. " +
				"Reply with either a TOOL:/INPUT: pair or a FINAL: line."
			a.logger.Warn("agent response unparseable", "iteration", i)
		} else {
			step.Tool = toolName
			step.Input = input
			step.Observation = a.invoke(ctx, toolName, input)
		}
		result.Steps = append(result.Steps, step)

		transcript.WriteString("\n" + strings.TrimSpace(resp) + "\n")
		transcript.WriteString("OBSERVATION: " + step.Observation + "\n")
	}

	// Budget exhausted. Try to salvage an answer from what was gathered.
	result.Exhausted = true
	a.logger.Warn("agent budget exhausted", "iterations", a.maxIterations)

	summary, err := a.completer.Complete(ctx,
		"Summarize an answer to the question from the research transcript. "+
			"If the transcript contains no useful evidence, reply with exactly: NONE",
		transcript.String())
	if err != nil || strings.TrimSpace(summary) == "" || strings.TrimSpace(summary) == "NONE" {
		result.Answer = UnableToAnswer
		return result, nil
	}
	result.Answer = strings.TrimSpace(summary)
	return result, nil
}

// invoke runs a tool and converts every failure into an observation string.
func (a *Agent) invoke(ctx context.Context, name, input string) string {
	tool, ok := a.tools[name]
	if !ok {
		return fmt.Sprintf("unknown tool %q; available tools: %s", name, strings.Join(a.toolOrder, ", "))
	}
	obs, err := tool.Invoke(ctx, input)
	if err != nil {
		a.logger.Warn("tool invocation failed", "tool", name, "error", err)
		return fmt.Sprintf("tool %q failed: %v", name, err)
	}
	return obs
}

// parseFinal extracts the FINAL answer, which may span multiple lines.
func parseFinal(resp string) (string, bool) {
	idx := strings.Index(resp, "FINAL:")
	if idx == -1 {
		return "", false
	}
	// A tool call earlier in the response takes precedence over a FINAL the
	// model tacked on in the same turn.
	if tool := strings.Index(resp, "TOOL:"); tool != -1 && tool < idx {
		return "", false
	}
	answer := strings.TrimSpace(resp[idx+len("FINAL:"):])
	if answer == "" {
		return "", false
	}
	return answer, true
}

// parseToolCall extracts the TOOL and INPUT lines.
func parseToolCall(resp string) (name, input string, ok bool) {
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "TOOL:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "TOOL:"))
		case strings.HasPrefix(line, "INPUT:"):
			input = strings.TrimSpace(strings.TrimPrefix(line, "INPUT:"))
		}
	}
	if name == "" {
		return "", "", false
	}
	return name, input, true
}
