package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/koopa0/ragent/internal/index"
	"github.com/koopa0/ragent/internal/log"
)

type fakeCompleter struct {
	response   string
	err        error
	lastPrompt string
}

func (c *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	c.lastPrompt = prompt
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func TestGeneratorGenerate(t *testing.T) {
	completer := &fakeCompleter{response: "Paris is the capital of France. [geo]"}
	gen, err := NewGenerator(completer, log.NewNop())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	docs := []index.Document{
		index.NewDocument("Paris is the capital of France.", map[string]string{index.MetadataSource: "geo"}),
	}
	answer, err := gen.Generate(context.Background(), "What is the capital of France?", docs)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "Paris is the capital of France. [geo]" {
		t.Errorf("Generate() = %q, unexpected answer", answer)
	}

	if !strings.Contains(completer.lastPrompt, "What is the capital of France?") {
		t.Error("prompt does not contain the question")
	}
	if !strings.Contains(completer.lastPrompt, "(geo)") {
		t.Error("prompt does not contain the document source")
	}
}

func TestGeneratorGenerateFailures(t *testing.T) {
	tests := []struct {
		name     string
		question string
		response string
		err      error
	}{
		{"model error", "question", "", errors.New("model unreachable")},
		{"empty answer", "question", "   ", nil},
		{"empty question", "  ", "irrelevant", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := NewGenerator(&fakeCompleter{response: tt.response, err: tt.err}, log.NewNop())
			if err != nil {
				t.Fatalf("NewGenerator() error = %v", err)
			}

			_, err = gen.Generate(context.Background(), tt.question, nil)
			if !errors.Is(err, ErrAnswerGeneration) {
				t.Errorf("Generate() error = %v, want ErrAnswerGeneration", err)
			}
		})
	}
}

func TestNewGeneratorValidation(t *testing.T) {
	if _, err := NewGenerator(nil, log.NewNop()); err == nil {
		t.Error("NewGenerator(nil) succeeded, want error")
	}
}
