package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"github.com/koopa0/ragent/internal/log"
)

// vocabEmbedder implements ai.Embedder with deterministic bag-of-words
// vectors so similarity ordering is predictable in tests.
type vocabEmbedder struct {
	embedErr  error
	callCount int
}

var testVocab = []string{"paris", "capital", "france", "weather", "golang", "concurrency"}

func (e *vocabEmbedder) Name() string { return "vocab-embedder" }

func (e *vocabEmbedder) Register(r api.Registry) {}

func (e *vocabEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	e.callCount++
	if e.embedErr != nil {
		return nil, e.embedErr
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		text := strings.ToLower(doc.Content[0].Text)
		vec := make([]float32, len(testVocab))
		for i, word := range testVocab {
			vec[i] = float32(strings.Count(text, word))
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: vec})
	}
	return resp, nil
}

func testDocs() []Document {
	return []Document{
		NewDocument("Paris is the capital of France.", map[string]string{MetadataSource: "geo"}),
		NewDocument("Golang concurrency uses goroutines.", map[string]string{MetadataSource: "go"}),
		NewDocument("The weather in France is mild.", map[string]string{MetadataSource: "climate"}),
	}
}

func TestDenseSearchRanking(t *testing.T) {
	ctx := context.Background()
	dense, err := NewDense(&vocabEmbedder{}, log.NewNop())
	if err != nil {
		t.Fatalf("NewDense() error = %v", err)
	}

	if err := dense.Rebuild(ctx, testDocs()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	results, err := dense.Search(ctx, "What is the capital of France? Paris?", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Document.Source() != "geo" {
		t.Errorf("top result source = %q, want %q", results[0].Document.Source(), "geo")
	}
	if results[0].Score < results[1].Score {
		t.Errorf("scores not descending: %v then %v", results[0].Score, results[1].Score)
	}
}

func TestDenseSearchEmptyCorpus(t *testing.T) {
	ctx := context.Background()
	embedder := &vocabEmbedder{}
	dense, err := NewDense(embedder, log.NewNop())
	if err != nil {
		t.Fatalf("NewDense() error = %v", err)
	}

	results, err := dense.Search(ctx, "anything", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() on empty corpus returned %d results, want 0", len(results))
	}
	if embedder.callCount != 0 {
		t.Errorf("embedder called %d times for empty corpus, want 0", embedder.callCount)
	}
}

func TestDenseSearchDeterminism(t *testing.T) {
	ctx := context.Background()
	dense, err := NewDense(&vocabEmbedder{}, log.NewNop())
	if err != nil {
		t.Fatalf("NewDense() error = %v", err)
	}
	if err := dense.Rebuild(ctx, testDocs()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	first, err := dense.Search(ctx, "weather in france", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	second, err := dense.Search(ctx, "weather in france", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("result counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Document.ID != second[i].Document.ID || first[i].Score != second[i].Score {
			t.Errorf("result %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDenseRebuildValidatesDocuments(t *testing.T) {
	dense, err := NewDense(&vocabEmbedder{}, log.NewNop())
	if err != nil {
		t.Fatalf("NewDense() error = %v", err)
	}

	err = dense.Rebuild(context.Background(), []Document{{ID: "x", Content: "no source"}})
	if !errors.Is(err, ErrMissingSource) {
		t.Errorf("Rebuild() error = %v, want ErrMissingSource", err)
	}
}

func TestDenseRebuildEmbedderFailure(t *testing.T) {
	dense, err := NewDense(&vocabEmbedder{embedErr: errors.New("quota exceeded")}, log.NewNop())
	if err != nil {
		t.Fatalf("NewDense() error = %v", err)
	}

	if err := dense.Rebuild(context.Background(), testDocs()); err == nil {
		t.Error("Rebuild() error = nil, want embedding failure")
	}
	if dense.Len() != 0 {
		t.Errorf("Len() = %d after failed rebuild, want 0", dense.Len())
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}
