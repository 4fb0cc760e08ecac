package index

import (
	"errors"
	"testing"
)

func TestNewDocument(t *testing.T) {
	doc := NewDocument("Paris is the capital of France.", map[string]string{MetadataSource: "geo.txt"})

	if doc.ID == "" {
		t.Error("NewDocument() produced empty ID")
	}
	if doc.Source() != "geo.txt" {
		t.Errorf("Source() = %q, want %q", doc.Source(), "geo.txt")
	}

	// Same content and source must produce the same ID.
	dup := NewDocument("Paris is the capital of France.", map[string]string{MetadataSource: "geo.txt"})
	if dup.ID != doc.ID {
		t.Errorf("IDs differ for identical documents: %s vs %s", dup.ID, doc.ID)
	}

	// A different source must produce a different ID.
	other := NewDocument("Paris is the capital of France.", map[string]string{MetadataSource: "other.txt"})
	if other.ID == doc.ID {
		t.Error("IDs collide for documents from different sources")
	}
}

func TestNewDocumentCopiesMetadata(t *testing.T) {
	meta := map[string]string{MetadataSource: "a"}
	doc := NewDocument("content", meta)

	meta[MetadataSource] = "mutated"
	if doc.Source() != "a" {
		t.Errorf("Source() = %q after caller mutation, want %q", doc.Source(), "a")
	}
}

func TestDocumentValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr error
	}{
		{
			name:    "valid",
			doc:     NewDocument("text", map[string]string{MetadataSource: "s"}),
			wantErr: nil,
		},
		{
			name:    "empty content",
			doc:     Document{ID: "x", Metadata: map[string]string{MetadataSource: "s"}},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "missing source",
			doc:     Document{ID: "x", Content: "text", Metadata: map[string]string{}},
			wantErr: ErrMissingSource,
		},
		{
			name:    "nil metadata",
			doc:     Document{ID: "x", Content: "text"},
			wantErr: ErrMissingSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want errors.Is(%v)", err, tt.wantErr)
			}
		})
	}
}
