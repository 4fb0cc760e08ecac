// Package checkpoint persists per-thread session state.
//
// Each thread keeps only its latest state; Save overwrites. Concurrent
// writers to the same thread are last-write-wins, which matches the
// single-conversation-per-thread usage model.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koopa0/ragent/internal/index"
)

// ErrCheckpointIO indicates the store could not persist or load state.
// Persistence failures after an answer is produced do not discard the
// answer; callers surface both.
var ErrCheckpointIO = errors.New("checkpoint io failed")

// SessionState is the snapshot stored per thread.
type SessionState struct {
	Question      string           `json:"question"`
	RetrievedDocs []index.Document `json:"retrieved_docs,omitempty"`
	Answer        string           `json:"answer"`
}

// Validate reports whether the state is storable.
func (s SessionState) Validate() error {
	if s.Question == "" {
		return fmt.Errorf("question is required")
	}
	if s.Answer == "" {
		return fmt.Errorf("answer is required")
	}
	return nil
}

// Store is the persistence contract for session state.
type Store interface {
	// Save stores the latest state for a thread, replacing any previous state.
	Save(ctx context.Context, threadID string, state SessionState) error
	// Load returns the latest state for a thread. The bool reports whether
	// any state exists; absence is not an error.
	Load(ctx context.Context, threadID string) (SessionState, bool, error)
}

// MemoryStore keeps session state in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]SessionState
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]SessionState)}
}

// Save implements Store. Documents are copied so later caller mutations do
// not leak into stored state.
func (m *MemoryStore) Save(ctx context.Context, threadID string, state SessionState) error {
	if threadID == "" {
		return fmt.Errorf("%w: empty thread id", ErrCheckpointIO)
	}
	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpointIO, err)
	}

	stored := state
	if len(state.RetrievedDocs) > 0 {
		stored.RetrievedDocs = make([]index.Document, len(state.RetrievedDocs))
		copy(stored.RetrievedDocs, state.RetrievedDocs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[threadID] = stored
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context, threadID string) (SessionState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[threadID]
	if !ok {
		return SessionState{}, false, nil
	}

	loaded := state
	if len(state.RetrievedDocs) > 0 {
		loaded.RetrievedDocs = make([]index.Document, len(state.RetrievedDocs))
		copy(loaded.RetrievedDocs, state.RetrievedDocs)
	}
	return loaded, true, nil
}
