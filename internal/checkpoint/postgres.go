package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists session state in the checkpoints table as jsonb.
type PostgresStore struct {
	pool   Pool
	logger *slog.Logger
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(pool Pool, logger *slog.Logger) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Save implements Store with an upsert keyed by thread id.
func (s *PostgresStore) Save(ctx context.Context, threadID string, state SessionState) error {
	if threadID == "" {
		return fmt.Errorf("%w: empty thread id", ErrCheckpointIO)
	}
	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpointIO, err)
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: encoding state: %v", ErrCheckpointIO, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO checkpoints (thread_id, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (thread_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		threadID, payload)
	if err != nil {
		return fmt.Errorf("%w: saving thread %s: %v", ErrCheckpointIO, threadID, err)
	}

	s.logger.Debug("checkpoint saved", "thread_id", threadID)
	return nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context, threadID string) (SessionState, bool, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM checkpoints WHERE thread_id = $1`, threadID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return SessionState{}, false, nil
	}
	if err != nil {
		return SessionState{}, false, fmt.Errorf("%w: loading thread %s: %v", ErrCheckpointIO, threadID, err)
	}

	var state SessionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return SessionState{}, false, fmt.Errorf("%w: decoding thread %s: %v", ErrCheckpointIO, threadID, err)
	}
	return state, true, nil
}
