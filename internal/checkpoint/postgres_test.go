package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/ragent/internal/log"
)

type fakeRow struct {
	payload []byte
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.payload
	return nil
}

type fakePool struct {
	execSQL  string
	execArgs []any
	execErr  error
	row      fakeRow
}

func (p *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execSQL = sql
	p.execArgs = args
	return pgconn.CommandTag{}, p.execErr
}

func (p *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.row
}

func TestPostgresStoreSave(t *testing.T) {
	pool := &fakePool{}
	store, err := NewPostgresStore(pool, log.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "thread-1", sampleState("Paris.")))

	assert.Contains(t, pool.execSQL, "ON CONFLICT (thread_id)")
	require.Len(t, pool.execArgs, 2)
	assert.Equal(t, "thread-1", pool.execArgs[0])

	var stored SessionState
	require.NoError(t, json.Unmarshal(pool.execArgs[1].([]byte), &stored))
	assert.Equal(t, "Paris.", stored.Answer)
}

func TestPostgresStoreSaveExecFailure(t *testing.T) {
	pool := &fakePool{execErr: errors.New("connection refused")}
	store, err := NewPostgresStore(pool, log.NewNop())
	require.NoError(t, err)

	err = store.Save(context.Background(), "thread-1", sampleState("x"))
	assert.ErrorIs(t, err, ErrCheckpointIO)
}

func TestPostgresStoreLoad(t *testing.T) {
	payload, err := json.Marshal(sampleState("Paris."))
	require.NoError(t, err)
	pool := &fakePool{row: fakeRow{payload: payload}}
	store, err := NewPostgresStore(pool, log.NewNop())
	require.NoError(t, err)

	state, ok, err := store.Load(context.Background(), "thread-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Paris.", state.Answer)
	assert.True(t, strings.HasPrefix(state.Question, "What is the capital"))
}

func TestPostgresStoreLoadMissingThread(t *testing.T) {
	pool := &fakePool{row: fakeRow{err: pgx.ErrNoRows}}
	store, err := NewPostgresStore(pool, log.NewNop())
	require.NoError(t, err)

	_, ok, err := store.Load(context.Background(), "nope")
	require.NoError(t, err, "absence must not be an error")
	assert.False(t, ok)
}

func TestPostgresStoreLoadCorruptPayload(t *testing.T) {
	pool := &fakePool{row: fakeRow{payload: []byte("{not json")}}
	store, err := NewPostgresStore(pool, log.NewNop())
	require.NoError(t, err)

	_, _, err = store.Load(context.Background(), "thread-1")
	assert.ErrorIs(t, err, ErrCheckpointIO)
}
