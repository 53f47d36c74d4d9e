package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*MemoryStore
	failGet, failRemove bool
}

func (f *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGet {
		return "", false, errors.New("backend down")
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *failingStore) Remove(ctx context.Context, key string) error {
	if f.failRemove {
		return errors.New("backend down")
	}
	return f.MemoryStore.Remove(ctx, key)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, SetAll(ctx, store, map[string]string{
		KeyCodeVerifier: "v",
		KeyCode:         "c",
		KeyState:        "s",
		KeyProvider:     "github",
	}))

	rec, err := Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, &Record{CodeVerifier: "v", Code: "c", State: "s", Provider: "github"}, rec)
	assert.True(t, rec.HasPendingExchange(true))
	assert.False(t, rec.Empty())

	_, err = Load(ctx, &failingStore{MemoryStore: store, failGet: true})
	assert.Error(t, err)
}

func TestRecord_HasPendingExchange(t *testing.T) {
	tests := []struct {
		name            string
		rec             Record
		requireVerifier bool
		expected        bool
	}{
		{"complete with verifier", Record{CodeVerifier: "v", Code: "c", State: "s"}, true, true},
		{"verifier missing but required", Record{Code: "c", State: "s"}, true, false},
		{"verifier missing and not required", Record{Code: "c", State: "s"}, false, true},
		{"state missing", Record{CodeVerifier: "v", Code: "c"}, false, false},
		{"code missing", Record{CodeVerifier: "v", State: "s"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.rec.HasPendingExchange(tt.requireVerifier))
		})
	}
}

func TestSetAll_RemovesEmptyValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyCode, "stale"))

	require.NoError(t, SetAll(ctx, store, map[string]string{KeyCode: "", KeyState: "s"}))

	_, ok, _ := store.Get(ctx, KeyCode)
	assert.False(t, ok, "empty values must not be persisted")
	v, ok, _ := store.Get(ctx, KeyState)
	assert.True(t, ok)
	assert.Equal(t, "s", v)
}

func TestClear_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, key := range Keys {
		require.NoError(t, store.Set(ctx, key, "x"))
	}
	require.NoError(t, store.Set(ctx, "unrelated", "kept"))

	require.NoError(t, Clear(ctx, store))
	first := store.Snapshot()
	require.NoError(t, Clear(ctx, store))
	second := store.Snapshot()

	assert.Equal(t, first, second)
	assert.Equal(t, map[string]string{"unrelated": "kept"}, second)

	rec, err := Load(ctx, store)
	require.NoError(t, err)
	assert.True(t, rec.Empty())

	err = Clear(ctx, &failingStore{MemoryStore: store, failRemove: true})
	assert.Error(t, err)
}

type bulkStore struct {
	*MemoryStore
	clears   int
	clearErr error
}

func (b *bulkStore) Remove(context.Context, string) error {
	return errors.New("per-key removal must not be used")
}

func (b *bulkStore) Clear(context.Context) error {
	b.clears++
	if b.clearErr != nil {
		return b.clearErr
	}
	b.MemoryStore = NewMemoryStore()
	return nil
}

func TestClear_PrefersBulkClear(t *testing.T) {
	ctx := context.Background()
	store := &bulkStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, store.Set(ctx, KeyState, "s"))

	require.NoError(t, Clear(ctx, store))
	assert.Equal(t, 1, store.clears)
	assert.Zero(t, store.Len())

	store.clearErr = errors.New("backend down")
	err := Clear(ctx, store)
	assert.ErrorIs(t, err, store.clearErr)
	assert.Equal(t, 2, store.clears)
}

func TestCommit_NonBufferingStore(t *testing.T) {
	assert.NoError(t, Commit(context.Background(), NewMemoryStore()))
}
