package drivers

import (
	"context"
	"testing"

	"github.com/creastat/sessionstore/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryBackend(t *testing.T) backend {
	store := NewInMemoryStore()
	return backend{
		store: store,
		count: func(t *testing.T, id string) int {
			store.mu.RLock()
			defer store.mu.RUnlock()
			if _, ok := store.sessions[id]; ok {
				return 1
			}
			return 0
		},
		corrupt: func(t *testing.T, id string) {
			store.mu.Lock()
			defer store.mu.Unlock()
			require.Contains(t, store.sessions, id)
			store.sessions[id] = []byte("{not json")
		},
	}
}

func TestInMemoryStoreContract(t *testing.T) {
	runContract(t, memoryBackend)
}

func TestInMemoryStoreIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	s := session.New()
	require.NoError(t, s.Insert("k", "before"))
	cookie, err := store.Store(ctx, s)
	require.NoError(t, err)

	require.NoError(t, s.Insert("k", "after"))

	got, err := store.Load(ctx, cookie)
	require.NoError(t, err)
	var v string
	_, err = got.Get("k", &v)
	require.NoError(t, err)
	assert.Equal(t, "before", v)
}

func TestInMemoryStoreLen(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	assert.Equal(t, 0, store.Len())

	for i := 0; i < 3; i++ {
		_, err := store.Store(ctx, session.New())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.Len())

	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, 0, store.Len())
}
