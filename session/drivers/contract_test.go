package drivers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"

	"github.com/creastat/sessionstore/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend is a store under test plus hooks that reach behind its API.
type backend struct {
	store session.Store
	// count returns how many sessions are stored under id.
	count func(t *testing.T, id string) int
	// corrupt overwrites the stored document for id with invalid data.
	corrupt func(t *testing.T, id string)
}

func runContract(t *testing.T, newBackend func(t *testing.T) backend) {
	t.Run("RoundTrip", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		s := session.New()
		require.NoError(t, s.Insert("hit_count", 1))
		require.NoError(t, s.Insert("user", map[string]any{"name": "ada", "admin": true}))

		cookie, err := b.store.Store(ctx, s)
		require.NoError(t, err)
		require.Equal(t, s.CookieValue(), cookie)

		got, err := b.store.Load(ctx, cookie)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, s.ID(), got.ID())
		assert.Equal(t, s.Keys(), got.Keys())

		var count int
		ok, err := got.Get("hit_count", &count)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1, count)

		var user map[string]any
		_, err = got.Get("user", &user)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "ada", "admin": true}, user)
	})

	t.Run("HitCountScenario", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		s := session.New()
		require.NoError(t, s.Insert("hit_count", 1))
		cookie, err := b.store.Store(ctx, s)
		require.NoError(t, err)

		got, err := b.store.Load(ctx, cookie)
		require.NoError(t, err)
		require.NotNil(t, got)
		assertHitCount(t, got, 1)

		require.NoError(t, s.Insert("hit_count", 2))
		_, err = b.store.Store(ctx, s)
		require.NoError(t, err)

		got, err = b.store.Load(ctx, cookie)
		require.NoError(t, err)
		require.NotNil(t, got)
		assertHitCount(t, got, 2)
		assert.Equal(t, 1, b.count(t, s.ID()))
	})

	t.Run("UpsertKeepsOneRow", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		first := session.WithID("abc")
		require.NoError(t, first.Insert("hit_count", 1))
		second := session.WithID("abc")
		require.NoError(t, second.Insert("hit_count", 2))

		cookie, err := b.store.Store(ctx, first)
		require.NoError(t, err)
		assert.Empty(t, cookie, "a session without cookie material yields no cookie value")

		_, err = b.store.Store(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, 1, b.count(t, "abc"))
	})

	t.Run("LoadedSessionHasNoCookieValue", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		cookie, err := b.store.Store(ctx, session.New())
		require.NoError(t, err)
		got, err := b.store.Load(ctx, cookie)
		require.NoError(t, err)
		require.NotNil(t, got)

		again, err := b.store.Store(ctx, got)
		require.NoError(t, err)
		assert.Empty(t, again)
	})

	t.Run("LoadUnknownIsAbsent", func(t *testing.T) {
		b := newBackend(t)

		got, err := b.store.Load(context.Background(), session.New().CookieValue())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("LoadInvalidCookie", func(t *testing.T) {
		b := newBackend(t)

		got, err := b.store.Load(context.Background(), "not/base64!")
		assert.ErrorIs(t, err, session.ErrInvalidCookie)
		assert.Nil(t, got)
	})

	t.Run("DestroyIsIdempotent", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		s := session.New()
		cookie, err := b.store.Store(ctx, s)
		require.NoError(t, err)

		require.NoError(t, b.store.Destroy(ctx, s))
		require.NoError(t, b.store.Destroy(ctx, s))

		got, err := b.store.Load(ctx, cookie)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, 0, b.count(t, s.ID()))

		require.NoError(t, b.store.Destroy(ctx, session.New()))
	})

	t.Run("DestroyLeavesOthers", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		keep, drop := session.New(), session.New()
		keepCookie, err := b.store.Store(ctx, keep)
		require.NoError(t, err)
		_, err = b.store.Store(ctx, drop)
		require.NoError(t, err)

		require.NoError(t, b.store.Destroy(ctx, drop))

		got, err := b.store.Load(ctx, keepCookie)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("ClearEmptiesStore", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		var cookies []string
		for i := 0; i < 5; i++ {
			cookie, err := b.store.Store(ctx, session.New())
			require.NoError(t, err)
			cookies = append(cookies, cookie)
		}

		require.NoError(t, b.store.Clear(ctx))
		require.NoError(t, b.store.Clear(ctx))

		for _, cookie := range cookies {
			got, err := b.store.Load(ctx, cookie)
			require.NoError(t, err)
			assert.Nil(t, got)
		}
	})

	t.Run("CorruptRowFailsToLoad", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		s := session.New()
		cookie, err := b.store.Store(ctx, s)
		require.NoError(t, err)

		b.corrupt(t, s.ID())

		got, err := b.store.Load(ctx, cookie)
		require.Error(t, err)
		assert.ErrorIs(t, err, session.ErrCorruption)
		assert.NotErrorIs(t, err, session.ErrConnectivity)
		assert.Nil(t, got)
	})

	t.Run("SerializationFailureWritesNothing", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		s := session.New()
		s.InsertRaw("broken", json.RawMessage(`{oops`))

		cookie, err := b.store.Store(ctx, s)
		assert.ErrorIs(t, err, session.ErrSerialization)
		assert.Empty(t, cookie)
		assert.Equal(t, 0, b.count(t, s.ID()))
	})

	t.Run("InvalidIDRejected", func(t *testing.T) {
		b := newBackend(t)

		_, err := b.store.Store(context.Background(), session.WithID(""))
		assert.ErrorIs(t, err, session.ErrInvalidID)
	})

	t.Run("NilSessionRejected", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		_, err := b.store.Store(ctx, nil)
		assert.ErrorIs(t, err, session.ErrInvalidID)

		err = b.store.Destroy(ctx, nil)
		assert.ErrorIs(t, err, session.ErrInvalidID)
		var serr *session.Error
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "destroy", serr.Op)
	})

	t.Run("StoreDoesNotMutateSession", func(t *testing.T) {
		b := newBackend(t)

		s := session.New()
		require.NoError(t, s.Insert("k", "v"))
		id, cookie := s.ID(), s.CookieValue()

		_, err := b.store.Store(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, id, s.ID())
		assert.Equal(t, cookie, s.CookieValue())
		assert.Equal(t, []string{"k"}, s.Keys())
	})

	t.Run("ConcurrentStoresOfOneID", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		cookie := base64.StdEncoding.EncodeToString([]byte("shared cookie"))
		id, err := session.IDFromCookieValue(cookie)
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				s := session.WithID(id)
				if err := s.Insert("n", n); err != nil {
					errs <- err
					return
				}
				_, err := b.store.Store(ctx, s)
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		assert.Equal(t, 1, b.count(t, id))
		got, err := b.store.Load(ctx, cookie)
		require.NoError(t, err)
		require.NotNil(t, got)
		var n int
		ok, err := got.Get("n", &n)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 8)
	})
}

func assertHitCount(t *testing.T, s *session.Session, want int) {
	t.Helper()

	var got int
	ok, err := s.Get("hit_count", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}
