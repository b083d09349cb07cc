package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/creastat/sessionstore/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePostgREST serves the subset of PostgREST the store uses on one table.
type fakePostgREST struct {
	mu    sync.Mutex
	table string
	rows  map[string]json.RawMessage
	down  bool
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		writeError(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	if r.URL.Path != "/rest/v1/"+f.table {
		writeError(w, http.StatusNotFound, "relation does not exist")
		return
	}

	filter := r.URL.Query().Get("id")
	switch r.Method {
	case http.MethodGet:
		out := []row{}
		if id, ok := strings.CutPrefix(filter, "eq."); ok {
			if data, exists := f.rows[id]; exists {
				out = append(out, row{ID: id, Data: data})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)

	case http.MethodPost:
		if r.URL.Query().Get("on_conflict") != "id" {
			writeError(w, http.StatusConflict, "duplicate key")
			return
		}
		body, _ := io.ReadAll(r.Body)
		var rows []row
		if err := json.Unmarshal(body, &rows); err != nil {
			var single row
			if err := json.Unmarshal(body, &single); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			rows = []row{single}
		}
		for _, rw := range rows {
			f.rows[rw.ID] = rw.Data
		}
		w.WriteHeader(http.StatusCreated)

	case http.MethodDelete:
		switch {
		case strings.HasPrefix(filter, "eq."):
			delete(f.rows, strings.TrimPrefix(filter, "eq."))
		case filter == "neq.":
			f.rows = make(map[string]json.RawMessage)
		default:
			writeError(w, http.StatusBadRequest, "DELETE requires a WHERE clause")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (f *fakePostgREST) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": "PGRST000", "message": msg})
}

func newTestStore(t *testing.T) (*Store, *fakePostgREST) {
	t.Helper()

	fake := &fakePostgREST{table: "session", rows: make(map[string]json.RawMessage)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(Config{URL: srv.URL, APIKey: "test-key"})
	require.NoError(t, err)
	return store, fake
}

func TestNewRequiresURLAndKey(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{URL: "http://localhost"})
	assert.Error(t, err)
}

func TestStoreRoundTripAndUpsert(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t)

	s := session.New()
	require.NoError(t, s.Insert("hit_count", 1))
	cookie, err := store.Store(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, s.CookieValue(), cookie)

	got, err := store.Load(ctx, cookie)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.ID(), got.ID())

	require.NoError(t, s.Insert("hit_count", 2))
	_, err = store.Store(ctx, s)
	require.NoError(t, err)

	got, err = store.Load(ctx, cookie)
	require.NoError(t, err)
	require.NotNil(t, got)
	var count int
	_, err = got.Get("hit_count", &count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, fake.len())
}

func TestStoreLoadUnknownIsAbsent(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.Load(context.Background(), session.New().CookieValue())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreDestroyAndClear(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t)

	a, b := session.New(), session.New()
	_, err := store.Store(ctx, a)
	require.NoError(t, err)
	_, err = store.Store(ctx, b)
	require.NoError(t, err)

	require.NoError(t, store.Destroy(ctx, a))
	require.NoError(t, store.Destroy(ctx, a))
	assert.Equal(t, 1, fake.len())

	require.NoError(t, store.Clear(ctx))
	assert.Zero(t, fake.len())
}

func TestStoreRejectsNilSession(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t)

	_, err := store.Store(ctx, nil)
	assert.ErrorIs(t, err, session.ErrInvalidID)
	assert.ErrorIs(t, store.Destroy(ctx, nil), session.ErrInvalidID)
	assert.Zero(t, fake.len())
}

func TestStoreCorruptRow(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t)

	s := session.New()
	cookie, err := store.Store(ctx, s)
	require.NoError(t, err)

	fake.mu.Lock()
	fake.rows[s.ID()] = json.RawMessage(`"garbage"`)
	fake.mu.Unlock()

	_, err = store.Load(ctx, cookie)
	assert.ErrorIs(t, err, session.ErrCorruption)
}

func TestStoreBackendDown(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t)
	s := session.New()

	fake.mu.Lock()
	fake.down = true
	fake.mu.Unlock()

	_, err := store.Load(ctx, s.CookieValue())
	assert.ErrorIs(t, err, session.ErrConnectivity)
	_, err = store.Store(ctx, s)
	assert.ErrorIs(t, err, session.ErrConnectivity)
	assert.ErrorIs(t, store.Destroy(ctx, s), session.ErrConnectivity)
	assert.ErrorIs(t, store.Clear(ctx), session.ErrConnectivity)
}

func TestStoreRejectsInvalidID(t *testing.T) {
	store, fake := newTestStore(t)

	_, err := store.Store(context.Background(), session.WithID(""))
	assert.ErrorIs(t, err, session.ErrInvalidID)
	assert.Zero(t, fake.len())
}

func TestStoreIgnoresCanceledContext(t *testing.T) {
	store, fake := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Store(ctx, session.New())
	require.NoError(t, err)
	assert.Equal(t, 1, fake.len())
}
