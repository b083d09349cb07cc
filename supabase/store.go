package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/creastat/sessionstore/dialect"
	"github.com/creastat/sessionstore/session"
	"github.com/supabase-community/supabase-go"
)

// Config holds Supabase connection configuration
type Config struct {
	URL    string
	APIKey string
	Table  string // Default: "session"
}

// Store implements session.Store on a Supabase table through PostgREST.
// The table is created with the migration package against the Supabase
// Postgres database.
//
// The PostgREST client takes no context, so ctx is not honoured: a canceled
// or expired ctx does not abort a request.
type Store struct {
	client *supabase.Client
	table  string
}

// row is the PostgREST representation of a session row.
type row struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// New creates a new Supabase session store
func New(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}

	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return NewWithClient(client, cfg.Table), nil
}

// NewWithClient creates a store on an existing client.
func NewWithClient(client *supabase.Client, table string) *Store {
	if table == "" {
		table = dialect.DefaultSessionTable
	}
	return &Store{
		client: client,
		table:  table,
	}
}

// Load implements session.Store.
// Returns nil if the session is not found (not an error).
func (s *Store) Load(ctx context.Context, cookieValue string) (*session.Session, error) {
	id, err := session.IDFromCookieValue(cookieValue)
	if err != nil {
		return nil, err
	}

	var rows []row
	_, err = s.client.From(s.table).
		Select("id,data", "", false).
		Eq("id", id).
		ExecuteTo(&rows)
	if err != nil {
		return nil, session.Connectivity("load", id, err)
	}

	if len(rows) == 0 {
		return nil, nil
	}
	return session.Decode("load", id, rows[0].Data)
}

// Store implements session.Store.
func (s *Store) Store(ctx context.Context, sess *session.Session) (string, error) {
	id, data, err := session.Encode("store", sess)
	if err != nil {
		return "", err
	}

	_, _, err = s.client.From(s.table).
		Upsert(row{ID: id, Data: data}, "id", "minimal", "").
		Execute()
	if err != nil {
		return "", session.Connectivity("store", id, err)
	}
	return sess.CookieValue(), nil
}

// Destroy implements session.Store.
func (s *Store) Destroy(ctx context.Context, sess *session.Session) error {
	id, err := session.IDOf("destroy", sess)
	if err != nil {
		return err
	}
	_, _, err = s.client.From(s.table).
		Delete("minimal", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return session.Connectivity("destroy", id, err)
	}
	return nil
}

// Clear implements session.Store.
// PostgREST refuses unfiltered deletes; ids are never empty, so the filter
// matches every row.
func (s *Store) Clear(ctx context.Context) error {
	_, _, err := s.client.From(s.table).
		Delete("minimal", "").
		Neq("id", "").
		Execute()
	if err != nil {
		return session.Connectivity("clear", "", err)
	}
	return nil
}

// Compile-time check that Store implements session.Store
var _ session.Store = (*Store)(nil)
