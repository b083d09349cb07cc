package drivers

import (
	"context"
	"database/sql"
	"errors"

	"github.com/creastat/sessionstore/dialect"
	"github.com/creastat/sessionstore/session"
)

// DefaultTable is the session table name used when none is given.
const DefaultTable = dialect.DefaultSessionTable

// SQLStore implements session.Store on a relational table.
// It shares the caller's connection pool and never closes it.
type SQLStore struct {
	db    *sql.DB
	table string

	selectStmt    string
	upsertStmt    string
	deleteStmt    string
	deleteAllStmt string
}

// NewSQLStore creates a store on db. An empty table selects DefaultTable.
// The table must exist; see the migration package.
func NewSQLStore(db *sql.DB, d dialect.Dialect, table string) *SQLStore {
	if table == "" {
		table = DefaultTable
	}
	return &SQLStore{
		db:            db,
		table:         table,
		selectStmt:    d.SelectSession(table),
		upsertStmt:    d.UpsertSession(table),
		deleteStmt:    d.DeleteSession(table),
		deleteAllStmt: d.DeleteAllSessions(table),
	}
}

// Table returns the name of the backing table.
func (s *SQLStore) Table() string {
	return s.table
}

// Load implements session.Store.
// Returns nil if the session is not found (not an error).
func (s *SQLStore) Load(ctx context.Context, cookieValue string) (*session.Session, error) {
	id, err := session.IDFromCookieValue(cookieValue)
	if err != nil {
		return nil, err
	}
	return s.loadID(ctx, id)
}

func (s *SQLStore) loadID(ctx context.Context, id string) (*session.Session, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.selectStmt, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, session.Connectivity("load", id, err)
	}
	return session.Decode("load", id, data)
}

// Store implements session.Store.
// The upsert is one statement, so concurrent stores of the same id are
// ordered by the database.
func (s *SQLStore) Store(ctx context.Context, sess *session.Session) (string, error) {
	id, data, err := session.Encode("store", sess)
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, s.upsertStmt, id, string(data)); err != nil {
		return "", session.Connectivity("store", id, err)
	}
	return sess.CookieValue(), nil
}

// Destroy implements session.Store.
func (s *SQLStore) Destroy(ctx context.Context, sess *session.Session) error {
	id, err := session.IDOf("destroy", sess)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.deleteStmt, id); err != nil {
		return session.Connectivity("destroy", id, err)
	}
	return nil
}

// Clear implements session.Store.
func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.deleteAllStmt); err != nil {
		return session.Connectivity("clear", "", err)
	}
	return nil
}

var _ session.Store = (*SQLStore)(nil)
