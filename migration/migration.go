// Package migration creates and drops the session table.
//
// The session table can be created on its own:
//
//	m, err := migration.New(db, dialect.Postgres)
//	if err != nil {
//		return err
//	}
//	if _, err := m.Up(ctx, 0); err != nil {
//		return err
//	}
//
// or listed among an application's own migrations, in any position:
//
//	m, err := migration.New(db, dialect.Postgres, migration.WithMigrations(
//		createUsers,
//		migration.SessionTable(""),
//		addUserEmailIndex,
//	))
package migration

import (
	"context"
	"database/sql"

	"github.com/creastat/sessionstore/dialect"
)

// Migration is one reversible schema change.
type Migration interface {
	// Name identifies the migration in the history table. It must be unique
	// within a Migrator.
	Name() string

	// Up applies the change.
	Up(ctx context.Context, s *Schema) error

	// Down reverts the change.
	Down(ctx context.Context, s *Schema) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Schema runs DDL for a migration.
type Schema struct {
	db      execer
	dialect dialect.Dialect
}

// NewSchema returns a Schema that runs statements on db, which may be a
// *sql.DB or a *sql.Tx.
func NewSchema(db execer, d dialect.Dialect) *Schema {
	return &Schema{db: db, dialect: d}
}

// Dialect returns the dialect statements are rendered for.
func (s *Schema) Dialect() dialect.Dialect {
	return s.dialect
}

// Exec runs a raw statement.
func (s *Schema) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// CreateSessionTable creates the session table if it is missing.
func (s *Schema) CreateSessionTable(ctx context.Context, table string) error {
	return s.Exec(ctx, s.dialect.CreateSessionTable(table))
}

// DropTable drops table. Dropping a missing table is an error.
func (s *Schema) DropTable(ctx context.Context, table string) error {
	return s.Exec(ctx, s.dialect.DropTable(table))
}

// HasTable reports whether table exists.
func (s *Schema) HasTable(ctx context.Context, table string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.HasTable(), table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SessionTableMigration creates the table backing the SQL session store.
type SessionTableMigration struct {
	Table string
}

// SessionTable returns the session table migration. An empty table selects
// dialect.DefaultSessionTable.
func SessionTable(table string) SessionTableMigration {
	if table == "" {
		table = dialect.DefaultSessionTable
	}
	return SessionTableMigration{Table: table}
}

// Name implements Migration.
func (m SessionTableMigration) Name() string {
	return "create_session_table"
}

// Up implements Migration. Running it again is a no-op.
func (m SessionTableMigration) Up(ctx context.Context, s *Schema) error {
	return s.CreateSessionTable(ctx, m.table())
}

// Down implements Migration.
func (m SessionTableMigration) Down(ctx context.Context, s *Schema) error {
	return s.DropTable(ctx, m.table())
}

func (m SessionTableMigration) table() string {
	if m.Table == "" {
		return dialect.DefaultSessionTable
	}
	return m.Table
}

var _ Migration = SessionTableMigration{}
