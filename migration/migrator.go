package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creastat/sessionstore/dialect"
)

// DefaultHistoryTable records which migrations have been applied.
const DefaultHistoryTable = "schema_migrations"

var (
	ErrDuplicateMigration = errors.New("duplicate migration name")
	ErrNoMigrations       = errors.New("no migrations")
)

// Status describes one migration known to a Migrator.
type Status struct {
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// Migrator applies an ordered list of migrations and records them in a
// history table, so it can run at every start-up.
type Migrator struct {
	db         *sql.DB
	dialect    dialect.Dialect
	migrations []Migration
	history    string
	logger     *slog.Logger
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithMigrations replaces the migration list. Order is application order.
func WithMigrations(ms ...Migration) Option {
	return func(m *Migrator) {
		m.migrations = ms
	}
}

// WithHistoryTable sets the history table name. An empty name keeps
// DefaultHistoryTable.
func WithHistoryTable(name string) Option {
	return func(m *Migrator) {
		if name != "" {
			m.history = name
		}
	}
}

// WithLogger sets the logger applied and reverted migrations are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(m *Migrator) {
		m.logger = l
	}
}

// New creates a Migrator. Without WithMigrations it manages only the session
// table.
func New(db *sql.DB, d dialect.Dialect, opts ...Option) (*Migrator, error) {
	m := &Migrator{
		db:         db,
		dialect:    d,
		migrations: []Migration{SessionTable("")},
		history:    DefaultHistoryTable,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}

	if len(m.migrations) == 0 {
		return nil, ErrNoMigrations
	}
	seen := make(map[string]struct{}, len(m.migrations))
	for _, mig := range m.migrations {
		if _, dup := seen[mig.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMigration, mig.Name())
		}
		seen[mig.Name()] = struct{}{}
	}
	return m, nil
}

// Up applies up to steps pending migrations in order; steps <= 0 applies all
// of them. It returns the names applied. Each migration commits together with
// its history row, except on MySQL where DDL is not transactional.
func (m *Migrator) Up(ctx context.Context, steps int) ([]string, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, mig := range m.migrations {
		if steps > 0 && len(done) == steps {
			break
		}
		if _, ok := applied[mig.Name()]; ok {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return done, err
		}
		done = append(done, mig.Name())
	}
	return done, nil
}

// Down reverts up to steps applied migrations, newest first; steps <= 0
// reverts all of them. It returns the names reverted.
func (m *Migrator) Down(ctx context.Context, steps int) ([]string, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var done []string
	for i := len(m.migrations) - 1; i >= 0; i-- {
		if steps > 0 && len(done) == steps {
			break
		}
		mig := m.migrations[i]
		if _, ok := applied[mig.Name()]; !ok {
			continue
		}
		if err := m.revert(ctx, mig); err != nil {
			return done, err
		}
		done = append(done, mig.Name())
	}
	return done, nil
}

// Fresh reverts every applied migration and applies all of them again.
func (m *Migrator) Fresh(ctx context.Context) error {
	if _, err := m.Down(ctx, 0); err != nil {
		return err
	}
	_, err := m.Up(ctx, 0)
	return err
}

// Status reports every migration in order.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(m.migrations))
	for _, mig := range m.migrations {
		st := Status{Name: mig.Name()}
		if at, ok := applied[mig.Name()]; ok {
			st.Applied = true
			st.AppliedAt = time.Unix(at, 0).UTC()
		}
		out = append(out, st)
	}
	return out, nil
}

// apply runs a migration and records it in one transaction. MySQL commits DDL
// implicitly, so there a failed history insert leaves the schema change in
// place without a history row; Up then retries it, which SessionTableMigration
// tolerates.
func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	err := m.inTx(ctx, func(tx *sql.Tx) error {
		if err := mig.Up(ctx, NewSchema(tx, m.dialect)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, m.insertHistory(), mig.Name(), time.Now().Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("migration %s up: %w", mig.Name(), err)
	}
	m.logger.Info("applied migration", "name", mig.Name())
	return nil
}

func (m *Migrator) revert(ctx context.Context, mig Migration) error {
	err := m.inTx(ctx, func(tx *sql.Tx) error {
		if err := mig.Down(ctx, NewSchema(tx, m.dialect)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, m.deleteHistory(), mig.Name())
		return err
	})
	if err != nil {
		return fmt.Errorf("migration %s down: %w", mig.Name(), err)
	}
	m.logger.Info("reverted migration", "name", mig.Name())
	return nil
}

func (m *Migrator) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// applied creates the history table if needed and returns applied names
// mapped to their unix application time.
func (m *Migrator) applied(ctx context.Context) (map[string]int64, error) {
	if _, err := m.db.ExecContext(ctx, m.createHistory()); err != nil {
		return nil, fmt.Errorf("create migration history: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, m.selectHistory())
	if err != nil {
		return nil, fmt.Errorf("read migration history: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{}, len(m.migrations))
	for _, mig := range m.migrations {
		known[mig.Name()] = struct{}{}
	}

	applied := make(map[string]int64)
	for rows.Next() {
		var (
			name string
			at   int64
		)
		if err := rows.Scan(&name, &at); err != nil {
			return nil, fmt.Errorf("read migration history: %w", err)
		}
		if _, ok := known[name]; !ok {
			m.logger.Warn("history lists an unknown migration", "name", name)
		}
		applied[name] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read migration history: %w", err)
	}
	return applied, nil
}

func (m *Migrator) createHistory() string {
	d := m.dialect
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s %s NOT NULL PRIMARY KEY, %s BIGINT NOT NULL)",
		d.Quote(m.history), d.Quote("version"), d.KeyType(), d.Quote("applied_at"))
}

func (m *Migrator) selectHistory() string {
	d := m.dialect
	return fmt.Sprintf("SELECT %s, %s FROM %s", d.Quote("version"), d.Quote("applied_at"), d.Quote(m.history))
}

func (m *Migrator) insertHistory() string {
	d := m.dialect
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s)",
		d.Quote(m.history), d.Quote("version"), d.Quote("applied_at"), d.Placeholder(1), d.Placeholder(2))
}

func (m *Migrator) deleteHistory() string {
	d := m.dialect
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		d.Quote(m.history), d.Quote("version"), d.Placeholder(1))
}
