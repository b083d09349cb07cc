package sessionstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/creastat/sessionstore/dialect"

	// Registered database/sql drivers.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLHandle is a database handle paired with its dialect.
type SQLHandle struct {
	DB      *sql.DB
	Dialect dialect.Dialect
}

// driverAliases maps dialect names to the registered driver implementing them.
var driverAliases = map[string]string{
	"postgres":   "pgx",
	"postgresql": "pgx",
	"sqlite3":    "sqlite",
}

// OpenDB opens and pings a database with one of the registered drivers
// (pgx, sqlite, mysql) and returns the dialect to use with it. The caller owns
// the returned handle and may share it with the rest of the application.
func OpenDB(ctx context.Context, driverName, dsn string) (*sql.DB, dialect.Dialect, error) {
	d, err := dialect.ForDriver(driverName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if alias, ok := driverAliases[driverName]; ok {
		driverName = alias
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driverName, err)
	}
	return db, d, nil
}
