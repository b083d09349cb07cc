// Package dialect builds the SQL statements the session store and the schema
// migrator run, so that neither has to know which database it talks to.
package dialect

import (
	"fmt"
	"strings"
)

// Names of the session table and its columns.
const (
	DefaultSessionTable = "session"

	ColumnID   = "id"
	ColumnData = "data"
)

// Dialect renders statements for one database engine. Statements take their
// arguments in the order documented on each method.
type Dialect interface {
	// Name returns the dialect name: postgres, sqlite or mysql.
	Name() string

	// Placeholder returns the bind parameter for the n-th argument, 1-based.
	Placeholder(n int) string

	// Quote quotes an identifier.
	Quote(ident string) string

	// KeyType is the column type for string primary keys of up to 255
	// bytes. Keys compare byte for byte: case and trailing spaces count.
	KeyType() string

	// CreateSessionTable creates the session table if it does not exist.
	CreateSessionTable(table string) string

	// DropTable drops a table. It fails if the table is absent.
	DropTable(table string) string

	// SelectSession selects data by id. Args: id.
	SelectSession(table string) string

	// UpsertSession inserts a row or overwrites data in a single statement.
	// Args: id, data.
	UpsertSession(table string) string

	// DeleteSession deletes one row. Args: id.
	DeleteSession(table string) string

	// DeleteAllSessions deletes every row.
	DeleteAllSessions(table string) string

	// HasTable counts tables with the given name in the current schema.
	// Args: table name.
	HasTable() string
}

// ForDriver returns the dialect for a database/sql driver name.
func ForDriver(driverName string) (Dialect, error) {
	switch strings.ToLower(driverName) {
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	default:
		return nil, fmt.Errorf("dialect: unsupported driver %q", driverName)
	}
}

var (
	// Postgres renders PostgreSQL statements.
	Postgres Dialect = postgres{}
	// SQLite renders SQLite (3.24+) statements.
	SQLite Dialect = sqlite{}
	// MySQL renders MySQL and MariaDB statements.
	MySQL Dialect = mysql{}
)

type postgres struct{}

func (postgres) Name() string             { return "postgres" }
func (postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (postgres) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (postgres) KeyType() string { return "VARCHAR(255)" }

func (d postgres) CreateSessionTable(table string) string {
	return createTable(d, table, "TEXT", "JSONB")
}

func (d postgres) DropTable(table string) string { return dropTable(d, table) }

func (d postgres) SelectSession(table string) string { return selectSession(d, table) }

func (d postgres) UpsertSession(table string) string {
	return insertSession(d, table) +
		fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s",
			d.Quote(ColumnID), d.Quote(ColumnData), d.Quote(ColumnData))
}

func (d postgres) DeleteSession(table string) string { return deleteSession(d, table) }

func (d postgres) DeleteAllSessions(table string) string { return deleteAll(d, table) }

func (postgres) HasTable() string {
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
}

type sqlite struct{}

func (sqlite) Name() string           { return "sqlite" }
func (sqlite) Placeholder(int) string { return "?" }
func (sqlite) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (sqlite) KeyType() string { return "VARCHAR(255)" }

// SQLite has no binary JSON type; the json functions operate on TEXT.
func (d sqlite) CreateSessionTable(table string) string {
	return createTable(d, table, "TEXT", "TEXT")
}

func (d sqlite) DropTable(table string) string { return dropTable(d, table) }

func (d sqlite) SelectSession(table string) string { return selectSession(d, table) }

func (d sqlite) UpsertSession(table string) string {
	return insertSession(d, table) +
		fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s",
			d.Quote(ColumnID), d.Quote(ColumnData), d.Quote(ColumnData))
}

func (d sqlite) DeleteSession(table string) string { return deleteSession(d, table) }

func (d sqlite) DeleteAllSessions(table string) string { return deleteAll(d, table) }

func (sqlite) HasTable() string {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
}

type mysql struct{}

func (mysql) Name() string           { return "mysql" }
func (mysql) Placeholder(int) string { return "?" }
func (mysql) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// The server default collation is case-insensitive and, on MariaDB, pads
// trailing spaces, which would let "abc" and "ABC" share a row.
func (mysql) KeyType() string {
	return "VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin"
}

// MySQL can not index an unbounded TEXT key.
func (d mysql) CreateSessionTable(table string) string {
	return createTable(d, table, d.KeyType(), "JSON")
}

func (d mysql) DropTable(table string) string { return dropTable(d, table) }

func (d mysql) SelectSession(table string) string { return selectSession(d, table) }

func (d mysql) UpsertSession(table string) string {
	return insertSession(d, table) +
		fmt.Sprintf(" ON DUPLICATE KEY UPDATE %s = VALUES(%s)",
			d.Quote(ColumnData), d.Quote(ColumnData))
}

func (d mysql) DeleteSession(table string) string { return deleteSession(d, table) }

func (d mysql) DeleteAllSessions(table string) string { return deleteAll(d, table) }

func (mysql) HasTable() string {
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
}

func createTable(d Dialect, table, idType, dataType string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s %s NOT NULL PRIMARY KEY, %s %s NOT NULL)",
		d.Quote(table), d.Quote(ColumnID), idType, d.Quote(ColumnData), dataType)
}

func dropTable(d Dialect, table string) string {
	return "DROP TABLE " + d.Quote(table)
}

func selectSession(d Dialect, table string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		d.Quote(ColumnData), d.Quote(table), d.Quote(ColumnID), d.Placeholder(1))
}

func insertSession(d Dialect, table string) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s)",
		d.Quote(table), d.Quote(ColumnID), d.Quote(ColumnData), d.Placeholder(1), d.Placeholder(2))
}

func deleteSession(d Dialect, table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		d.Quote(table), d.Quote(ColumnID), d.Placeholder(1))
}

func deleteAll(d Dialect, table string) string {
	return "DELETE FROM " + d.Quote(table)
}
