package database

import (
	"database/sql"
	"strconv"
	"strings"
)

// Dialect covers what the layout archive does differently on SQLite and
// PostgreSQL.
type Dialect interface {
	Type() DialectType

	// DriverName is the database/sql driver to open.
	DriverName() string

	// DataSource prepares the backing store if needed and returns the DSN.
	DataSource(cfg Config) (string, error)

	// Prepare tunes a freshly opened pool and checks the connection.
	Prepare(db *sql.DB, cfg Config) error

	// LayoutSchema returns the statements creating the layouts table.
	LayoutSchema() []string

	// Rebind rewrites ? placeholders into the dialect's own form.
	Rebind(query string) string

	// InsertID runs an INSERT into a table with an id column and returns the
	// new id.
	InsertID(db *sql.DB, query string, args ...any) (int64, error)

	// IsDuplicateKeyError reports a unique constraint violation.
	IsDuplicateKeyError(err error) bool
}

// DialectType identifies the database dialect.
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

func (t DialectType) String() string { return string(t) }

// NewDialect creates a Dialect for the given type. Unknown types get SQLite.
func NewDialect(dialectType DialectType) Dialect {
	switch dialectType {
	case DialectPostgres:
		return &PostgresDialect{}
	default:
		return &SQLiteDialect{}
	}
}

// layoutSchema fills the dialect specific id and label columns into the
// shared layouts DDL.
func layoutSchema(idColumn, labelColumn string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS layouts (
			` + idColumn + `,
			digest TEXT UNIQUE NOT NULL,
			` + labelColumn + `,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			difficulty INTEGER NOT NULL,
			seed BIGINT NOT NULL,
			waves INTEGER NOT NULL DEFAULT 0,
			spawns INTEGER NOT NULL,
			goals INTEGER NOT NULL,
			snapshot TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_layouts_label ON layouts(label)`,
		`CREATE INDEX IF NOT EXISTS idx_layouts_difficulty ON layouts(difficulty)`,
	}
}

// rebindNumbered turns each ? outside a quoted literal into $1, $2, ...
func rebindNumbered(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteByte(c)
		case c == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
