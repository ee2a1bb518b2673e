package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteDialect stores the archive in a single modernc.org/sqlite file.
type SQLiteDialect struct{}

// sqlitePragmas are applied by the driver to every pooled connection.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

func (d *SQLiteDialect) Type() DialectType { return DialectSQLite }

func (d *SQLiteDialect) DriverName() string { return "sqlite" }

// DataSource creates the parent directory and returns the file path with the
// connection pragmas attached.
func (d *SQLiteDialect) DataSource(cfg Config) (string, error) {
	if cfg.SQLitePath == "" {
		return "", errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}

	params := make([]string, len(sqlitePragmas))
	for i, p := range sqlitePragmas {
		params[i] = "_pragma=" + p
	}
	return cfg.SQLitePath + "?" + strings.Join(params, "&"), nil
}

// Prepare checks the file can be opened. Pragmas ride on the DSN.
func (d *SQLiteDialect) Prepare(db *sql.DB, cfg Config) error {
	return db.Ping()
}

func (d *SQLiteDialect) LayoutSchema() []string {
	return layoutSchema(
		"id INTEGER PRIMARY KEY AUTOINCREMENT",
		"label TEXT NOT NULL DEFAULT '' COLLATE NOCASE",
	)
}

// Rebind returns the query unchanged; SQLite understands ?.
func (d *SQLiteDialect) Rebind(query string) string { return query }

func (d *SQLiteDialect) InsertID(db *sql.DB, query string, args ...any) (int64, error) {
	result, err := db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// IsDuplicateKeyError matches SQLITE_CONSTRAINT_UNIQUE and primary key
// violations.
func (d *SQLiteDialect) IsDuplicateKeyError(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}
