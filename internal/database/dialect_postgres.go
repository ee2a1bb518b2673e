package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// PostgresDialect stores the archive in PostgreSQL through lib/pq.
type PostgresDialect struct{}

// pqUniqueViolation is the SQLSTATE for unique_violation.
const pqUniqueViolation pq.ErrorCode = "23505"

func (d *PostgresDialect) Type() DialectType { return DialectPostgres }

func (d *PostgresDialect) DriverName() string { return "postgres" }

func (d *PostgresDialect) DataSource(cfg Config) (string, error) {
	if cfg.Postgres.Host == "" {
		return "", errors.New("postgres host is empty")
	}
	return cfg.Postgres.DSN(), nil
}

// Prepare applies the pool settings, checks the server answers and enables
// citext for case-insensitive labels.
func (d *PostgresDialect) Prepare(db *sql.DB, cfg Config) error {
	if cfg.Postgres.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}
	if cfg.Postgres.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	}
	if err := db.Ping(); err != nil {
		return err
	}
	_, err := db.Exec("CREATE EXTENSION IF NOT EXISTS citext")
	return err
}

func (d *PostgresDialect) LayoutSchema() []string {
	return layoutSchema(
		"id BIGSERIAL PRIMARY KEY",
		"label CITEXT NOT NULL DEFAULT ''",
	)
}

func (d *PostgresDialect) Rebind(query string) string { return rebindNumbered(query) }

// InsertID appends RETURNING id since lib/pq has no LastInsertId.
func (d *PostgresDialect) InsertID(db *sql.DB, query string, args ...any) (int64, error) {
	var id int64
	err := db.QueryRow(query+" RETURNING id", args...).Scan(&id)
	return id, err
}

func (d *PostgresDialect) IsDuplicateKeyError(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
