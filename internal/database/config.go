package database

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config selects the archive backend. Driver is "sqlite" or "postgres";
// only the matching section is read.
type Config struct {
	Driver     string
	SQLitePath string
	Postgres   PostgresConfig
}

// PostgresConfig addresses a PostgreSQL server and sizes its pool.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig archives to a SQLite file at sqlitePath.
func DefaultConfig(sqlitePath string) Config {
	return Config{Driver: "sqlite", SQLitePath: sqlitePath}
}

// DefaultPostgresConfig points at a local server without TLS.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DSN returns a postgres:// URL for lib/pq. Credentials are escaped, so
// passwords may contain any character.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if c.SSLMode == "" {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
