package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/steamtunnels/internal/mapgen"
)

// ErrLayoutNotFound is returned when a layout lookup fails.
var ErrLayoutNotFound = errors.New("layout not found")

// Layout is an archived map snapshot.
type Layout struct {
	ID         int64
	Digest     string
	Label      string
	Width      int
	Height     int
	Difficulty int
	Seed       int64
	Waves      int
	Spawns     int
	Goals      int
	Snapshot   mapgen.Snapshot
	CreatedAt  time.Time
}

const layoutColumns = "id, digest, label, width, height, difficulty, seed, waves, spawns, goals, snapshot, created_at"

// SaveLayout archives a snapshot under label. Layouts are keyed by digest, so
// saving the same grid twice returns the stored row with created set to false.
func (d *Database) SaveLayout(label string, waves int, s mapgen.Snapshot) (layout *Layout, created bool, err error) {
	if s.Digest == "" {
		return nil, false, errors.New("snapshot has no digest")
	}
	body, err := yaml.Marshal(s)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	label = strings.TrimSpace(label)

	query := d.dialect.Rebind(
		`INSERT INTO layouts (digest, label, width, height, difficulty, seed, waves, spawns, goals, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	id, err := d.dialect.InsertID(d.db, query,
		s.Digest, label, s.Width, s.Height, s.Difficulty, s.Seed, waves, len(s.Spawns), len(s.Goals), string(body))
	if err != nil {
		if d.dialect.IsDuplicateKeyError(err) {
			existing, getErr := d.GetLayoutByDigest(s.Digest)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to save layout: %w", err)
	}

	return &Layout{
		ID:         id,
		Digest:     s.Digest,
		Label:      label,
		Width:      s.Width,
		Height:     s.Height,
		Difficulty: s.Difficulty,
		Seed:       s.Seed,
		Waves:      waves,
		Spawns:     len(s.Spawns),
		Goals:      len(s.Goals),
		Snapshot:   s,
		CreatedAt:  time.Now(),
	}, true, nil
}

// GetLayout retrieves a layout by ID.
func (d *Database) GetLayout(id int64) (*Layout, error) {
	return d.getLayout("id = ?", id)
}

// GetLayoutByDigest retrieves a layout by its grid digest.
func (d *Database) GetLayoutByDigest(digest string) (*Layout, error) {
	return d.getLayout("digest = ?", digest)
}

// GetLayoutByLabel retrieves the newest layout with the given label, ignoring case.
func (d *Database) GetLayoutByLabel(label string) (*Layout, error) {
	return d.getLayout("label = ? ORDER BY id DESC LIMIT 1", strings.TrimSpace(label))
}

func (d *Database) getLayout(where string, arg any) (*Layout, error) {
	row := d.db.QueryRow(d.dialect.Rebind("SELECT "+layoutColumns+" FROM layouts WHERE "+where), arg)
	l, err := scanLayout(row)
	if err == sql.ErrNoRows {
		return nil, ErrLayoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get layout: %w", err)
	}
	return l, nil
}

// ListLayouts returns archived layouts, newest first. A difficulty of zero
// lists every band. A limit of zero or less returns all rows.
func (d *Database) ListLayouts(difficulty, limit int) ([]*Layout, error) {
	query := "SELECT " + layoutColumns + " FROM layouts"
	var args []any
	if difficulty > 0 {
		query += " WHERE difficulty = ?"
		args = append(args, difficulty)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(d.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list layouts: %w", err)
	}
	defer rows.Close()

	var layouts []*Layout
	for rows.Next() {
		l, err := scanLayout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan layout: %w", err)
		}
		layouts = append(layouts, l)
	}
	return layouts, rows.Err()
}

// CountLayouts returns the number of archived layouts.
func (d *Database) CountLayouts() (int, error) {
	var count int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM layouts").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count layouts: %w", err)
	}
	return count, nil
}

// DeleteLayout removes a layout by ID.
func (d *Database) DeleteLayout(id int64) error {
	result, err := d.db.Exec(d.dialect.Rebind("DELETE FROM layouts WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete layout: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete layout: %w", err)
	}
	if n == 0 {
		return ErrLayoutNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLayout(row scanner) (*Layout, error) {
	var l Layout
	var body string
	var createdAt sql.NullTime
	if err := row.Scan(&l.ID, &l.Digest, &l.Label, &l.Width, &l.Height, &l.Difficulty,
		&l.Seed, &l.Waves, &l.Spawns, &l.Goals, &body, &createdAt); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal([]byte(body), &l.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", l.Digest, err)
	}
	if createdAt.Valid {
		l.CreatedAt = createdAt.Time
	}
	return &l, nil
}
