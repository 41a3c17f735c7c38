// Package store persists element history records in SQLite so recorded
// steps can be replayed against later snapshots.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/anxuanzi/bua-dom/dom"
)

// ErrNotFound is returned when a step has no records.
var ErrNotFound = errors.New("store: not found")

// Store is the history database handle.
type Store struct {
	DB *sql.DB
}

// Record is one stored element of a step.
type Record struct {
	ID        string
	StepID    string
	Position  int
	URL       string
	Element   *dom.HistoryElement
	CreatedAt time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Save appends elements to stepID after any records it already has.
func (s *Store) Save(ctx context.Context, stepID, url string, elements ...*dom.HistoryElement) ([]Record, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM history_elements WHERE step_id = ?`, stepID,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("store: next position: %w", err)
	}

	now := time.Now().UTC()
	out := make([]Record, 0, len(elements))
	for i, el := range elements {
		if el == nil {
			return nil, fmt.Errorf("store: element %d of step %s is nil", i, stepID)
		}
		raw, err := json.Marshal(el)
		if err != nil {
			return nil, fmt.Errorf("store: encode record: %w", err)
		}
		rec := Record{
			ID:        uuid.NewString(),
			StepID:    stepID,
			Position:  next + i,
			URL:       url,
			Element:   el,
			CreatedAt: now,
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO history_elements (id, step_id, position, url, record_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.StepID, rec.Position, rec.URL, string(raw), now.UnixMilli())
		if err != nil {
			return nil, fmt.Errorf("store: insert: %w", err)
		}
		out = append(out, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return out, nil
}

// Load returns the records of stepID in position order.
func (s *Store) Load(ctx context.Context, stepID string) ([]Record, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, step_id, position, url, record_json, created_at
		 FROM history_elements WHERE step_id = ? ORDER BY position`, stepID)
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", stepID, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			raw     string
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.StepID, &rec.Position, &rec.URL, &raw, &created); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		rec.Element = new(dom.HistoryElement)
		if err := json.Unmarshal([]byte(raw), rec.Element); err != nil {
			return nil, fmt.Errorf("store: decode record %s: %w", rec.ID, err)
		}
		rec.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: load %s: %w", stepID, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: step %s", ErrNotFound, stepID)
	}
	return out, nil
}

// Delete removes every record of stepID and reports how many were removed.
func (s *Store) Delete(ctx context.Context, stepID string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM history_elements WHERE step_id = ?`, stepID)
	if err != nil {
		return 0, fmt.Errorf("store: delete %s: %w", stepID, err)
	}
	return res.RowsAffected()
}

// Steps lists step ids, oldest first.
func (s *Store) Steps(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT step_id FROM history_elements GROUP BY step_id ORDER BY MIN(created_at), step_id`)
	if err != nil {
		return nil, fmt.Errorf("store: steps: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
