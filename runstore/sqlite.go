package runstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	flow_id    TEXT NOT NULL DEFAULT '',
	phase      TEXT NOT NULL,
	version    INTEGER NOT NULL,
	state      BLOB,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_phase ON runs(phase);
`

// SQLiteStore persists run records in a SQLite database. Unlike FileStore,
// the optimistic version check happens inside a single UPDATE, so it holds
// across processes sharing the database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize run database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create implements Store.
func (s *SQLiteStore) Create(rec *Record) error {
	now := time.Now()
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, flow_id, phase, version, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.FlowID, string(rec.Phase), rec.Version, []byte(rec.State), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrRunExists, rec.RunID)
		}
		return fmt.Errorf("insert run %s: %w", rec.RunID, err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(runID string) (*Record, error) {
	row := s.db.QueryRow(
		`SELECT run_id, flow_id, phase, version, state, created_at, updated_at
		 FROM runs WHERE run_id = ?`, runID)

	var rec Record
	var phase string
	var state []byte
	err := row.Scan(&rec.RunID, &rec.FlowID, &phase, &rec.Version, &state, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	rec.Phase = Phase(phase)
	rec.State = state
	return &rec, nil
}

// Save implements Store. The version check and increment are one UPDATE.
func (s *SQLiteStore) Save(rec *Record) error {
	now := time.Now()
	res, err := s.db.Exec(
		`UPDATE runs SET phase = ?, version = version + 1, state = ?, updated_at = ?
		 WHERE run_id = ? AND version = ?`,
		string(rec.Phase), []byte(rec.State), now, rec.RunID, rec.Version,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", rec.RunID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save run %s: %w", rec.RunID, err)
	}
	if n == 0 {
		// Either the run is gone or someone else advanced it.
		if _, loadErr := s.Load(rec.RunID); loadErr != nil {
			return loadErr
		}
		return fmt.Errorf("%w: %s at caller version %d", ErrVersionConflict, rec.RunID, rec.Version)
	}
	rec.Version++
	rec.UpdatedAt = now
	return nil
}

// List implements Store, newest first.
func (s *SQLiteStore) List(filter ListFilter) ([]Meta, error) {
	query := `SELECT run_id, flow_id, phase, version, created_at, updated_at FROM runs`
	var args []any
	var where []string
	if filter.FlowID != "" {
		where = append(where, "flow_id = ?")
		args = append(args, filter.FlowID)
	}
	if filter.Phase != "" {
		where = append(where, "phase = ?")
		args = append(args, string(filter.Phase))
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		var m Meta
		var phase string
		if err := rows.Scan(&m.RunID, &m.FlowID, &phase, &m.Version, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		m.Phase = Phase(phase)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete implements Store.
func (s *SQLiteStore) Delete(runID string) error {
	res, err := s.db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text;
	// there is no exported error type to match on.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
