// Package snapshot persists normalized machine records between runs so the
// reconciliation commands can diff the current inventory against the last
// one without a second trip to the asset database.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
)

// Store wraps a SQLite connection holding inventory snapshots.
type Store struct {
	conn *sql.DB
}

// Run identifies one saved snapshot.
type Run struct {
	ID      string
	Source  string
	TakenAt time.Time
	Count   int
}

// New opens the SQLite database at path, enables WAL mode, and runs
// migrations.
func New(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id       TEXT PRIMARY KEY,
			source   TEXT NOT NULL,
			taken_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS records (
			run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			identifier TEXT NOT NULL,
			record     TEXT NOT NULL,
			PRIMARY KEY (run_id, identifier)
		);
		CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source, taken_at);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// SaveRun stores one snapshot of records under a fresh run id and returns
// the id. Records with duplicate identifiers keep the first occurrence.
func (s *Store) SaveRun(source string, takenAt time.Time, records []inventory.MachineRecord) (string, error) {
	runID := uuid.NewString()

	tx, err := s.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs (id, source, taken_at) VALUES (?, ?, ?)`,
		runID, source, takenAt.UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if seen[rec.Identifier] {
			continue
		}
		seen[rec.Identifier] = true

		encoded, err := json.Marshal(rec)
		if err != nil {
			return "", fmt.Errorf("encode record %q: %w", rec.Identifier, err)
		}
		_, err = tx.Exec(`INSERT INTO records (run_id, identifier, record) VALUES (?, ?, ?)`,
			runID, rec.Identifier, string(encoded))
		if err != nil {
			return "", fmt.Errorf("insert record %q: %w", rec.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit snapshot: %w", err)
	}
	return runID, nil
}

// LatestRun returns the newest run for source, or sql.ErrNoRows when the
// source has never been snapshotted.
func (s *Store) LatestRun(source string) (*Run, error) {
	row := s.conn.QueryRow(`
		SELECT r.id, r.source, r.taken_at, COUNT(rec.identifier)
		FROM runs r LEFT JOIN records rec ON rec.run_id = r.id
		WHERE r.source = ?
		GROUP BY r.id
		ORDER BY r.taken_at DESC, r.id DESC
		LIMIT 1`, source)

	var run Run
	var takenAt string
	if err := row.Scan(&run.ID, &run.Source, &takenAt, &run.Count); err != nil {
		return nil, err
	}
	var err error
	run.TakenAt, err = time.Parse(time.RFC3339, takenAt)
	if err != nil {
		return nil, fmt.Errorf("parse taken_at %q: %w", takenAt, err)
	}
	return &run, nil
}

// Records loads every machine record saved under runID.
func (s *Store) Records(runID string) ([]inventory.MachineRecord, error) {
	rows, err := s.conn.Query(`
		SELECT record FROM records WHERE run_id = ? ORDER BY identifier`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []inventory.MachineRecord
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, err
		}
		var rec inventory.MachineRecord
		if err := json.Unmarshal([]byte(encoded), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteRun removes a run and its records. Returns sql.ErrNoRows if no such
// run exists.
func (s *Store) DeleteRun(runID string) error {
	// CASCADE needs foreign keys on, which sqlite leaves off per
	// connection, so delete the records explicitly.
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM records WHERE run_id = ?`, runID); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}
