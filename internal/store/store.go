// Package store keeps a SQLite history of verification results.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/julianshen/gavel/internal/verdict"
)

// Record is a verification result with the context it was produced in.
type Record struct {
	verdict.Result
	Source   string `json:"source"`
	Codebase string `json:"codebase"`
	Model    string `json:"model"`
}

// Store wraps a SQLite database of verification results.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at dbPath and ensures
// all required tables exist. Use ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS verifications (
			report_id  TEXT PRIMARY KEY,
			source     TEXT NOT NULL,
			codebase   TEXT NOT NULL,
			model      TEXT NOT NULL,
			verdict    TEXT NOT NULL,
			reasoning  TEXT NOT NULL,
			confidence TEXT NOT NULL,
			poc        TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verifications_created ON verifications (created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// SaveResult persists a record. A record with the same report id is
// replaced.
func (s *Store) SaveResult(r Record) error {
	r.Fill()
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO verifications
		 (report_id, source, codebase, model, verdict, reasoning, confidence, poc, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ReportID, r.Source, r.Codebase, r.Model,
		string(r.Verdict), r.Reasoning, string(r.Confidence), r.PoC, r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// GetResult returns the record for reportID, or nil if there is none.
func (s *Store) GetResult(reportID string) (*Record, error) {
	row := s.db.QueryRow(selectRecord+` WHERE report_id = ?`, reportID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return r, nil
}

// ListResults returns up to limit records, newest first. A limit of zero
// or less returns every record.
func (s *Store) ListResults(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(selectRecord+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// CountByVerdict tallies stored results per verdict.
func (s *Store) CountByVerdict() (map[verdict.Verdict]int, error) {
	rows, err := s.db.Query(`SELECT verdict, COUNT(*) FROM verifications GROUP BY verdict`)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	defer rows.Close()

	counts := make(map[verdict.Verdict]int)
	for rows.Next() {
		var v string
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[verdict.Verdict(v)] = n
	}
	return counts, rows.Err()
}

const selectRecord = `SELECT report_id, source, codebase, model, verdict, reasoning, confidence, poc, created_at
	FROM verifications`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var r Record
	var v, c string
	err := sc.Scan(&r.ReportID, &r.Source, &r.Codebase, &r.Model, &v, &r.Reasoning, &c, &r.PoC, &r.Timestamp)
	if err != nil {
		return nil, err
	}
	r.Verdict = verdict.Verdict(v)
	r.Confidence = verdict.Confidence(c)
	return &r, nil
}
