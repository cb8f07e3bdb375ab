package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"sleuth/internal/session"
)

//go:embed schema.sql
var schemaDDL string

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path, creating the parent directory
// and applying the embedded schema.
func Open(path string) (*SqlStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return open(path + "?_pragma=foreign_keys(1)")
}

// OpenMemory opens an in-memory SQLite DB for testing.
func OpenMemory() (*SqlStore, error) {
	return open(":memory:")
}

func open(dsn string) (*SqlStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The sqlite driver serializes access per connection; a single
	// connection avoids table-lock errors under concurrent use.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SqlStore{db: db}, nil
}

func (s *SqlStore) Close() error { return s.db.Close() }

func (s *SqlStore) SaveReport(r *session.Report) error {
	if r == nil || r.ID == "" {
		return errors.New("report with session id required")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions(id, terminal, terminal_reason, error_head, created_at, closed_at, payload)
		 VALUES(?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   terminal = excluded.terminal,
		   terminal_reason = excluded.terminal_reason,
		   error_head = excluded.error_head,
		   closed_at = excluded.closed_at,
		   payload = excluded.payload`,
		r.ID, string(r.Terminal), r.TerminalReason, errorHead(r), r.CreatedAt, r.ClosedAt, payload,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM session_templates WHERE session_id = ?", r.ID); err != nil {
		return fmt.Errorf("clear template index: %w", err)
	}
	for _, tmpl := range r.Templates {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO session_templates(session_id, fingerprint, template) VALUES(?, ?, ?)`,
			r.ID, tmpl.Fingerprint, tmpl.Text,
		)
		if err != nil {
			return fmt.Errorf("index template: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SqlStore) GetReport(id string) (*session.Report, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM sessions WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	var r session.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}

func (s *SqlStore) ListReports() ([]*Summary, error) {
	rows, err := s.db.Query(
		`SELECT id, terminal, terminal_reason, error_head, created_at, closed_at
		 FROM sessions ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return scanSummaries(rows)
}

func (s *SqlStore) Recall(fingerprint string) ([]*Summary, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.terminal, s.terminal_reason, s.error_head, s.created_at, s.closed_at
		 FROM sessions s
		 JOIN session_templates t ON t.session_id = s.id
		 WHERE t.fingerprint = ?
		 ORDER BY s.created_at DESC, s.id`,
		fingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("recall by fingerprint: %w", err)
	}
	return scanSummaries(rows)
}

func scanSummaries(rows *sql.Rows) ([]*Summary, error) {
	defer rows.Close()
	var list []*Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Terminal, &sum.TerminalReason,
			&sum.ErrorHead, &sum.CreatedAt, &sum.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		list = append(list, &sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return list, nil
}
