// Package store persists closed and in-flight investigation reports and
// answers recall queries by template fingerprint, so a new session can reuse
// the confirmed cause of an identical prior failure.
package store

import "sleuth/internal/session"

// DefaultDBPath is the default relative path for the SQLite DB
// (per-workspace). Open() creates the parent dir.
const DefaultDBPath = ".sleuth/sleuth.db"

// Summary is the listing view of a stored session report.
type Summary struct {
	ID             string `json:"id"`
	Terminal       string `json:"terminal"`
	TerminalReason string `json:"terminal_reason,omitempty"`
	ErrorHead      string `json:"error_head"`
	CreatedAt      string `json:"created_at"`
	ClosedAt       string `json:"closed_at,omitempty"`
}

// Store is the persistence facade for session reports. Domain and CLI code
// use only this interface; implementation is SQLite or in-memory.
type Store interface {
	// SaveReport inserts or replaces the report by session id, indexing its
	// template fingerprints for recall.
	SaveReport(r *session.Report) error
	// GetReport returns the report by session id, or nil when absent.
	GetReport(id string) (*session.Report, error)
	// ListReports returns summaries of all stored reports, newest first.
	ListReports() ([]*Summary, error)
	// Recall returns summaries of prior sessions that share the template
	// fingerprint, newest first. Used before seeding a fresh hypothesis set:
	// an identical fingerprint with a resolved outcome is the cheapest
	// possible evidence.
	Recall(fingerprint string) ([]*Summary, error)

	Close() error
}

// errorHead is the one-line listing label for a report: the first template
// text when one exists, otherwise the first line of the raw error.
func errorHead(r *session.Report) string {
	if len(r.Templates) > 0 && r.Templates[0].Text != "" {
		return r.Templates[0].Text
	}
	raw := r.Error.RawText
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\n' {
			return raw[:i]
		}
	}
	return raw
}
