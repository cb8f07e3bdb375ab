package session

import (
	"sleuth/internal/capture"
	"sleuth/internal/evidence"
	"sleuth/internal/hypothesis"
	"sleuth/internal/template"
)

// Report is the serializable session record handed to the external
// report-renderer. No wire format beyond JSON-tagged fields is promised.
type Report struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	ClosedAt  string `json:"closed_at,omitempty"`

	Terminal       TerminalStatus `json:"terminal"`
	TerminalReason string         `json:"terminal_reason,omitempty"`

	Error     capture.ErrorReport `json:"error"`
	Templates []template.Template `json:"templates"`

	Hypotheses []HypothesisRecord `json:"hypotheses"`
	Tests      []hypothesis.Test  `json:"tests"`
	Timeline   []PhaseRecord      `json:"timeline"`

	FixRef string `json:"fix_ref,omitempty"`
}

// HypothesisRecord is the report view of one hypothesis with its ordered
// evidence trail.
type HypothesisRecord struct {
	ID          string                `json:"id"`
	Description string                `json:"description"`
	Category    hypothesis.Category   `json:"category"`
	Likelihood  hypothesis.Likelihood `json:"likelihood"`
	Status      hypothesis.Status     `json:"status"`

	Supporting    []EvidenceRecord `json:"supporting,omitempty"`
	Contradicting []EvidenceRecord `json:"contradicting,omitempty"`
}

// EvidenceRecord is the report view of one piece of evidence.
type EvidenceRecord struct {
	SourceKind string `json:"source_kind"`
	Tier       int    `json:"tier"`
	Polarity   string `json:"polarity"`
	Content    string `json:"content"`
	RecordedAt string `json:"recorded_at,omitempty"`
}

// BuildReport flattens the session into its report record.
func BuildReport(s *Session) *Report {
	r := &Report{
		ID:             s.ID,
		CreatedAt:      s.CreatedAt,
		ClosedAt:       s.ClosedAt,
		Terminal:       s.Terminal,
		TerminalReason: s.TerminalReason,
		Error:          s.Report,
		Templates:      s.Templates,
		Tests:          s.Tests,
		Timeline:       s.Timeline,
		FixRef:         s.FixRef,
	}
	for _, h := range s.Tracker.All() {
		rec := HypothesisRecord{
			ID:          h.ID,
			Description: h.Description,
			Category:    h.Category,
			Likelihood:  h.Likelihood,
			Status:      h.Status,
		}
		for _, ev := range h.Supporting {
			rec.Supporting = append(rec.Supporting, evidenceRecord(ev))
		}
		for _, ev := range h.Contradicting {
			rec.Contradicting = append(rec.Contradicting, evidenceRecord(ev))
		}
		r.Hypotheses = append(r.Hypotheses, rec)
	}
	return r
}

func evidenceRecord(ev evidence.Evidence) EvidenceRecord {
	return EvidenceRecord{
		SourceKind: string(ev.SourceKind),
		Tier:       int(ev.Tier),
		Polarity:   string(ev.Polarity),
		Content:    ev.Content,
		RecordedAt: ev.RecordedAt,
	}
}
