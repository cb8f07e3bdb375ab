// Package hypothesis tracks the competing explanations for an error through
// an investigation: seeding from templates and category checklists, ranked
// selection of the next hypothesis to test, and tier-based evidence
// resolution of test results.
package hypothesis

import (
	"sleuth/internal/evidence"
)

// Category classifies a hypothesis by the kind of cause it proposes. The
// order is a total priority: cheaper-to-check categories are tested first.
type Category string

const (
	CategoryConfiguration Category = "configuration"
	CategoryEnvironment   Category = "environment"
	CategoryDataFormat    Category = "data-format"
	CategoryComplex       Category = "complex"
)

// Priority returns the test-ordering rank for the category; lower tests first.
func (c Category) Priority() int {
	switch c {
	case CategoryConfiguration:
		return 0
	case CategoryEnvironment:
		return 1
	case CategoryDataFormat:
		return 2
	default:
		return 3
	}
}

// Likelihood is the seeded prior for a hypothesis.
type Likelihood string

const (
	LikelihoodHigh   Likelihood = "high"
	LikelihoodMedium Likelihood = "medium"
	LikelihoodLow    Likelihood = "low"
)

// Rank returns the ordering rank for the likelihood; lower tests first.
func (l Likelihood) Rank() int {
	switch l {
	case LikelihoodHigh:
		return 0
	case LikelihoodMedium:
		return 1
	default:
		return 2
	}
}

// Status is the per-hypothesis lifecycle state. Transitions are
// pending → testing → {confirmed, rejected}; confirmed and rejected are
// terminal (a confirmed hypothesis can only leave via Demote after a failed
// verification).
type Status string

const (
	StatusPending   Status = "pending"
	StatusTesting   Status = "testing"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

// Hypothesis is one candidate explanation for the error under investigation.
// Rejected hypotheses are never deleted; they stay in the session for audit.
type Hypothesis struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Likelihood  Likelihood `json:"likelihood"`
	Status      Status     `json:"status"`

	Supporting    []evidence.Evidence `json:"supporting,omitempty"`
	Contradicting []evidence.Evidence `json:"contradicting,omitempty"`

	// NeedsDiscriminator is set when supporting and contradicting evidence
	// tie at the same tier; a further test must break the tie.
	NeedsDiscriminator bool `json:"needs_discriminator,omitempty"`

	// CreationIndex is the seeding order, the final deterministic tie-break
	// for ranking.
	CreationIndex int    `json:"creation_index"`
	CreatedAt     string `json:"created_at"` // ISO 8601
}

// Evidence returns the combined evidence lists, supporting first.
func (h *Hypothesis) Evidence() []evidence.Evidence {
	out := make([]evidence.Evidence, 0, len(h.Supporting)+len(h.Contradicting))
	out = append(out, h.Supporting...)
	out = append(out, h.Contradicting...)
	return out
}

// Terminal reports whether the hypothesis has reached a per-hypothesis
// terminal status.
func (h *Hypothesis) Terminal() bool {
	return h.Status == StatusConfirmed || h.Status == StatusRejected
}

// Test is one executed check against a hypothesis, with the evidence it
// produced. The procedure is run by an external executor; the core only
// interprets the outcome.
type Test struct {
	HypothesisID string `json:"hypothesis_id"`
	Procedure    string `json:"procedure"`
	// Expected is the outcome predicted if the hypothesis is true.
	Expected string `json:"expected"`
	Actual   string `json:"actual"`

	Derived []evidence.Evidence `json:"derived"`

	RanAt string `json:"ran_at"` // ISO 8601
}
