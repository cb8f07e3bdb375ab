// Package session holds the per-investigation state: the captured error, its
// templates, the hypothesis set, the test log, and the phase timeline from
// capture to terminal resolution.
//
// A Session is single-writer: only the orchestrator mutates it, strictly
// sequentially. Concurrent evidence gathering happens outside the session and
// is merged in by that one writer.
package session

// Phase is the orchestrator's position in the escalation state machine.
type Phase string

const (
	PhaseNew              Phase = "NEW"
	PhaseQuickFixAttempt  Phase = "QUICK_FIX_ATTEMPT"
	PhaseReverted         Phase = "REVERTED"
	PhaseRigorous         Phase = "RIGOROUS_INVESTIGATION"
	PhaseHypothesisTesting Phase = "HYPOTHESIS_TESTING"
	PhaseFixApplied       Phase = "FIX_APPLIED"
	PhaseVerified         Phase = "VERIFIED"

	// Terminal phases; Session.Terminal mirrors them as the status.
	PhaseResolved          Phase = "RESOLVED"
	PhaseBlocked           Phase = "BLOCKED"
	PhaseWorkaroundApplied Phase = "WORKAROUND_APPLIED"
)

// IsTerminal reports whether the phase ends the session.
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseResolved, PhaseBlocked, PhaseWorkaroundApplied:
		return true
	}
	return false
}

// TerminalStatus is the session's final outcome.
type TerminalStatus string

const (
	StatusResolved          TerminalStatus = "resolved"
	StatusBlocked           TerminalStatus = "blocked"
	StatusWorkaroundApplied TerminalStatus = "workaround-applied"
)

// PhaseRecord logs one phase transition with the rule that caused it.
type PhaseRecord struct {
	From        Phase  `json:"from"`
	To          Phase  `json:"to"`
	RuleID      string `json:"rule_id"`
	Explanation string `json:"explanation"`
	At          string `json:"at"` // ISO 8601
}
