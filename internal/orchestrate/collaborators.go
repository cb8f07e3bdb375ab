// Package orchestrate drives an investigation session through the
// escalation state machine: an optional quick-fix attempt, rigorous
// hypothesis testing, fix application, and verification, ending in exactly
// one terminal status. The orchestrator is the session's single writer; all
// command execution and fix application happen in caller-supplied
// collaborators.
package orchestrate

import (
	"context"

	"sleuth/internal/hypothesis"
)

// VerifyOutcome is the result of re-running the original failing condition.
type VerifyOutcome string

const (
	// VerifyPass: the original failure no longer reproduces.
	VerifyPass VerifyOutcome = "pass"
	// VerifyPartial: improved, but residual risk remains.
	VerifyPartial VerifyOutcome = "partial"
	// VerifyFail: the failure still reproduces (or got worse).
	VerifyFail VerifyOutcome = "fail"
)

// Executor runs tests and verification for the core. It is external: the
// core never executes commands itself, and the caller owns timeouts.
type Executor interface {
	// RunTest executes the test's procedure and reports what happened.
	// Success means the actual outcome matched the outcome expected if the
	// hypothesis under test is true.
	RunTest(ctx context.Context, tst *hypothesis.Test) (actualOutput string, success bool, err error)

	// Verify re-runs the original failing condition.
	Verify(ctx context.Context) (VerifyOutcome, string, error)
}

// FixImplementer applies and reverts state changes. Snapshot and Revert
// bracket every change the orchestrator requests so a failed attempt can be
// rolled back bit-exactly.
type FixImplementer interface {
	// Snapshot captures the session-observable state before a change.
	Snapshot(ctx context.Context) ([]byte, error)

	// ApplyQuickFix applies the single low-risk corrective action named by
	// the clarity signal.
	ApplyQuickFix(ctx context.Context, action string) error

	// ApplyFix applies a fix for the confirmed hypothesis and returns a
	// reference to its fix description (for the session report).
	ApplyFix(ctx context.Context, hyp *hypothesis.Hypothesis) (string, error)

	// Revert restores the snapshot. The restored state must be bit-exact;
	// the orchestrator re-snapshots and compares.
	Revert(ctx context.Context, snapshot []byte) error
}

// TestPlanner designs the next test for a hypothesis. The plan carries the
// domain knowledge (what command to run, what outcome confirms); the core
// only sequences it.
type TestPlanner interface {
	PlanTest(ctx context.Context, hyp *hypothesis.Hypothesis) (*hypothesis.Test, error)
}

// ClaritySignal is the caller's judgment of the raw error: whether the
// message is self-explanatory and, if so, the single low-risk corrective
// action worth trying before a full investigation.
type ClaritySignal struct {
	SelfExplanatory bool   `json:"self_explanatory"`
	QuickFixAction  string `json:"quick_fix_action,omitempty"`
}

// QuickFixEligible reports whether the entry gate to QUICK_FIX_ATTEMPT is
// open: the signal must both declare the message self-explanatory and name
// a concrete action.
func (c ClaritySignal) QuickFixEligible() bool {
	return c.SelfExplanatory && c.QuickFixAction != ""
}
