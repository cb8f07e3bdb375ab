package orchestrate

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"sleuth/internal/evidence"
	"sleuth/internal/hypothesis"
	"sleuth/internal/logging"
	"sleuth/internal/research"
	"sleuth/internal/session"
)

// Thresholds holds the loop bounds for a session run.
type Thresholds struct {
	// MaxTestLoops caps hypothesis-testing iterations across the session.
	MaxTestLoops int
	// MaxVerifyLoops caps how many confirmed-then-demoted rounds are
	// allowed before the session blocks.
	MaxVerifyLoops int
}

// DefaultThresholds returns conservative loop bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxTestLoops:   25,
		MaxVerifyLoops: 3,
	}
}

// Policy is the escalation policy / session orchestrator. It owns the only
// writer of session state; collaborator calls are the only places it blocks.
type Policy struct {
	Exec    Executor
	Fixer   FixImplementer
	Planner TestPlanner

	// Research is optional; when set, each hypothesis gets one concurrent
	// research pass before its first planned test.
	Research *research.Pool

	Thresholds Thresholds

	log *slog.Logger
}

// NewPolicy wires a policy over the mandatory collaborators.
func NewPolicy(exec Executor, fixer FixImplementer, planner TestPlanner) *Policy {
	return &Policy{
		Exec:       exec,
		Fixer:      fixer,
		Planner:    planner,
		Thresholds: DefaultThresholds(),
		log:        logging.New("orchestrate"),
	}
}

// Run drives the session from NEW to a terminal status and returns the
// session report. Diagnostic outcomes (fix regression, evidence conflict,
// hypothesis exhaustion, verification failure) are state machine routes, not
// errors; the error return is reserved for collaborator failures and
// contract violations.
func (p *Policy) Run(ctx context.Context, s *session.Session, clarity ClaritySignal) (*session.Report, error) {
	if s.Phase != session.PhaseNew {
		return nil, fmt.Errorf("session %s is in phase %s, not NEW", s.ID, s.Phase)
	}

	if clarity.QuickFixEligible() {
		resolved, err := p.attemptQuickFix(ctx, s, clarity)
		if err != nil {
			return nil, err
		}
		if resolved {
			return session.BuildReport(s), nil
		}
	} else {
		if err := s.Advance(session.PhaseRigorous, "E2",
			"error not self-explanatory; entering rigorous investigation"); err != nil {
			return nil, err
		}
	}

	if err := p.investigate(ctx, s); err != nil {
		return nil, err
	}
	return session.BuildReport(s), nil
}

// attemptQuickFix runs the QUICK_FIX_ATTEMPT path. Returns true when the
// session resolved. On no-change or regression the change is reverted
// bit-exactly before the session escalates, never forward with unreverted
// state.
func (p *Policy) attemptQuickFix(ctx context.Context, s *session.Session, clarity ClaritySignal) (bool, error) {
	if err := s.Advance(session.PhaseQuickFixAttempt, "E1",
		fmt.Sprintf("self-explanatory error; trying low-risk action: %s", clarity.QuickFixAction)); err != nil {
		return false, err
	}

	snapshot, err := p.Fixer.Snapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("snapshot before quick fix: %w", err)
	}
	if err := p.Fixer.ApplyQuickFix(ctx, clarity.QuickFixAction); err != nil {
		return false, fmt.Errorf("apply quick fix: %w", err)
	}

	outcome, detail, err := p.Exec.Verify(ctx)
	if err != nil {
		return false, fmt.Errorf("verify quick fix: %w", err)
	}
	if outcome == VerifyPass {
		if err := s.Close(session.StatusResolved, "Q1",
			fmt.Sprintf("quick fix resolved the failure: %s", detail)); err != nil {
			return false, err
		}
		return true, nil
	}

	// FixRegression: mandatory full revert before anything else.
	p.log.Warn("quick fix did not resolve; reverting", "session", s.ID, "outcome", string(outcome))
	if err := p.Fixer.Revert(ctx, snapshot); err != nil {
		return false, fmt.Errorf("revert quick fix: %w", err)
	}
	after, err := p.Fixer.Snapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("snapshot after revert: %w", err)
	}
	if !bytes.Equal(snapshot, after) {
		return false, fmt.Errorf("revert of quick fix %q is not bit-exact", clarity.QuickFixAction)
	}
	if err := s.Advance(session.PhaseReverted, "Q2",
		fmt.Sprintf("fix regression (%s); change fully reverted", outcome)); err != nil {
		return false, err
	}
	if err := s.Advance(session.PhaseRigorous, "Q3",
		"quick fix exhausted; entering rigorous investigation"); err != nil {
		return false, err
	}
	return false, nil
}

// investigate runs the HYPOTHESIS_TESTING loop through FIX_APPLIED and
// VERIFIED to a terminal status.
func (p *Policy) investigate(ctx context.Context, s *session.Session) error {
	if err := s.Advance(session.PhaseHypothesisTesting, "E3", "testing seeded hypotheses"); err != nil {
		return err
	}

	researched := make(map[string]bool)
	verifyRounds := 0
	for loops := 0; ; loops++ {
		if loops >= p.Thresholds.MaxTestLoops {
			return s.Close(session.StatusBlocked, "H-BUDGET",
				fmt.Sprintf("test budget exhausted after %d loops without resolution", loops))
		}

		hyp := s.Tracker.Next()
		if hyp == nil {
			// HypothesisExhaustion: terminal dead-end requiring
			// external input.
			return s.Close(session.StatusBlocked, "H-EXH",
				"all hypotheses rejected; external input needed")
		}

		if p.Research != nil && !researched[hyp.ID] {
			researched[hyp.ID] = true
			if err := p.runResearch(ctx, s, hyp); err != nil {
				return err
			}
			if hyp.Status == hypothesis.StatusRejected {
				continue
			}
		}

		if hyp.Status == hypothesis.StatusTesting {
			if err := p.runPlannedTest(ctx, s, hyp); err != nil {
				return err
			}
		}

		if hyp.Status != hypothesis.StatusConfirmed {
			continue
		}

		done, err := p.applyAndVerify(ctx, s, hyp, &verifyRounds)
		if err != nil || done {
			return err
		}
		// Verification failed; hyp was demoted and the loop resumes.
	}
}

// runResearch gathers concurrent research evidence for the hypothesis and
// commits the merged batch as one recorded test.
func (p *Policy) runResearch(ctx context.Context, s *session.Session, hyp *hypothesis.Hypothesis) error {
	var tmpl = s.Templates[0]
	batch := p.Research.Gather(ctx, research.Query{
		HypothesisID: hyp.ID,
		Template:     tmpl,
		Description:  hyp.Description,
	})
	if len(batch) == 0 {
		return nil
	}
	tst := hypothesis.Test{
		HypothesisID: hyp.ID,
		Procedure:    fmt.Sprintf("concurrent research lookup for %q", hyp.Description),
		Expected:     "independent sources consistent with the hypothesis",
		Derived:      batch,
		RanAt:        nowUTC(),
	}
	if err := s.AppendTest(tst); err != nil {
		return err
	}
	if _, err := s.Tracker.RecordTestResult(hyp.ID, &tst); err != nil {
		return fmt.Errorf("record research result: %w", err)
	}
	return nil
}

// runPlannedTest asks the planner for the next discriminating test, has the
// executor run it, and records the direct-execution evidence.
func (p *Policy) runPlannedTest(ctx context.Context, s *session.Session, hyp *hypothesis.Hypothesis) error {
	tst, err := p.Planner.PlanTest(ctx, hyp)
	if err != nil {
		return fmt.Errorf("plan test for %s: %w", hyp.ID, err)
	}
	tst.HypothesisID = hyp.ID

	actual, success, err := p.Exec.RunTest(ctx, tst)
	if err != nil {
		return fmt.Errorf("run test for %s: %w", hyp.ID, err)
	}
	tst.Actual = actual

	polarity := evidence.Contradicts
	if success {
		polarity = evidence.Supports
	}
	tst.Derived = append(tst.Derived, evidence.Evidence{
		SourceKind: evidence.SourceDirectExecution,
		Content:    fmt.Sprintf("%s: %s", tst.Procedure, actual),
		Polarity:   polarity,
	})
	tst.RanAt = nowUTC()

	if err := s.AppendTest(*tst); err != nil {
		return err
	}
	updated, err := s.Tracker.RecordTestResult(hyp.ID, tst)
	if err != nil {
		return fmt.Errorf("record test result: %w", err)
	}
	if updated.NeedsDiscriminator {
		p.log.Info("evidence conflict; discriminating test required",
			"session", s.ID, "hypothesis", hyp.ID)
	}
	return nil
}

// applyAndVerify runs FIX_APPLIED and VERIFIED for the confirmed hypothesis.
// Returns done=true when the session reached a terminal status.
func (p *Policy) applyAndVerify(ctx context.Context, s *session.Session, hyp *hypothesis.Hypothesis, verifyRounds *int) (bool, error) {
	if err := s.Advance(session.PhaseFixApplied, "F1",
		fmt.Sprintf("fix for confirmed hypothesis %s handed to implementer", hyp.ID)); err != nil {
		return false, err
	}
	ref, err := p.Fixer.ApplyFix(ctx, hyp)
	if err != nil {
		return false, fmt.Errorf("apply fix for %s: %w", hyp.ID, err)
	}
	if err := s.SetFixRef(ref); err != nil {
		return false, err
	}

	if err := s.Advance(session.PhaseVerified, "V0", "re-running original failing condition"); err != nil {
		return false, err
	}
	outcome, detail, err := p.Exec.Verify(ctx)
	if err != nil {
		return false, fmt.Errorf("verify fix: %w", err)
	}

	switch outcome {
	case VerifyPass:
		return true, s.Close(session.StatusResolved, "V1",
			fmt.Sprintf("verification passed: %s", detail))
	case VerifyPartial:
		return true, s.Close(session.StatusWorkaroundApplied, "V2",
			fmt.Sprintf("partial success with residual risk: %s", detail))
	default:
		// VerificationFailure: demote the confirmed-but-wrong hypothesis
		// and loop back rather than declare false success.
		*verifyRounds++
		p.log.Warn("verification failed; demoting hypothesis",
			"session", s.ID, "hypothesis", hyp.ID, "round", *verifyRounds)
		if err := s.Tracker.Demote(hyp.ID, evidence.Evidence{
			SourceKind: evidence.SourceDirectExecution,
			Content:    fmt.Sprintf("fix applied but verification failed: %s", detail),
			Polarity:   evidence.Contradicts,
		}); err != nil {
			return false, err
		}
		if *verifyRounds >= p.Thresholds.MaxVerifyLoops {
			return true, s.Close(session.StatusBlocked, "V-EXH",
				fmt.Sprintf("%d verification rounds failed; external input needed", *verifyRounds))
		}
		if err := s.Advance(session.PhaseHypothesisTesting, "V3",
			"verification failed; resuming hypothesis testing"); err != nil {
			return false, err
		}
		return false, nil
	}
}

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
