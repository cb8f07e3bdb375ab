package mcp

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sleuth/adapters/store"
	"sleuth/internal/capture"
	"sleuth/internal/evidence"
	"sleuth/internal/hypothesis"
	"sleuth/internal/logging"
	"sleuth/internal/session"
)

// Session wraps one investigation driven by MCP tool calls. The connected
// agent is the executor and fix implementer; the server owns the state
// machine and is the session's single writer (mu serializes tool calls).
type Session struct {
	ID string

	mu    sync.Mutex
	sess  *session.Session
	store store.Store
	log   *slog.Logger

	ttl   time.Duration
	timer *time.Timer
}

// NewSession captures the error, seeds the hypothesis set, and enters
// hypothesis testing. The store receives the report on every state change so
// a dropped connection loses nothing.
func NewSession(report capture.ErrorReport, env map[string]string, st store.Store) (*Session, error) {
	snap, dropped := capture.NewEnvSnapshot(env)
	inner := session.New(report, snap)

	if err := inner.Advance(session.PhaseRigorous, "E2", "agent-driven investigation"); err != nil {
		return nil, err
	}
	if err := inner.Advance(session.PhaseHypothesisTesting, "E3", "testing seeded hypotheses"); err != nil {
		return nil, err
	}

	s := &Session{
		ID:    inner.ID,
		sess:  inner,
		store: st,
		log:   logging.New("mcp-session"),
	}
	if len(dropped) > 0 {
		s.log.Info("environment keys dropped at capture", "count", len(dropped))
	}
	s.persist()
	return s, nil
}

// SetTTL arms (or re-arms) the inactivity watchdog. An expired session is
// closed as blocked so its partial report is still recallable.
func (s *Session) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = ttl
	s.rearmLocked()
}

func (s *Session) rearmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.ttl <= 0 {
		return
	}
	s.timer = time.AfterFunc(s.ttl, s.expire)
}

func (s *Session) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess.Terminal != "" {
		return
	}
	s.log.Warn("session expired from inactivity", "id", s.ID, "ttl", s.ttl)
	if err := s.sess.Close(session.StatusBlocked, "TTL",
		fmt.Sprintf("no agent activity for %s", s.ttl)); err != nil {
		s.log.Error("close expired session", "error", err)
		return
	}
	s.persist()
}

// touchLocked resets the watchdog; callers hold mu.
func (s *Session) touchLocked() {
	s.rearmLocked()
}

// Cancel stops the watchdog. The session state is left as-is.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Snapshot returns the current report record.
func (s *Session) Snapshot() *session.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session.BuildReport(s.sess)
}

// Terminal returns the terminal status, or "" while the session is open.
func (s *Session) Terminal() session.TerminalStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.Terminal
}

// NextHypothesis returns the hypothesis the agent should work now. done is
// true when nothing remains: either a hypothesis was confirmed (apply the
// fix and report the outcome) or the set is exhausted, which closes the
// session as blocked.
func (s *Session) NextHypothesis() (h *hypothesis.Hypothesis, done bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.sess.Terminal != "" {
		return nil, true, nil
	}
	if conf := s.sess.Tracker.Confirmed(); conf != nil {
		return conf, false, nil
	}

	h = s.sess.Tracker.Next()
	if h == nil {
		if err := s.sess.Close(session.StatusBlocked, "H-EXH",
			"all hypotheses rejected; external input needed"); err != nil {
			return nil, false, err
		}
		s.persist()
		return nil, true, nil
	}
	return h, false, nil
}

// EvidenceInput is one agent-reported piece of evidence; the tier is
// derived from the source kind, never trusted from the caller.
type EvidenceInput struct {
	SourceKind string `json:"source_kind"`
	Polarity   string `json:"polarity"`
	Content    string `json:"content"`
}

// SubmitTestResult records an executed test with its evidence and returns
// the hypothesis's resulting status.
func (s *Session) SubmitTestResult(hypID, procedure, expected, actual string, evs []EvidenceInput) (*hypothesis.Hypothesis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	tst := hypothesis.Test{
		HypothesisID: hypID,
		Procedure:    procedure,
		Expected:     expected,
		Actual:       actual,
	}
	for _, ev := range evs {
		tst.Derived = append(tst.Derived, evidence.Evidence{
			SourceKind: evidence.SourceKind(ev.SourceKind),
			Polarity:   evidence.Polarity(ev.Polarity),
			Content:    ev.Content,
		})
	}

	if err := s.sess.AppendTest(tst); err != nil {
		return nil, err
	}
	h, err := s.sess.Tracker.RecordTestResult(hypID, &tst)
	if err != nil {
		return nil, err
	}
	s.persist()
	return h, nil
}

// SubmitFixOutcome records the fix applied for the confirmed hypothesis and
// the verification outcome. pass and partial close the session; fail demotes
// the hypothesis and resumes testing.
func (s *Session) SubmitFixOutcome(hypID, fixRef, outcome, detail string) (session.TerminalStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	h := s.sess.Tracker.Get(hypID)
	if h == nil {
		return "", fmt.Errorf("unknown hypothesis %q", hypID)
	}
	if h.Status != hypothesis.StatusConfirmed {
		return "", fmt.Errorf("hypothesis %s is %s, not confirmed", hypID, h.Status)
	}

	if err := s.sess.Advance(session.PhaseFixApplied, "F1",
		fmt.Sprintf("fix for %s applied by agent", hypID)); err != nil {
		return "", err
	}
	if err := s.sess.SetFixRef(fixRef); err != nil {
		return "", err
	}
	if err := s.sess.Advance(session.PhaseVerified, "V0", "agent re-ran the failing condition"); err != nil {
		return "", err
	}

	switch outcome {
	case "pass":
		if err := s.sess.Close(session.StatusResolved, "V1",
			fmt.Sprintf("verification passed: %s", detail)); err != nil {
			return "", err
		}
	case "partial":
		if err := s.sess.Close(session.StatusWorkaroundApplied, "V2",
			fmt.Sprintf("partial success with residual risk: %s", detail)); err != nil {
			return "", err
		}
	case "fail":
		if err := s.sess.Tracker.Demote(hypID, evidence.Evidence{
			SourceKind: evidence.SourceDirectExecution,
			Content:    fmt.Sprintf("fix applied but verification failed: %s", detail),
			Polarity:   evidence.Contradicts,
		}); err != nil {
			return "", err
		}
		if err := s.sess.Advance(session.PhaseHypothesisTesting, "V3",
			"verification failed; resuming hypothesis testing"); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unknown verification outcome %q (want pass, partial, or fail)", outcome)
	}

	s.persist()
	return s.sess.Terminal, nil
}

// persist saves the current report; callers hold mu. Storage failure is
// logged, not surfaced: the in-memory session stays authoritative.
func (s *Session) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.SaveReport(session.BuildReport(s.sess)); err != nil {
		s.log.Error("persist session report", "id", s.ID, "error", err)
	}
}
