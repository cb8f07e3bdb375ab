package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sleuth/internal/capture"
	"sleuth/internal/hypothesis"
	"sleuth/internal/template"
)

// ErrTerminal is returned by any mutation attempted after the session's
// terminal status has been set.
var ErrTerminal = errors.New("session is terminal")

// ErrTerminalAlreadySet guards the set-exactly-once terminal contract.
var ErrTerminalAlreadySet = errors.New("terminal status already set")

// ErrIllegalTransition is returned by Advance for a move the escalation
// state machine does not define.
var ErrIllegalTransition = errors.New("illegal phase transition")

// legalTransitions enumerates the non-terminal moves of the escalation
// state machine. Terminal phases are entered only via Close.
var legalTransitions = map[Phase][]Phase{
	PhaseNew:               {PhaseQuickFixAttempt, PhaseRigorous},
	PhaseQuickFixAttempt:   {PhaseReverted},
	PhaseReverted:          {PhaseRigorous},
	PhaseRigorous:          {PhaseHypothesisTesting},
	PhaseHypothesisTesting: {PhaseFixApplied},
	PhaseFixApplied:        {PhaseVerified},
	PhaseVerified:          {PhaseHypothesisTesting},
}

// Session is one end-to-end investigation, from error capture to terminal
// resolution. The ErrorReport is immutable; everything else is mutated only
// through the session's methods, by a single writer.
type Session struct {
	ID     string              `json:"id"`
	Report capture.ErrorReport `json:"report"`

	// Env is the sanitized environment snapshot, flattened for
	// serialization. Secrets were dropped at capture time.
	Env map[string]string `json:"env,omitempty"`

	Templates []template.Template `json:"templates"`

	Tracker *hypothesis.Tracker `json:"-"`
	Tests   []hypothesis.Test   `json:"tests"`

	Phase    Phase         `json:"phase"`
	Timeline []PhaseRecord `json:"timeline"`

	Terminal       TerminalStatus `json:"terminal,omitempty"`
	TerminalReason string         `json:"terminal_reason,omitempty"`

	// FixRef references the fix description supplied by the external
	// fix-implementer for the confirmed hypothesis.
	FixRef string `json:"fix_ref,omitempty"`

	CreatedAt string `json:"created_at"`
	ClosedAt  string `json:"closed_at,omitempty"`
}

// New captures a session: extracts templates from the report, seeds the
// hypothesis tracker from the default checklist, and starts at NEW.
func New(report capture.ErrorReport, env *capture.EnvSnapshot) *Session {
	if report.CapturedAt == "" {
		report.CapturedAt = nowUTC()
	}
	s := &Session{
		ID:        uuid.NewString(),
		Report:    report,
		Templates: template.ExtractTemplates(report.RawText),
		Tracker:   hypothesis.NewTracker(),
		Phase:     PhaseNew,
		CreatedAt: nowUTC(),
	}
	if env != nil {
		s.Env = make(map[string]string, env.Len())
		for _, k := range env.Keys() {
			v, _ := env.Get(k)
			s.Env[k] = v
		}
	}
	s.Tracker.Seed(s.Templates, hypothesis.DefaultChecklist())
	return s
}

// Advance moves the session to the next phase, recording the transition.
// Only moves in the legal-transition table are accepted; terminal phases
// must be entered via Close, not Advance.
func (s *Session) Advance(to Phase, ruleID, explanation string) error {
	if s.Terminal != "" {
		return fmt.Errorf("%w: cannot advance to %s", ErrTerminal, to)
	}
	if to.IsTerminal() {
		return fmt.Errorf("phase %s is terminal; use Close", to)
	}
	legal := false
	for _, next := range legalTransitions[s.Phase] {
		if next == to {
			legal = true
			break
		}
	}
	if !legal {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.Phase, to)
	}
	s.record(to, ruleID, explanation)
	return nil
}

// Close sets the terminal status exactly once and seals the session: no
// hypothesis or test mutation is possible afterwards.
func (s *Session) Close(status TerminalStatus, ruleID, reason string) error {
	if s.Terminal != "" {
		return fmt.Errorf("%w: %s", ErrTerminalAlreadySet, s.Terminal)
	}
	var phase Phase
	switch status {
	case StatusResolved:
		phase = PhaseResolved
	case StatusBlocked:
		phase = PhaseBlocked
	case StatusWorkaroundApplied:
		phase = PhaseWorkaroundApplied
	default:
		return fmt.Errorf("unknown terminal status %q", status)
	}
	s.record(phase, ruleID, reason)
	s.Terminal = status
	s.TerminalReason = reason
	s.ClosedAt = nowUTC()
	return nil
}

// AppendTest adds a test to the session log.
func (s *Session) AppendTest(tst hypothesis.Test) error {
	if s.Terminal != "" {
		return fmt.Errorf("%w: cannot append test", ErrTerminal)
	}
	if tst.RanAt == "" {
		tst.RanAt = nowUTC()
	}
	s.Tests = append(s.Tests, tst)
	return nil
}

// SetFixRef records the external fix-implementer's fix description reference.
func (s *Session) SetFixRef(ref string) error {
	if s.Terminal != "" {
		return fmt.Errorf("%w: cannot set fix ref", ErrTerminal)
	}
	s.FixRef = ref
	return nil
}

func (s *Session) record(to Phase, ruleID, explanation string) {
	s.Timeline = append(s.Timeline, PhaseRecord{
		From:        s.Phase,
		To:          to,
		RuleID:      ruleID,
		Explanation: explanation,
		At:          nowUTC(),
	})
	s.Phase = to
}

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
