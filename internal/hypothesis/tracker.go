package hypothesis

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"sleuth/internal/evidence"
	"sleuth/internal/logging"
	"sleuth/internal/template"
)

// ErrUnknownHypothesis is returned when a test result targets an id the
// tracker has never seen.
var ErrUnknownHypothesis = errors.New("unknown hypothesis")

// ErrTerminalHypothesis is returned when a test result targets a hypothesis
// that already reached confirmed or rejected.
var ErrTerminalHypothesis = errors.New("hypothesis already terminal")

// Tracker owns the ordered hypothesis set for one session. All mutation goes
// through the tracker; callers hold *Hypothesis only for reading.
type Tracker struct {
	log  *slog.Logger
	hyps []*Hypothesis
	byID map[string]*Hypothesis
	next int // creation index counter
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		log:  logging.New("hypothesis"),
		byID: make(map[string]*Hypothesis),
	}
}

// Seed creates hypotheses from the extracted templates and the category
// checklist: keyword items that match any template text, plus the checklist's
// always-on safety-net items. Returns the seeded set in creation order.
func (t *Tracker) Seed(templates []template.Template, cl *Checklist) []*Hypothesis {
	var texts []string
	for _, tmpl := range templates {
		texts = append(texts, tmpl.Text)
	}
	joined := strings.Join(texts, "\n")

	var seeded []*Hypothesis
	for _, item := range cl.Items {
		if !item.Always && !item.Matches(joined) {
			continue
		}
		if _, dup := t.byID[item.ID]; dup {
			continue
		}
		h := t.add(item.ID, item.Description, item.Category, item.Likelihood)
		seeded = append(seeded, h)
	}
	t.log.Info("seeded hypotheses", "count", len(seeded), "templates", len(templates))
	return seeded
}

// Add registers a caller-supplied hypothesis (e.g. from a research finding
// that suggests a cause no checklist item covers).
func (t *Tracker) Add(id, description string, cat Category, lik Likelihood) (*Hypothesis, error) {
	if id == "" {
		return nil, errors.New("hypothesis id required")
	}
	if _, dup := t.byID[id]; dup {
		return nil, fmt.Errorf("hypothesis %q already tracked", id)
	}
	return t.add(id, description, cat, lik), nil
}

func (t *Tracker) add(id, description string, cat Category, lik Likelihood) *Hypothesis {
	h := &Hypothesis{
		ID:            id,
		Description:   description,
		Category:      cat,
		Likelihood:    lik,
		Status:        StatusPending,
		CreationIndex: t.next,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	t.next++
	t.hyps = append(t.hyps, h)
	t.byID[id] = h
	return h
}

// Next returns the hypothesis to test now. If one is already testing it is
// returned again (idempotent re-entry; testing is serialized). Otherwise the
// best pending hypothesis is promoted to testing: category priority first,
// then likelihood, then creation order. Returns nil on exhaustion.
func (t *Tracker) Next() *Hypothesis {
	for _, h := range t.hyps {
		if h.Status == StatusTesting {
			return h
		}
	}

	var pending []*Hypothesis
	for _, h := range t.hyps {
		if h.Status == StatusPending {
			pending = append(pending, h)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.SliceStable(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a.Category.Priority() != b.Category.Priority() {
			return a.Category.Priority() < b.Category.Priority()
		}
		if a.Likelihood.Rank() != b.Likelihood.Rank() {
			return a.Likelihood.Rank() < b.Likelihood.Rank()
		}
		return a.CreationIndex < b.CreationIndex
	})

	h := pending[0]
	h.Status = StatusTesting
	t.log.Info("hypothesis under test", "id", h.ID, "category", string(h.Category), "likelihood", string(h.Likelihood))
	return h
}

// RecordTestResult appends the test's derived evidence to the targeted
// hypothesis and applies the tier conflict rule. The status transition
// follows the verdict: confirmed or rejected on a strict tier win, held at
// testing with the discriminator flag on an equal-tier standoff.
func (t *Tracker) RecordTestResult(hypID string, tst *Test) (*Hypothesis, error) {
	h, ok := t.byID[hypID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHypothesis, hypID)
	}
	if h.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrTerminalHypothesis, hypID, h.Status)
	}
	if h.Status == StatusPending {
		// A result can arrive for a hypothesis the caller chose directly;
		// it still passes through testing before any terminal status.
		h.Status = StatusTesting
	}

	for _, ev := range tst.Derived {
		ev.Tier = evidence.Classify(ev.SourceKind)
		if ev.RecordedAt == "" {
			ev.RecordedAt = time.Now().UTC().Format(time.RFC3339)
		}
		switch ev.Polarity {
		case evidence.Contradicts:
			h.Contradicting = append(h.Contradicting, ev)
		case evidence.Inconclusive:
			// Retained in the test record only; a no-result lookup must
			// not tilt the verdict either way.
		default:
			h.Supporting = append(h.Supporting, ev)
		}
	}

	verdict := evidence.Resolve(h.Evidence())
	switch verdict {
	case evidence.VerdictConfirmed:
		h.Status = StatusConfirmed
		h.NeedsDiscriminator = false
	case evidence.VerdictRejected:
		h.Status = StatusRejected
		h.NeedsDiscriminator = false
	case evidence.VerdictConflict:
		h.Status = StatusTesting
		h.NeedsDiscriminator = true
	default:
		// Open: evidence did not decide either way; keep testing.
	}

	t.log.Info("test result recorded",
		"hypothesis", h.ID, "verdict", string(verdict), "status", string(h.Status))
	return h, nil
}

// Demote moves a confirmed hypothesis back to rejected after its fix failed
// re-verification, recording the explanatory evidence. The hypothesis is
// retained for audit like any other rejection.
func (t *Tracker) Demote(hypID string, ev evidence.Evidence) error {
	h, ok := t.byID[hypID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHypothesis, hypID)
	}
	if h.Status != StatusConfirmed {
		return fmt.Errorf("hypothesis %s is %s, not confirmed", hypID, h.Status)
	}
	ev.Tier = evidence.Classify(ev.SourceKind)
	if ev.Polarity == "" {
		ev.Polarity = evidence.Contradicts
	}
	if ev.RecordedAt == "" {
		ev.RecordedAt = time.Now().UTC().Format(time.RFC3339)
	}
	h.Contradicting = append(h.Contradicting, ev)
	h.Status = StatusRejected
	t.log.Warn("hypothesis demoted after failed verification", "id", h.ID)
	return nil
}

// Get returns the hypothesis by id, or nil.
func (t *Tracker) Get(hypID string) *Hypothesis {
	return t.byID[hypID]
}

// All returns the hypotheses in creation order.
func (t *Tracker) All() []*Hypothesis {
	return t.hyps
}

// Confirmed returns the confirmed hypothesis, or nil.
func (t *Tracker) Confirmed() *Hypothesis {
	for _, h := range t.hyps {
		if h.Status == StatusConfirmed {
			return h
		}
	}
	return nil
}

// Exhausted reports whether every tracked hypothesis ended rejected.
func (t *Tracker) Exhausted() bool {
	if len(t.hyps) == 0 {
		return false
	}
	for _, h := range t.hyps {
		if h.Status != StatusRejected {
			return false
		}
	}
	return true
}
