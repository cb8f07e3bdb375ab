package format

import (
	"fmt"
	"strings"

	"sleuth/internal/display"
	"sleuth/internal/session"
)

// RenderHypotheses renders the report's hypothesis set with its evidence
// balance, strongest tier first within each polarity.
func RenderHypotheses(m Mode, recs []session.HypothesisRecord) string {
	tb := NewTable(m)
	tb.Header("ID", "Category", "Likelihood", "Status", "Evidence")
	for _, h := range recs {
		tb.Row(h.ID,
			display.Category(string(h.Category)),
			string(h.Likelihood),
			display.HypothesisStatus(string(h.Status)),
			evidenceBalance(h))
	}
	tb.Columns(ColumnConfig{Number: 5, MaxWidth: 60})
	return tb.String()
}

// evidenceBalance summarizes a hypothesis's evidence as counts with the
// strongest tier on each side, e.g.
// "2 for (best Direct Execution (tier 1)) / 0 against".
func evidenceBalance(h session.HypothesisRecord) string {
	side := func(label string, evs []session.EvidenceRecord) string {
		if len(evs) == 0 {
			return "0 " + label
		}
		best := evs[0].Tier
		for _, ev := range evs[1:] {
			if ev.Tier < best {
				best = ev.Tier
			}
		}
		return fmt.Sprintf("%d %s (best %s)", len(evs), label, display.TierWithCode(best))
	}
	return side("for", h.Supporting) + " / " + side("against", h.Contradicting)
}

// RenderTimeline renders the phase transition log.
func RenderTimeline(m Mode, recs []session.PhaseRecord) string {
	tb := NewTable(m)
	tb.Header("From", "To", "Rule", "Explanation")
	for _, r := range recs {
		tb.Row(display.Phase(string(r.From)),
			display.Phase(string(r.To)),
			display.RuleWithCode(r.RuleID),
			r.Explanation)
	}
	tb.Columns(ColumnConfig{Number: 4, MaxWidth: 60})
	return tb.String()
}

// RenderReport renders the whole session report: header, templates,
// hypotheses, tests, and the phase timeline.
func RenderReport(m Mode, r *session.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session %s\n", r.ID)
	fmt.Fprintf(&b, "Status: %s", display.Status(string(r.Terminal)))
	if r.TerminalReason != "" {
		fmt.Fprintf(&b, " (%s)", r.TerminalReason)
	}
	b.WriteString("\n")
	if elapsed := FmtElapsed(r.CreatedAt, r.ClosedAt); elapsed != "" {
		fmt.Fprintf(&b, "Elapsed: %s\n", elapsed)
	}
	if r.FixRef != "" {
		fmt.Fprintf(&b, "Fix: %s\n", r.FixRef)
	}
	if len(r.Timeline) > 0 {
		codes := []string{string(r.Timeline[0].From)}
		for _, rec := range r.Timeline {
			codes = append(codes, string(rec.To))
		}
		fmt.Fprintf(&b, "Path: %s\n", display.PhasePath(codes))
	}
	b.WriteString("\n")

	b.WriteString("Error templates:\n")
	for _, tmpl := range r.Templates {
		fmt.Fprintf(&b, "  [%s] %s\n", tmpl.Fingerprint, tmpl.Text)
	}
	b.WriteString("\n")

	if len(r.Hypotheses) > 0 {
		b.WriteString("Hypotheses:\n")
		b.WriteString(RenderHypotheses(m, r.Hypotheses))
		b.WriteString("\n\n")
	}

	if len(r.Tests) > 0 {
		tb := NewTable(m)
		tb.Header("Hypothesis", "Procedure", "Actual")
		for _, tst := range r.Tests {
			tb.Row(tst.HypothesisID, Truncate(tst.Procedure, 50), Truncate(tst.Actual, 50))
		}
		b.WriteString("Tests:\n")
		b.WriteString(tb.String())
		b.WriteString("\n\n")
	}

	if len(r.Timeline) > 0 {
		b.WriteString("Timeline:\n")
		b.WriteString(RenderTimeline(m, r.Timeline))
		b.WriteString("\n")
	}

	return b.String()
}
