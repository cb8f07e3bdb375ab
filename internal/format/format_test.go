package format_test

import (
	"strings"
	"testing"
	"time"

	"sleuth/internal/format"
	"sleuth/internal/session"
)

func TestASCII_BasicTable(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("ID", "Category", "Status")
	tb.Row("missing-dependency", "Configuration", "Confirmed")
	tb.Row("stale-environment", "Environment", "Rejected")
	out := tb.String()

	if !strings.Contains(out, "ID") {
		t.Errorf("expected header 'ID' in output:\n%s", out)
	}
	if !strings.Contains(out, "missing-dependency") {
		t.Errorf("expected 'missing-dependency' in output:\n%s", out)
	}
	// ASCII uses box-drawing characters from StyleLight
	if !strings.Contains(out, "───") {
		t.Errorf("expected box-drawing characters in ASCII output:\n%s", out)
	}
}

func TestMarkdown_BasicTable(t *testing.T) {
	tb := format.NewTable(format.Markdown)
	tb.Header("Phase", "Rule")
	tb.Row("Quick Fix Attempt", "E1")
	tb.Row("Reverted", "Q2")
	out := tb.String()

	if !strings.Contains(out, "| Phase") {
		t.Errorf("expected markdown header with '| Phase':\n%s", out)
	}
	if !strings.Contains(out, "---") {
		t.Errorf("expected markdown separator '---':\n%s", out)
	}
	if !strings.Contains(out, "Quick Fix Attempt") {
		t.Errorf("expected 'Quick Fix Attempt' in output:\n%s", out)
	}
}

func TestFooterAndColumnCap(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("Session", "Error")
	tb.Row("abc-123", strings.Repeat("connection refused ", 10))
	tb.Footer("", "1 total")
	tb.Columns(format.ColumnConfig{Number: 2, MaxWidth: 20})
	out := tb.String()

	if !strings.Contains(out, "1 total") {
		t.Errorf("expected footer in output:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if len([]rune(line)) > 40 {
			t.Errorf("column cap not applied, line %d runes wide:\n%s", len([]rune(line)), line)
		}
	}
}

func TestSameData_DualFormat(t *testing.T) {
	build := func(m format.Mode) string {
		tb := format.NewTable(m)
		tb.Header("A", "B")
		tb.Row("x", "y")
		return tb.String()
	}

	ascii := build(format.ASCII)
	md := build(format.Markdown)

	if ascii == md {
		t.Error("ASCII and Markdown output should differ")
	}
	for _, out := range []string{ascii, md} {
		if !strings.Contains(out, "x") || !strings.Contains(out, "y") {
			t.Errorf("expected data in output:\n%s", out)
		}
	}
}

func TestRenderHypotheses(t *testing.T) {
	recs := []session.HypothesisRecord{
		{
			ID:         "missing-dependency",
			Category:   "configuration",
			Likelihood: "high",
			Status:     "confirmed",
			Supporting: []session.EvidenceRecord{
				{Tier: 4, Polarity: "supports"},
				{Tier: 1, Polarity: "supports"},
			},
		},
		{
			ID:         "stale-environment",
			Category:   "environment",
			Likelihood: "low",
			Status:     "rejected",
			Contradicting: []session.EvidenceRecord{
				{Tier: 2, Polarity: "contradicts"},
			},
		},
	}
	out := format.RenderHypotheses(format.ASCII, recs)

	for _, want := range []string{
		"missing-dependency",
		"Configuration",
		"Confirmed",
		"2 for (best Direct Execution (tier 1))",
		"1 against (best Official Documentation (tier 2))",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderTimeline(t *testing.T) {
	recs := []session.PhaseRecord{
		{From: "NEW", To: "QUICK_FIX_ATTEMPT", RuleID: "E1", Explanation: "self-explanatory error"},
		{From: "QUICK_FIX_ATTEMPT", To: "REVERTED", RuleID: "Q2", Explanation: "fix regression"},
	}
	out := format.RenderTimeline(format.Markdown, recs)

	for _, want := range []string{"Quick Fix Attempt", "Quick Fix Reverted (Q2)", "fix regression"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderReport(t *testing.T) {
	r := &session.Report{
		ID:             "abc-123",
		CreatedAt:      "2026-08-29T10:00:00Z",
		ClosedAt:       "2026-08-29T10:01:30Z",
		Terminal:       session.StatusResolved,
		TerminalReason: "verification passed",
		FixRef:         "fix:missing-dependency",
		Templates:      nil,
		Timeline: []session.PhaseRecord{
			{From: "VERIFIED", To: "RESOLVED", RuleID: "V1", Explanation: "verification passed"},
		},
	}
	out := format.RenderReport(format.ASCII, r)

	for _, want := range []string{
		"Session abc-123",
		"Status: Resolved",
		"Elapsed: 1m 30s",
		"fix:missing-dependency",
		"Path: Verified → Resolved",
		"Verification Passed (V1)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

// --- Helper tests ---

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{30 * time.Second, "30s"},
		{59 * time.Second, "59s"},
		{60 * time.Second, "1m 0s"},
		{90 * time.Second, "1m 30s"},
		{5*time.Minute + 15*time.Second, "5m 15s"},
	}
	for _, tc := range tests {
		got := format.FmtDuration(tc.in)
		if got != tc.want {
			t.Errorf("FmtDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFmtElapsed(t *testing.T) {
	got := format.FmtElapsed("2026-08-29T10:00:00Z", "2026-08-29T10:02:05Z")
	if got != "2m 5s" {
		t.Errorf("FmtElapsed = %q, want %q", got, "2m 5s")
	}
	if got := format.FmtElapsed("2026-08-29T10:00:00Z", ""); got != "" {
		t.Errorf("FmtElapsed with open end = %q, want empty", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 8, "hello..."},
		{"ab", 3, "ab"},
		{"abcdef", 3, "abc"},
	}
	for _, tc := range tests {
		got := format.Truncate(tc.in, tc.maxLen)
		if got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}
