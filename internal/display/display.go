// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, markdown reports, logs, and docs.
// Keep raw codes for JSON fields, map keys, and equality comparisons.
package display

import (
	"strconv"
	"strings"
)

// --- Phases ---

var phases = map[string]string{
	"NEW":                    "New",
	"QUICK_FIX_ATTEMPT":      "Quick Fix Attempt",
	"REVERTED":               "Reverted",
	"RIGOROUS_INVESTIGATION": "Rigorous Investigation",
	"HYPOTHESIS_TESTING":     "Hypothesis Testing",
	"FIX_APPLIED":            "Fix Applied",
	"VERIFIED":               "Verified",
	"RESOLVED":               "Resolved",
	"BLOCKED":                "Blocked",
	"WORKAROUND_APPLIED":     "Workaround Applied",
}

// Phase returns the human-readable name for a session phase code.
// "QUICK_FIX_ATTEMPT" -> "Quick Fix Attempt".
func Phase(code string) string {
	if name, ok := phases[code]; ok {
		return name
	}
	return code
}

// PhasePath converts a slice of phase codes to a human-readable path.
// ["NEW", "RESOLVED"] -> "New -> Resolved"
func PhasePath(codes []string) string {
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = Phase(c)
	}
	return strings.Join(names, " → ")
}

// --- Terminal Statuses ---

var statuses = map[string]string{
	"resolved":           "Resolved",
	"blocked":            "Blocked",
	"workaround-applied": "Workaround Applied",
}

// Status returns the human-readable name for a terminal status.
// Unknown codes are returned as-is; "" reads as still open.
func Status(code string) string {
	if code == "" {
		return "Open"
	}
	if name, ok := statuses[code]; ok {
		return name
	}
	return code
}

// --- Evidence Tiers ---

var tiers = map[int]string{
	1: "Direct Execution",
	2: "Official Documentation",
	3: "Working Example",
	4: "Issue Report",
	5: "Speculation",
}

// Tier returns the human-readable name for an evidence tier.
// 1 -> "Direct Execution".
func Tier(n int) string {
	if name, ok := tiers[n]; ok {
		return name
	}
	return strconv.Itoa(n)
}

// TierWithCode returns "Direct Execution (tier 1)" format.
func TierWithCode(n int) string {
	if _, ok := tiers[n]; !ok {
		return strconv.Itoa(n)
	}
	return Tier(n) + " (tier " + strconv.Itoa(n) + ")"
}

// --- Hypothesis Categories ---

var categories = map[string]string{
	"configuration": "Configuration",
	"environment":   "Environment",
	"data-format":   "Data Format",
	"complex":       "Complex Interaction",
}

// Category returns the human-readable name for a hypothesis category.
func Category(code string) string {
	if name, ok := categories[code]; ok {
		return name
	}
	return code
}

// --- Hypothesis Statuses ---

var hypothesisStatuses = map[string]string{
	"pending":   "Pending",
	"testing":   "Under Test",
	"confirmed": "Confirmed",
	"rejected":  "Rejected",
}

// HypothesisStatus returns the human-readable name for a hypothesis status.
func HypothesisStatus(code string) string {
	if name, ok := hypothesisStatuses[code]; ok {
		return name
	}
	return code
}

// --- Transition Rules ---

var rules = map[string]string{
	"E1":       "Quick Fix Gate",
	"E2":       "Escalate Unclear Error",
	"E3":       "Begin Hypothesis Testing",
	"Q1":       "Quick Fix Resolved",
	"Q2":       "Quick Fix Reverted",
	"Q3":       "Quick Fix Exhausted",
	"F1":       "Fix Handoff",
	"V0":       "Verification Started",
	"V1":       "Verification Passed",
	"V2":       "Partial Verification",
	"V3":       "Verification Failed",
	"V-EXH":    "Verification Budget Exhausted",
	"H-EXH":    "Hypotheses Exhausted",
	"H-BUDGET": "Test Budget Exhausted",
}

// Rule returns the human-readable name for a transition rule ID.
// "Q2" -> "Quick Fix Reverted".
func Rule(id string) string {
	if name, ok := rules[id]; ok {
		return name
	}
	return id
}

// RuleWithCode returns "Quick Fix Reverted (Q2)" format.
func RuleWithCode(id string) string {
	if name, ok := rules[id]; ok {
		return name + " (" + id + ")"
	}
	return id
}
