// Package evidence defines the trust-tiered evidence model and the
// deterministic conflict resolution rule used by the hypothesis tracker.
package evidence

// SourceKind declares where a piece of evidence came from. The kind alone
// determines the trust tier; content is never inspected.
type SourceKind string

const (
	// SourceDirectExecution is a first-hand observation from running a
	// command or test in the failing environment.
	SourceDirectExecution SourceKind = "direct-execution"
	// SourceOfficialDoc is official documentation matching the exact
	// version in use.
	SourceOfficialDoc SourceKind = "official-doc"
	// SourceWorkingExample is a verified working example of the behavior.
	SourceWorkingExample SourceKind = "working-example"
	// SourceIssueReport is a problem report or open issue describing the
	// same symptom.
	SourceIssueReport SourceKind = "issue-report"
	// SourceSpeculation is inference without external confirmation. Also
	// the degraded kind for research lookups that timed out.
	SourceSpeculation SourceKind = "speculation"
)

// Tier is the 1-5 trust ranking of evidence. Lower is stronger: 1 is a direct
// observation, 5 is speculation. The ordering is total.
type Tier int

const (
	TierDirectExecution Tier = 1
	TierOfficialDoc     Tier = 2
	TierWorkingExample  Tier = 3
	TierIssueReport     Tier = 4
	TierSpeculation     Tier = 5
)

// Polarity states whether evidence supports or contradicts a hypothesis.
// Inconclusive entries record that a lookup produced nothing (e.g. it timed
// out); they are kept for audit but carry no decision weight, so a batch of
// only inconclusive entries can never confirm or reject.
type Polarity string

const (
	Supports     Polarity = "supports"
	Contradicts  Polarity = "contradicts"
	Inconclusive Polarity = "inconclusive"
)

// Evidence is one piece of supporting or contradicting information for a
// specific hypothesis.
type Evidence struct {
	SourceKind SourceKind `json:"source_kind"`
	Tier       Tier       `json:"tier"`
	Content    string     `json:"content"`
	Polarity   Polarity   `json:"polarity"`
	RecordedAt string     `json:"recorded_at"` // ISO 8601
}
