// Package template normalizes raw error text into generic, searchable
// templates. A template keeps the fixed structural tokens of an error message
// and strips instance-specific values (paths, ids, timestamps), so two
// occurrences of the same underlying error class produce the same template
// string and the same fingerprint.
package template

// SpanKind tags a removed variable span with the pattern that matched it.
type SpanKind string

const (
	KindPath      SpanKind = "path"
	KindURL       SpanKind = "url"
	KindQuoted    SpanKind = "quoted"
	KindBracketed SpanKind = "bracketed"
	KindEmail     SpanKind = "email"
	KindIPPort    SpanKind = "ipport"
	KindUUID      SpanKind = "uuid"
	KindHexID     SpanKind = "hexid"
	KindTimestamp SpanKind = "timestamp"
	KindNumber    SpanKind = "number"
)

// Span is one variable region removed from the error text. Offsets index into
// the segment the span was extracted from (see Template.SegmentStart for the
// segment's position in the original text).
type Span struct {
	Kind  SpanKind `json:"kind"`
	Text  string   `json:"text"`
	Start int      `json:"start"`
	End   int      `json:"end"`
}

// Template is the variable-stripped form of one error segment. One raw error
// may yield several templates: the outermost error first, then each nested
// caused-by segment in order.
type Template struct {
	// Text is the fixed tokens of the segment joined by single spaces.
	Text string `json:"text"`
	// Removed lists the variable spans elided from the segment, in order.
	Removed []Span `json:"removed,omitempty"`
	// SegmentStart is the byte offset of this segment in the original text.
	SegmentStart int `json:"segment_start"`
	// Fingerprint is a deterministic hash of Text, used for cross-session
	// recall of prior investigations of the same error class.
	Fingerprint string `json:"fingerprint"`
	// Ambiguous is set when extraction could not recover any structure
	// (empty input, or every token classified variable even after the
	// widened retry). The caller should fall back to manual input.
	Ambiguous bool `json:"ambiguous,omitempty"`
}
