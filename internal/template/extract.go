package template

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// maxCauseDepth bounds the caused-by recursion. Deeper chains are folded into
// the last segment rather than split further.
const maxCauseDepth = 4

var errClassPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*(Error|Exception|Warning|Fault|Failure|Panic):?$`)

// ExtractTemplates normalizes raw error text into one template per error
// segment: the outermost error first, then each nested caused-by segment.
//
// Classification is layered: known structural markers stay FIXED, tokens
// matching variable-data patterns are removed as VARIABLE, and everything
// else defaults to FIXED so message structure is preserved. The result is
// deterministic, generalizes across instances of the same error class, and
// is idempotent on its own output.
func ExtractTemplates(errorText string) []Template {
	if strings.TrimSpace(errorText) == "" {
		return []Template{{Fingerprint: Fingerprint(""), Ambiguous: true}}
	}

	segments := splitCauses(errorText)
	out := make([]Template, 0, len(segments))
	for _, seg := range segments {
		out = append(out, extractSegment(seg))
	}
	return out
}

type segment struct {
	text  string
	start int
}

// splitCauses splits the error text into the outermost error and nested
// caused-by segments, up to maxCauseDepth markers.
func splitCauses(text string) []segment {
	var segs []segment
	rest := segment{text: text, start: 0}
	for depth := 0; depth < maxCauseDepth; depth++ {
		idx, markerLen := findCauseMarker(rest.text)
		if idx < 0 {
			break
		}
		segs = append(segs, segment{text: rest.text[:idx], start: rest.start})
		after := idx + markerLen
		rest = segment{text: rest.text[after:], start: rest.start + after}
	}
	segs = append(segs, rest)

	// Drop whitespace-only segments produced by a marker at the text edge.
	kept := segs[:0]
	for _, s := range segs {
		if strings.TrimSpace(s.text) != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return []segment{{text: text, start: 0}}
	}
	return kept
}

// findCauseMarker returns the earliest cause-marker occurrence in text
// (case-insensitive), or -1. The fold lowers ASCII letters only: it is
// byte-length preserving, so indexes into the folded text are valid offsets
// into the original. strings.ToLower is not (e.g. U+0130 lowers to a longer
// sequence) and would shift the split points.
func findCauseMarker(text string) (idx, markerLen int) {
	lower := asciiLower(text)
	idx = -1
	for _, m := range defaultRules.causeMarkers {
		if i := strings.Index(lower, m); i >= 0 && (idx < 0 || i < idx) {
			idx, markerLen = i, len(m)
		}
	}
	return idx, markerLen
}

// asciiLower lowers A-Z in place and leaves every other rune untouched.
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

type token struct {
	text  string
	start int
}

func tokenize(text string) []token {
	var toks []token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				toks = append(toks, token{text: text[start:i], start: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		toks = append(toks, token{text: text[start:], start: start})
	}
	return toks
}

func extractSegment(seg segment) Template {
	toks := tokenize(seg.text)
	tmpl := classifyTokens(toks, false)
	if tmpl.Text == "" && len(toks) > 0 {
		// Widened retry: keep one extra token of surrounding text as FIXED.
		// An all-variable message such as a bare code has no structure to
		// anchor on, so the result stays flagged ambiguous either way.
		tmpl = classifyTokens(toks, true)
		tmpl.Ambiguous = true
	}
	if tmpl.Text == "" {
		tmpl.Ambiguous = true
	}
	tmpl.SegmentStart = seg.start
	tmpl.Fingerprint = Fingerprint(tmpl.Text)
	return tmpl
}

// classifyTokens runs the layered FIXED/VARIABLE rules over the tokens.
// With keepFirst set, the first token is forced FIXED (the widened retry).
func classifyTokens(toks []token, keepFirst bool) Template {
	var fixed []string
	var removed []Span
	for i, tok := range toks {
		if keepFirst && i == 0 {
			fixed = append(fixed, tok.text)
			continue
		}
		emit, kind, isFixed := classifyToken(tok.text)
		if isFixed {
			fixed = append(fixed, emit)
			continue
		}
		removed = append(removed, Span{
			Kind:  kind,
			Text:  tok.text,
			Start: tok.start,
			End:   tok.start + len(tok.text),
		})
	}
	return Template{Text: strings.Join(fixed, " "), Removed: removed}
}

// classifyToken decides FIXED vs VARIABLE for one whitespace-delimited token.
// Returns the text to emit when FIXED, or the span kind when VARIABLE.
func classifyToken(raw string) (emit string, kind SpanKind, isFixed bool) {
	// Layer 1: structural markers stay FIXED.
	if errClassPattern.MatchString(raw) {
		return strings.TrimSuffix(raw, ":"), "", true
	}
	trimmed := trimPunct(raw)
	core := strings.TrimSuffix(strings.TrimSuffix(trimmed, ":"), "()")
	if defaultRules.apiFunctions[core] {
		return raw, "", true
	}
	if defaultRules.statusCodes[trimmed] {
		return raw, "", true
	}

	// Layer 2: variable-data shapes are removed.
	if isQuoted(raw) || isQuoted(trimmed) {
		return "", KindQuoted, false
	}
	if isBracketed(raw) {
		return "", KindBracketed, false
	}
	probe := trimmed
	if probe == "" {
		probe = raw
	}
	for _, p := range defaultRules.variable {
		if p.re.MatchString(probe) {
			return "", p.kind, false
		}
	}

	// Layer 3: default FIXED, preserving message structure.
	return raw, "", true
}

// trimPunct strips surrounding punctuation so a token like "(/tmp/x.log)," is
// matched on its core.
func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		switch r {
		case '(', ')', '[', ']', '{', '}', '<', '>', ',', ';', '.', '!', '?', ':':
			return true
		}
		return false
	})
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return (first == '\'' && last == '\'') ||
		(first == '"' && last == '"') ||
		(first == '`' && last == '`')
}

func isBracketed(s string) bool {
	if len(s) < 2 {
		return false
	}
	pairs := map[byte]byte{'(': ')', '[': ']', '{': '}', '<': '>'}
	closer, ok := pairs[s[0]]
	return ok && s[len(s)-1] == closer
}

// Fingerprint generates a deterministic FNV-1a fingerprint of a template
// string, used for cross-session recall of the same error class.
func Fingerprint(templateText string) string {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(templateText); i++ {
		h ^= uint64(templateText[i])
		h *= 1099511628211
	}
	return fmt.Sprintf("%016x", h)
}
