package capture

import (
	"regexp"
	"sort"
	"strings"
)

// EnvSnapshot is a flat key→value view of the failing environment, already
// stripped of secrets by the external collector. NewEnvSnapshot enforces that
// contract a second time: credential-shaped entries are dropped at
// construction so they can never reach the session store or a report.
type EnvSnapshot struct {
	values map[string]string
}

// Key names that indicate a credential regardless of value shape.
var secretKeyPattern = regexp.MustCompile(`(?i)(password|passwd|secret|token|api[-_]?key|private[-_]?key|credential|auth)`)

// Value shapes that look like credentials: bearer tokens, AWS access keys,
// PEM blocks, long unbroken base64-ish blobs.
var secretValuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^bearer\s+\S+`),
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
	regexp.MustCompile(`^[A-Za-z0-9+/_-]{40,}={0,2}$`),
}

// NewEnvSnapshot builds a snapshot from the collector's map, dropping any
// entry whose key or value looks credential-shaped. Returns the snapshot and
// the sorted list of dropped keys (for the caller's audit log; the values are
// not reported).
func NewEnvSnapshot(raw map[string]string) (*EnvSnapshot, []string) {
	snap := &EnvSnapshot{values: make(map[string]string, len(raw))}
	var dropped []string
	for k, v := range raw {
		if looksSecret(k, v) {
			dropped = append(dropped, k)
			continue
		}
		snap.values[k] = v
	}
	sort.Strings(dropped)
	return snap, dropped
}

func looksSecret(key, value string) bool {
	if secretKeyPattern.MatchString(key) {
		return true
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}
	for _, p := range secretValuePatterns {
		if p.MatchString(v) {
			return true
		}
	}
	return false
}

// Get returns the value for key and whether it was present.
func (s *EnvSnapshot) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the snapshot's keys in sorted order.
func (s *EnvSnapshot) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of retained entries.
func (s *EnvSnapshot) Len() int { return len(s.values) }
