package docfetch

import (
	"strings"
	"testing"

	"sleuth/internal/evidence"
)

func TestRelevantParagraph(t *testing.T) {
	body := "Navigation\nHome | Docs | Blog\n\n" +
		"ModuleNotFoundError is raised when an import cannot locate the named package. " +
		"Check that the package is installed in the active environment.\n\n" +
		"Unrelated footer text."

	got := relevantParagraph(body, "ModuleNotFoundError No module named")
	if got == "" {
		t.Fatal("no paragraph found")
	}
	if want := "active environment"; !strings.Contains(got, want) {
		t.Errorf("paragraph %q missing %q", got, want)
	}
}

func TestRelevantParagraph_NoMention(t *testing.T) {
	if got := relevantParagraph("totally unrelated page", "ModuleNotFoundError"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestPolarityFor(t *testing.T) {
	tests := []struct {
		name        string
		snippet     string
		description string
		want        evidence.Polarity
	}{
		{
			name:        "docs name the blamed cause",
			snippet:     "Raised when a required package is not installed in the environment.",
			description: "A required package, module, or binary is not installed",
			want:        evidence.Supports,
		},
		{
			name:        "docs describe only the symptom",
			snippet:     "This error is raised when an import fails.",
			description: "Cached state or a stale artifact differs from the declared setup",
			want:        evidence.Contradicts,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := polarityFor(tt.snippet, tt.description); got != tt.want {
				t.Errorf("polarityFor = %q, want %q", got, tt.want)
			}
		})
	}
}
