package template

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestExtractTemplates_Basic(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "python missing module",
			text: "ModuleNotFoundError: No module named 'pandas'",
			want: "ModuleNotFoundError No module named",
		},
		{
			name: "status code stays fixed, path removed",
			text: "server returned 404 for /api/users/123",
			want: "server returned 404 for",
		},
		{
			name: "url and durations removed",
			text: "connect failed: https://api.example.com/v2/items timeout after 30 seconds",
			want: "connect failed: timeout after seconds",
		},
		{
			name: "ip port removed",
			text: "dial tcp 10.0.0.5:8080 refused",
			want: "dial tcp refused",
		},
		{
			name: "uuid and hex id removed",
			text: "request 550e8400-e29b-41d4-a716-446655440000 failed with trace 0xdeadbeef",
			want: "request failed with trace",
		},
		{
			name: "timestamp removed",
			text: "job aborted at 2026-02-14T09:31:00Z retrying",
			want: "job aborted at retrying",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTemplates(tt.text)
			if len(got) != 1 {
				t.Fatalf("expected 1 template, got %d", len(got))
			}
			if got[0].Text != tt.want {
				t.Errorf("template = %q, want %q", got[0].Text, tt.want)
			}
			if got[0].Ambiguous {
				t.Errorf("template unexpectedly ambiguous")
			}
		})
	}
}

func TestExtractTemplates_Generalization(t *testing.T) {
	// Texts of the same error class differing only in variable content must
	// produce identical templates and fingerprints.
	pairs := [][2]string{
		{
			"ModuleNotFoundError: No module named 'pandas'",
			"ModuleNotFoundError: No module named 'numpy'",
		},
		{
			"server returned 404 for /api/users/123",
			"server returned 404 for /api/orders/99887",
		},
		{
			"dial tcp 10.0.0.5:8080 refused",
			"dial tcp 192.168.1.77:443 refused",
		},
	}
	for _, pair := range pairs {
		a := ExtractTemplates(pair[0])
		b := ExtractTemplates(pair[1])
		if a[0].Text != b[0].Text {
			t.Errorf("templates differ: %q vs %q", a[0].Text, b[0].Text)
		}
		if a[0].Fingerprint != b[0].Fingerprint {
			t.Errorf("fingerprints differ for %q vs %q", pair[0], pair[1])
		}
	}
}

func TestExtractTemplates_Idempotent(t *testing.T) {
	inputs := []string{
		"ModuleNotFoundError: No module named 'pandas'",
		"FileNotFoundError: [Errno 2] No such file or directory: '/tmp/data.csv'",
		"connect failed: https://api.example.com/v2/items timeout after 30 seconds",
		"server returned 404 for /api/users/123",
	}
	for _, in := range inputs {
		first := ExtractTemplates(in)[0].Text
		second := ExtractTemplates(first)[0].Text
		if first != second {
			t.Errorf("not idempotent: %q re-extracted to %q", first, second)
		}
	}
}

func TestExtractTemplates_CauseChain(t *testing.T) {
	text := "java.lang.RuntimeException: boom at line 42\n" +
		"Caused by: java.io.IOException: connection refused to 10.0.0.5:8080"
	got := ExtractTemplates(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(got))
	}
	if got[0].Text != "java.lang.RuntimeException boom at line" {
		t.Errorf("outer template = %q", got[0].Text)
	}
	if got[1].Text != "java.io.IOException connection refused to" {
		t.Errorf("cause template = %q", got[1].Text)
	}
	if got[1].SegmentStart <= got[0].SegmentStart {
		t.Errorf("cause segment should start after outer segment")
	}
}

func TestExtractTemplates_CauseChainNonASCII(t *testing.T) {
	// Runes whose lowercase form has a different byte length (U+0130 lowers
	// to two runes) must not shift the marker split offsets.
	prefix := strings.Repeat("İ", 12)
	text := prefix + " hata at line 7 Caused by: ValueError: bad input in 'field'"
	got := ExtractTemplates(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(got))
	}
	for i, tmpl := range got {
		if !utf8.ValidString(tmpl.Text) {
			t.Errorf("template %d is not valid UTF-8: %q", i, tmpl.Text)
		}
	}
	if !strings.HasPrefix(got[0].Text, prefix) {
		t.Errorf("outer template lost the non-ASCII prefix: %q", got[0].Text)
	}
	if got[1].Text != "ValueError bad input in" {
		t.Errorf("cause template = %q", got[1].Text)
	}

	// A marker right at the end of a non-ASCII run must not slice out of
	// range.
	got = ExtractTemplates(strings.Repeat("İ", 12) + " caused by:")
	if len(got) != 1 {
		t.Fatalf("expected 1 template, got %d", len(got))
	}
	if !utf8.ValidString(got[0].Text) {
		t.Errorf("template is not valid UTF-8: %q", got[0].Text)
	}
}

func TestExtractTemplates_RemovedSpans(t *testing.T) {
	got := ExtractTemplates("ModuleNotFoundError: No module named 'pandas'")
	want := []Span{
		{Kind: KindQuoted, Text: "'pandas'", Start: 37, End: 45},
	}
	if diff := cmp.Diff(want, got[0].Removed); diff != "" {
		t.Errorf("removed spans mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTemplates_Ambiguity(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		got := ExtractTemplates("   \n\t ")
		if len(got) != 1 || !got[0].Ambiguous {
			t.Fatalf("expected single ambiguous template, got %+v", got)
		}
		if got[0].Text != "" {
			t.Errorf("expected empty template text, got %q", got[0].Text)
		}
	})

	t.Run("all-variable retries with widened context", func(t *testing.T) {
		got := ExtractTemplates("12345")
		if len(got) != 1 {
			t.Fatalf("expected 1 template, got %d", len(got))
		}
		if !got[0].Ambiguous {
			t.Error("all-variable input must stay flagged ambiguous")
		}
		// The widened retry keeps one token as FIXED so the caller still
		// has something to anchor a search on.
		if got[0].Text != "12345" {
			t.Errorf("retry template = %q, want %q", got[0].Text, "12345")
		}
	})
}

func TestExtractTemplates_Deterministic(t *testing.T) {
	text := "FileNotFoundError: [Errno 2] No such file or directory: '/tmp/data.csv'"
	first := ExtractTemplates(text)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, ExtractTemplates(text)); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("a") == Fingerprint("b") {
		t.Error("distinct inputs should not collide")
	}
	if Fingerprint("same") != Fingerprint("same") {
		t.Error("fingerprint must be deterministic")
	}
	if len(Fingerprint("")) != 16 {
		t.Errorf("expected 16 hex chars, got %q", Fingerprint(""))
	}
}
