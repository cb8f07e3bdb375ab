//go:build e2e

package docfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sleuth/internal/evidence"
	"sleuth/internal/research"
	"sleuth/internal/template"
)

func TestLookup_RendersAndExtracts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
<p>Site navigation</p>

<p>ModuleNotFoundError is raised when a required package is not installed
in the active environment.</p>
</body></html>`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	src := New(srv.URL + "/?q=%s")
	tmpl := template.ExtractTemplates("ModuleNotFoundError: No module named 'pandas'")[0]
	finding, err := src.Lookup(ctx, research.Query{
		HypothesisID: "missing-dependency",
		Template:     tmpl,
		Description:  "A required package, module, or binary is not installed",
	})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if finding.Source != evidence.SourceOfficialDoc {
		t.Errorf("source = %q, want official-doc", finding.Source)
	}
	if finding.Polarity != evidence.Supports {
		t.Errorf("polarity = %q, want supports", finding.Polarity)
	}
}
