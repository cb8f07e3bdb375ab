// Package docfetch looks up official documentation in a headless browser.
// Many doc sites render client-side, so a plain GET returns an empty shell;
// chromedp waits for the rendered DOM before extracting text.
package docfetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"sleuth/internal/evidence"
	"sleuth/internal/logging"
	"sleuth/internal/research"
)

// DefaultNavigateTimeout bounds one page load and render.
const DefaultNavigateTimeout = 20 * time.Second

// Source fetches a documentation page for the error template and extracts
// the paragraph discussing it. Implements research.Source; findings classify
// as official documentation (tier 2).
type Source struct {
	log *slog.Logger

	// queryURL is a format string with one %s, filled with the
	// query-escaped template text.
	queryURL string
	timeout  time.Duration
}

// New returns a source querying the given doc site. queryURL must contain
// exactly one %s placeholder.
func New(queryURL string) *Source {
	return &Source{
		log:      logging.New("docfetch"),
		queryURL: queryURL,
		timeout:  DefaultNavigateTimeout,
	}
}

// Name implements research.Source.
func (s *Source) Name() string { return "docfetch" }

// Lookup implements research.Source. A page with no paragraph mentioning the
// template is reported as an error so the pool commits nothing for it.
func (s *Source) Lookup(ctx context.Context, q research.Query) (*research.Finding, error) {
	target := fmt.Sprintf(s.queryURL, url.QueryEscape(q.Template.Text))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var body string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Text("body", &body, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}

	snippet := relevantParagraph(body, q.Template.Text)
	if snippet == "" {
		return nil, fmt.Errorf("no paragraph at %s mentions the template", target)
	}
	s.log.Debug("documentation paragraph found", "url", target, "hypothesis", q.HypothesisID)

	return &research.Finding{
		Source:   evidence.SourceOfficialDoc,
		Content:  snippet,
		Polarity: polarityFor(snippet, q.Description),
	}, nil
}

// relevantParagraph returns the first paragraph containing the longest token
// of the template, or "" when the page never mentions it.
func relevantParagraph(body, templateText string) string {
	token := longestToken(templateText)
	if token == "" {
		return ""
	}
	lower := strings.ToLower(token)
	for _, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if strings.Contains(strings.ToLower(para), lower) {
			const maxSnippet = 500
			if len(para) > maxSnippet {
				para = para[:maxSnippet]
			}
			return para
		}
	}
	return ""
}

// polarityFor reads the paragraph against the hypothesis description:
// documentation that also names what the hypothesis blames supports it,
// anything else merely describes the symptom and weighs against a cause the
// docs never connect to it.
func polarityFor(snippet, description string) evidence.Polarity {
	lowerSnip := strings.ToLower(snippet)
	for _, word := range strings.Fields(strings.ToLower(description)) {
		if len(word) < 5 {
			continue
		}
		if strings.Contains(lowerSnip, word) {
			return evidence.Supports
		}
	}
	return evidence.Contradicts
}

func longestToken(s string) string {
	var best string
	for _, tok := range strings.Fields(s) {
		if len(tok) > len(best) {
			best = tok
		}
	}
	return best
}
