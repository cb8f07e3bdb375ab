package research

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sleuth/internal/evidence"
)

// fakeSource returns a fixed finding after an optional delay. With block set
// it waits for cancellation instead and returns ctx.Err().
type fakeSource struct {
	name    string
	finding *Finding
	delay   time.Duration
	block   bool
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Lookup(ctx context.Context, _ Query) (*Finding, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.finding, nil
}

func TestGather_MergesAllSources(t *testing.T) {
	pool := NewPool(time.Second,
		&fakeSource{name: "docs", finding: &Finding{Source: evidence.SourceOfficialDoc, Content: "doc hit", Polarity: evidence.Supports}},
		&fakeSource{name: "issues", finding: &Finding{Source: evidence.SourceIssueReport, Content: "issue hit", Polarity: evidence.Contradicts}},
	)
	batch := pool.Gather(context.Background(), Query{HypothesisID: "h"})
	if len(batch) != 2 {
		t.Fatalf("expected 2 evidence entries, got %d", len(batch))
	}
	// Strongest tier first regardless of completion order.
	if batch[0].Tier != evidence.TierOfficialDoc || batch[1].Tier != evidence.TierIssueReport {
		t.Errorf("batch order: tiers %d, %d", batch[0].Tier, batch[1].Tier)
	}
}

func TestGather_DeterministicAtEqualTier(t *testing.T) {
	mk := func(name, content string, delay time.Duration) Source {
		return &fakeSource{
			name:  name,
			delay: delay,
			finding: &Finding{
				Source:   evidence.SourceIssueReport,
				Content:  content,
				Polarity: evidence.Supports,
			},
		}
	}

	// Same sources, opposite completion order: the batch order must match
	// because equal tiers tie-break on the assigned task id.
	poolA := NewPool(time.Second, mk("alpha", "a", 20*time.Millisecond), mk("beta", "b", 0))
	poolB := NewPool(time.Second, mk("alpha", "a", 0), mk("beta", "b", 20*time.Millisecond))

	contents := func(batch []evidence.Evidence) []string {
		var out []string
		for _, ev := range batch {
			out = append(out, ev.Content)
		}
		return out
	}

	a := contents(poolA.Gather(context.Background(), Query{}))
	b := contents(poolB.Gather(context.Background(), Query{}))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("merge order depends on completion timing:\n%s", diff)
	}
}

func TestGather_TimeoutDegradesToSpeculation(t *testing.T) {
	pool := NewPool(10*time.Millisecond,
		&fakeSource{name: "slow-docs", delay: 500 * time.Millisecond,
			finding: &Finding{Source: evidence.SourceOfficialDoc}},
	)
	batch := pool.Gather(context.Background(), Query{})
	if len(batch) != 1 {
		t.Fatalf("expected 1 degraded entry, got %d", len(batch))
	}
	if batch[0].Tier != evidence.TierSpeculation || batch[0].SourceKind != evidence.SourceSpeculation {
		t.Errorf("timed-out lookup should degrade to speculation, got %+v", batch[0])
	}
	if batch[0].Polarity != evidence.Inconclusive {
		t.Errorf("degraded entry polarity = %q, want inconclusive", batch[0].Polarity)
	}
}

func TestGather_CancelsOnDecisiveEvidence(t *testing.T) {
	blocked := &fakeSource{name: "never-finishes", block: true,
		finding: &Finding{Source: evidence.SourceIssueReport}}
	pool := NewPool(10*time.Second,
		&fakeSource{name: "direct", finding: &Finding{
			Source:   evidence.SourceDirectExecution,
			Content:  "observed directly",
			Polarity: evidence.Supports,
		}},
		blocked,
	)

	start := time.Now()
	batch := pool.Gather(context.Background(), Query{})
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Gather did not cancel pending lookups (took %s)", elapsed)
	}

	// The cancelled lookup commits nothing, not even a partial record.
	if len(batch) != 1 {
		t.Fatalf("expected 1 evidence entry, got %d", len(batch))
	}
	if batch[0].SourceKind != evidence.SourceDirectExecution {
		t.Errorf("unexpected evidence: %+v", batch[0])
	}
}

func TestGather_NoSources(t *testing.T) {
	pool := NewPool(time.Second)
	if batch := pool.Gather(context.Background(), Query{}); batch != nil {
		t.Errorf("expected nil batch, got %v", batch)
	}
}
