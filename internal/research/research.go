// Package research fans out read-only evidence lookups (documentation,
// issue trackers, working examples) against external collaborators. Lookups
// run concurrently; they never touch session state. The pool is the single
// writer that merges completed findings into one deterministic evidence
// batch for the orchestrator to commit.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"sleuth/internal/evidence"
	"sleuth/internal/logging"
	"sleuth/internal/template"
)

// Query describes what a lookup should search for: the active hypothesis and
// the generic template of the error under investigation.
type Query struct {
	HypothesisID string
	Template     template.Template
	Description  string
}

// Finding is one lookup result before classification.
type Finding struct {
	// TaskID is the pool-assigned sub-task id, the stable tie-break when
	// findings of equal tier complete in arbitrary order.
	TaskID   string
	Source   evidence.SourceKind
	Content  string
	Polarity evidence.Polarity
}

// Source is one external research collaborator. Lookup must respect ctx and
// return promptly on cancellation; a cancelled lookup commits nothing.
type Source interface {
	Name() string
	Lookup(ctx context.Context, q Query) (*Finding, error)
}

// DefaultLookupTimeout bounds each individual lookup. A lookup that exceeds
// it degrades to tier-5 speculation instead of aborting the session.
const DefaultLookupTimeout = 30 * time.Second

// CancelTier: once a completed finding classifies at this tier or stronger,
// the remaining lookups are cancelled; the active hypothesis is decided.
const CancelTier = evidence.TierOfficialDoc

// Pool runs research lookups for one hypothesis at a time.
type Pool struct {
	log     *slog.Logger
	sources []Source
	timeout time.Duration
}

// NewPool returns a pool over the given sources. A non-positive timeout
// falls back to DefaultLookupTimeout.
func NewPool(timeout time.Duration, sources ...Source) *Pool {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Pool{
		log:     logging.New("research"),
		sources: sources,
		timeout: timeout,
	}
}

// Gather runs every source concurrently and returns the merged evidence
// batch. Merge semantics:
//
//   - Findings are received one at a time by this single writer, in
//     completion order.
//   - Once a finding classifies at tier <= CancelTier, pending lookups are
//     cancelled; a cancelled lookup commits no partial evidence.
//   - A lookup that exceeds the pool timeout degrades to an inconclusive
//     tier-5 speculation entry naming the source, rather than failing the
//     batch; it documents the gap without deciding the hypothesis.
//   - The returned batch is ordered by (tier, task id) so the evidence
//     trail is deterministic regardless of which lookup finished first.
func (p *Pool) Gather(ctx context.Context, q Query) []evidence.Evidence {
	if len(p.sources) == 0 {
		return nil
	}

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type completed struct {
		taskID string
		ev     *evidence.Evidence
	}
	results := make(chan completed, len(p.sources))

	g, gctx := errgroup.WithContext(gctx)
	for i, src := range p.sources {
		taskID := fmt.Sprintf("%02d-%s", i, src.Name())
		g.Go(func() error {
			lctx, lcancel := context.WithTimeout(gctx, p.timeout)
			defer lcancel()

			finding, err := src.Lookup(lctx, q)
			switch {
			case err == nil && finding != nil:
				ev := &evidence.Evidence{
					SourceKind: finding.Source,
					Tier:       evidence.Classify(finding.Source),
					Content:    finding.Content,
					Polarity:   finding.Polarity,
					RecordedAt: time.Now().UTC().Format(time.RFC3339),
				}
				results <- completed{taskID: taskID, ev: ev}
			case errors.Is(err, context.DeadlineExceeded) && gctx.Err() == nil:
				// Lookup timeout, not pool cancellation: degrade rather
				// than abort.
				p.log.Warn("lookup timed out, degrading to speculation", "task", taskID)
				results <- completed{taskID: taskID, ev: &evidence.Evidence{
					SourceKind: evidence.SourceSpeculation,
					Tier:       evidence.TierSpeculation,
					Content:    fmt.Sprintf("lookup %s timed out after %s; no result", src.Name(), p.timeout),
					Polarity:   evidence.Inconclusive,
					RecordedAt: time.Now().UTC().Format(time.RFC3339),
				}}
			default:
				// Cancelled or failed: commit nothing.
				p.log.Debug("lookup dropped", "task", taskID, "error", err)
				results <- completed{taskID: taskID}
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(results)
		close(done)
	}()

	// Single-writer merge in completion order.
	byTask := make(map[string]evidence.Evidence)
	for c := range results {
		if c.ev == nil {
			continue
		}
		byTask[c.taskID] = *c.ev
		if c.ev.Tier <= CancelTier {
			p.log.Info("decisive evidence received, cancelling remaining lookups",
				"task", c.taskID, "tier", int(c.ev.Tier))
			cancel()
		}
	}
	<-done

	batch := make([]evidence.Evidence, 0, len(byTask))
	taskIDs := make([]string, 0, len(byTask))
	for id := range byTask {
		taskIDs = append(taskIDs, id)
	}
	sort.Strings(taskIDs)
	for _, id := range taskIDs {
		batch = append(batch, byTask[id])
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Tier < batch[j].Tier
	})
	return batch
}
