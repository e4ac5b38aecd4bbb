// Package collab builds collaboration graphs between repositories from
// shared-developer activity.
package collab

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/rohankatakam/collabgraph/internal/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Options controls graph construction
type Options struct {
	InclusionThreshold int // minimum average influence for a node (inclusive)
	EdgeThreshold      int // minimum shared developer count for an edge (inclusive)
	Hop1Limit          int
	Hop2Limit          int
	Workers            int // concurrent store lookups; 1 = sequential

	// SkipFailures logs and skips ids or pairs whose lookups fail instead of aborting
	SkipFailures bool
}

// DefaultOptions returns the standard expansion widths and thresholds
func DefaultOptions() Options {
	return Options{
		InclusionThreshold: 40,
		EdgeThreshold:      20,
		Hop1Limit:          10,
		Hop2Limit:          5,
		Workers:            8,
	}
}

// Validate checks the options before a build starts
func (o Options) Validate() error {
	if o.Hop1Limit <= 0 || o.Hop2Limit <= 0 {
		return errors.ValidationErrorf("hop limits must be positive, got %d and %d", o.Hop1Limit, o.Hop2Limit)
	}
	if o.InclusionThreshold < 0 || o.EdgeThreshold < 0 {
		return errors.ValidationErrorf("thresholds must not be negative, got %d and %d", o.InclusionThreshold, o.EdgeThreshold)
	}
	if o.Workers <= 0 {
		return errors.ValidationErrorf("workers must be positive, got %d", o.Workers)
	}
	return nil
}

// Stats describes the last build
type Stats struct {
	Seeds     int
	Frontier1 int
	Frontier2 int

	DroppedNoName        int
	DroppedNoInfluence   int
	DroppedLowInfluence  int
	DroppedDuplicateName int
	Skipped              int // lookups that failed under SkipFailures

	Nodes       int
	PairsScored int
	Edges       int
	Elapsed     time.Duration
}

// Builder runs the two-hop expansion, filtering and pairwise scoring against a store
type Builder struct {
	store  storage.Store
	opts   Options
	logger *logrus.Logger

	mu   sync.Mutex
	last Stats
}

// NewBuilder creates a graph builder. The store stays owned by the caller.
func NewBuilder(store storage.Store, opts Options, logger *logrus.Logger) *Builder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Builder{
		store:  store,
		opts:   opts,
		logger: logger,
	}
}

// LastStats returns the statistics of the most recent Build
func (b *Builder) LastStats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Build constructs the collaboration graph reachable from seeds.
// Nodes are ordered by repository id; edges follow node order.
func (b *Builder) Build(ctx context.Context, seeds []models.RepoID) (*models.Graph, error) {
	if err := b.opts.Validate(); err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, errors.ValidationError("at least one seed repository is required")
	}

	start := time.Now()
	stats := Stats{}
	seeds = dedupe(seeds)
	stats.Seeds = len(seeds)

	log := b.logger.WithFields(logrus.Fields{
		"seeds":   seeds,
		"workers": b.opts.Workers,
	})
	log.Info("building collaboration graph")

	frontier1, err := b.expand(ctx, "hop1", seeds, b.opts.Hop1Limit, &stats)
	if err != nil {
		return nil, err
	}
	stats.Frontier1 = len(frontier1)
	log.WithField("frontier1", len(frontier1)).Info("hop 1 complete")

	frontier2, err := b.expand(ctx, "hop2", frontier1, b.opts.Hop2Limit, &stats)
	if err != nil {
		return nil, err
	}
	stats.Frontier2 = len(frontier2)
	log.WithField("frontier2", len(frontier2)).Info("hop 2 complete")

	records, err := b.resolve(ctx, frontier2, &stats)
	if err != nil {
		return nil, err
	}
	stats.Nodes = len(records)
	log.WithFields(logrus.Fields{
		"candidates":     len(records),
		"no_name":        stats.DroppedNoName,
		"no_influence":   stats.DroppedNoInfluence,
		"low_influence":  stats.DroppedLowInfluence,
		"duplicate_name": stats.DroppedDuplicateName,
	}).Info("candidates resolved")

	edges, err := b.score(ctx, records, &stats)
	if err != nil {
		return nil, err
	}
	stats.Edges = len(edges)

	graph := &models.Graph{
		Nodes: make([]models.Node, 0, len(records)),
		Edges: edges,
	}
	// Nodes report whole influence points; the threshold was applied to the raw average
	for _, r := range records {
		graph.Nodes = append(graph.Nodes, models.Node{Name: r.Name, Influence: math.Trunc(*r.Influence)})
	}

	stats.Elapsed = time.Since(start)
	b.mu.Lock()
	b.last = stats
	b.mu.Unlock()

	log.WithFields(logrus.Fields{
		"nodes":   stats.Nodes,
		"edges":   stats.Edges,
		"skipped": stats.Skipped,
		"elapsed": stats.Elapsed.Round(time.Millisecond).String(),
	}).Info("collaboration graph built")

	return graph, nil
}

// expand runs one hop: each id is expanded on its own, excluding only itself,
// and the results are unioned into a sorted, duplicate-free frontier
func (b *Builder) expand(ctx context.Context, hop string, ids []models.RepoID, limit int, stats *Stats) ([]models.RepoID, error) {
	results := make([][]models.Neighbor, len(ids))
	failed := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)

	for i, id := range ids {
		g.Go(func() error {
			neighbors, err := b.store.FindNeighbors(gctx, []models.RepoID{id}, limit)
			if err != nil {
				if b.skippable(gctx) {
					b.logger.WithError(err).WithFields(logrus.Fields{"hop": hop, "repo_id": id}).
						Warn("neighbor lookup failed, skipping repository")
					failed[i] = true
					return nil
				}
				return fmt.Errorf("%s expansion of %d: %w", hop, id, err)
			}
			results[i] = neighbors
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[models.RepoID]struct{})
	frontier := make([]models.RepoID, 0)
	for i, neighbors := range results {
		if failed[i] {
			stats.Skipped++
			continue
		}
		for _, n := range neighbors {
			if _, ok := seen[n.ID]; ok {
				continue
			}
			seen[n.ID] = struct{}{}
			frontier = append(frontier, n.ID)
		}
	}
	slices.Sort(frontier)
	return frontier, nil
}

type outcome int

const (
	kept outcome = iota
	noName
	noInfluence
	lowInfluence
	failedLookup
)

// resolve names every candidate, then scores its influence; only named
// candidates at or above the inclusion threshold survive
func (b *Builder) resolve(ctx context.Context, ids []models.RepoID, stats *Stats) ([]models.ProjectRecord, error) {
	records := make([]models.ProjectRecord, len(ids))
	outcomes := make([]outcome, len(ids))
	threshold := float64(b.opts.InclusionThreshold)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)

	for i, id := range ids {
		g.Go(func() error {
			fail := func(what string, err error) error {
				if b.skippable(gctx) {
					b.logger.WithError(err).WithField("repo_id", id).
						Warnf("%s lookup failed, skipping repository", what)
					outcomes[i] = failedLookup
					return nil
				}
				return fmt.Errorf("%s lookup for %d: %w", what, id, err)
			}

			name, ok, err := b.store.LatestName(gctx, id)
			if err != nil {
				return fail("name", err)
			}
			if !ok {
				outcomes[i] = noName
				return nil
			}
			records[i] = models.ProjectRecord{ID: id, Name: name}

			influence, ok, err := b.store.AverageInfluence(gctx, id)
			if err != nil {
				return fail("influence", err)
			}
			switch {
			case !ok:
				outcomes[i] = noInfluence
			case influence < threshold:
				outcomes[i] = lowInfluence
			default:
				records[i].Influence = &influence
				outcomes[i] = kept
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	survivors := make([]models.ProjectRecord, 0, len(ids))
	names := make(map[string]models.RepoID)
	for i, r := range records {
		switch outcomes[i] {
		case noName:
			stats.DroppedNoName++
			b.logger.WithField("repo_id", ids[i]).Debug("dropped: no recorded name")
		case noInfluence:
			stats.DroppedNoInfluence++
			b.logger.WithFields(logrus.Fields{"repo_id": r.ID, "name": r.Name}).Debug("dropped: no influence data")
		case lowInfluence:
			stats.DroppedLowInfluence++
			b.logger.WithFields(logrus.Fields{"repo_id": r.ID, "name": r.Name}).Debug("dropped: influence below threshold")
		case failedLookup:
			stats.Skipped++
		case kept:
			if other, dup := names[r.Name]; dup {
				stats.DroppedDuplicateName++
				b.logger.WithFields(logrus.Fields{
					"repo_id": r.ID, "name": r.Name, "kept_repo_id": other,
				}).Warn("dropped: name already used by another repository")
				continue
			}
			names[r.Name] = r.ID
			survivors = append(survivors, r)
		}
	}
	return survivors, nil
}

// score computes the shared developer count of every unordered pair and keeps
// those at or above the edge threshold
func (b *Builder) score(ctx context.Context, records []models.ProjectRecord, stats *Stats) ([]models.Edge, error) {
	type pair struct{ i, j int }

	n := len(records)
	pairs := make([]pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pair{i, j})
		}
	}
	if len(pairs) > 0 {
		b.logger.WithFields(logrus.Fields{
			"candidates": n,
			"pairs":      len(pairs),
		}).Info("scoring candidate pairs")
	}

	counts := make([]int, len(pairs))
	failed := make([]bool, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)

	for k, p := range pairs {
		g.Go(func() error {
			a, c := records[p.i].ID, records[p.j].ID
			count, err := b.store.SharedDeveloperCount(gctx, a, c)
			if err != nil {
				if b.skippable(gctx) {
					b.logger.WithError(err).WithFields(logrus.Fields{"repo_a": a, "repo_b": c}).
						Warn("relation lookup failed, skipping pair")
					failed[k] = true
					return nil
				}
				return fmt.Errorf("shared developer count for %d and %d: %w", a, c, err)
			}
			counts[k] = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	edges := make([]models.Edge, 0)
	for k, p := range pairs {
		if failed[k] {
			stats.Skipped++
			continue
		}
		stats.PairsScored++
		if counts[k] < b.opts.EdgeThreshold {
			continue
		}
		edges = append(edges, models.Edge{
			Source: records[p.i].Name,
			Target: records[p.j].Name,
			Count:  counts[k],
		})
	}
	return edges, nil
}

// skippable reports whether a failed lookup may be skipped. Cancellation always aborts.
func (b *Builder) skippable(ctx context.Context) bool {
	return b.opts.SkipFailures && ctx.Err() == nil
}

func dedupe(ids []models.RepoID) []models.RepoID {
	seen := make(map[models.RepoID]struct{}, len(ids))
	out := make([]models.RepoID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
