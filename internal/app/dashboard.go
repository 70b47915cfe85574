package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/johnbyeon/feelscore-sub000/internal/adapter/metrics"
	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

// Dashboard recomputes the windowed category rollup from post storage. It
// never reads the incremental accumulator; the two paths are not expected to
// agree.
type Dashboard struct {
	categories domain.CategorySource
	scores     domain.ScoreSource
	snapshots  domain.SnapshotRepository
	clock      clockwork.Clock
	metrics    *metrics.StatsMetrics
}

func NewDashboard(categories domain.CategorySource, scores domain.ScoreSource, snapshots domain.SnapshotRepository, clock clockwork.Clock, m *metrics.StatsMetrics) *Dashboard {
	return &Dashboard{
		categories: categories,
		scores:     scores,
		snapshots:  snapshots,
		clock:      clock,
		metrics:    m,
	}
}

// Stats returns one tree per root category. Each node carries the dominant
// emotion of its self+descendants vector, the summed comment count and a
// trend against the latest snapshot older than domain.TrendLookback. Roots and
// children are sorted by score, highest first.
func (d *Dashboard) Stats(ctx context.Context, window domain.Window) (forest []*domain.DashboardNode, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "dashboard.Stats")
	span.SetAttributes(attribute.String("window", string(window)))
	defer span.End()

	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rollup failed")
			return
		}
		d.metrics.RollupDuration.WithLabelValues(string(window)).Observe(time.Since(start).Seconds())
	}()

	now := d.clock.Now()

	var (
		tree     *domain.CategoryTree
		sums     map[int64]domain.Vector
		comments map[int64]int64
		refs     map[int64]domain.Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tree, err = d.categories.Tree(gctx); err != nil {
			return fmt.Errorf("failed to load category tree: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if sums, err = d.scores.SumScoresByCategory(gctx, window.Since(now)); err != nil {
			return fmt.Errorf("failed to sum scores: %w", err)
		}
		return nil
	})
	if window == domain.WindowAll {
		g.Go(func() error {
			var err error
			if comments, err = d.scores.CountCommentsByCategory(gctx); err != nil {
				return fmt.Errorf("failed to count comments: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		var err error
		if refs, err = d.snapshots.LatestBefore(gctx, now.Add(-domain.TrendLookback)); err != nil {
			return fmt.Errorf("failed to load reference snapshots: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	forest = make([]*domain.DashboardNode, 0, len(tree.Roots()))
	total := 0
	for _, rootID := range tree.Roots() {
		root, n, err := rollup(tree, rootID, sums, comments, refs)
		if err != nil {
			return nil, err
		}
		forest = append(forest, root)
		total += n
	}
	sortByScore(forest)

	d.metrics.RollupNodes.Set(float64(total))
	span.SetAttributes(attribute.Int("nodes", total))
	return forest, nil
}

// rollup builds the subtree under rootID in post-order so every child's
// combined vector is final before its parent adds it. Returns the root node
// and the number of nodes built.
func rollup(tree *domain.CategoryTree, rootID int64, sums map[int64]domain.Vector, comments map[int64]int64, refs map[int64]domain.Snapshot) (*domain.DashboardNode, int, error) {
	order, err := tree.Descendants(rootID)
	if err != nil {
		return nil, 0, err
	}

	built := make(map[int64]*domain.DashboardNode, len(order))
	for _, id := range order {
		c, _ := tree.Get(id)

		combined := sums[id]
		commentCount := comments[id]
		children := make([]*domain.DashboardNode, 0, len(c.ChildIDs))
		for _, childID := range c.ChildIDs {
			child := built[childID]
			combined = combined.Add(child.Combined())
			commentCount += child.CommentCount
			children = append(children, child)
		}
		sortByScore(children)

		node := &domain.DashboardNode{
			CategoryID:   id,
			Name:         c.Name,
			CommentCount: commentCount,
			Children:     children,
		}
		node.SetCombined(combined)

		var ref *domain.Snapshot
		if s, ok := refs[id]; ok {
			ref = &s
		}
		node.Trend = domain.ClassifyTrend(node.Score, ref)

		built[id] = node
	}
	return built[rootID], len(order), nil
}

func sortByScore(nodes []*domain.DashboardNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Score > nodes[j].Score
	})
}
