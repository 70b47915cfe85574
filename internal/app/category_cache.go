package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/johnbyeon/feelscore-sub000/internal/adapter/metrics"
	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

const categoryTreeKey = "tree"

// CategoryCache serves the category tree from memory and reloads it from the
// repository once the TTL has passed. Concurrent reloads are collapsed into one
// query. When a reload fails and a previous tree exists, the stale tree is
// served and the failure is logged.
type CategoryCache struct {
	repo    domain.CategoryRepository
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *metrics.CacheMetrics
	group   singleflight.Group

	mu        sync.RWMutex
	tree      *domain.CategoryTree
	expiresAt time.Time
}

func NewCategoryCache(repo domain.CategoryRepository, ttl time.Duration, clock clockwork.Clock, m *metrics.CacheMetrics) *CategoryCache {
	return &CategoryCache{
		repo:    repo,
		ttl:     ttl,
		clock:   clock,
		metrics: m,
	}
}

// Tree returns the cached tree, reloading it when expired.
func (c *CategoryCache) Tree(ctx context.Context) (*domain.CategoryTree, error) {
	c.mu.RLock()
	tree, expiresAt := c.tree, c.expiresAt
	c.mu.RUnlock()

	if tree != nil && c.clock.Now().Before(expiresAt) {
		c.metrics.Hits.Inc()
		return tree, nil
	}
	c.metrics.Misses.Inc()

	v, err, _ := c.group.Do(categoryTreeKey, func() (any, error) {
		return c.reload(ctx)
	})
	if err != nil {
		if tree != nil {
			slog.WarnContext(ctx, "Category tree reload failed, serving stale tree", "error", err)
			return tree, nil
		}
		return nil, err
	}
	return v.(*domain.CategoryTree), nil
}

// Invalidate forces the next Tree call to reload.
func (c *CategoryCache) Invalidate() {
	c.mu.Lock()
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *CategoryCache) reload(ctx context.Context) (*domain.CategoryTree, error) {
	categories, err := c.repo.ListCategories(ctx)
	if err != nil {
		c.metrics.Reloads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	tree, err := domain.NewCategoryTree(categories)
	if err != nil {
		c.metrics.Reloads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to build category tree: %w", err)
	}

	c.mu.Lock()
	c.tree = tree
	c.expiresAt = c.clock.Now().Add(c.ttl)
	c.mu.Unlock()

	c.metrics.Reloads.WithLabelValues("ok").Inc()
	slog.DebugContext(ctx, "Category tree reloaded", "categories", tree.Len())
	return tree, nil
}
