package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

func TestCategoryCache_ReloadsAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32
	repo := &mockCategoryRepo{
		listCategoriesFn: func(context.Context) ([]domain.Category, error) {
			calls.Add(1)
			return testCategories(), nil
		},
	}
	m := newTestCacheMetrics()
	cache := NewCategoryCache(repo, time.Minute, clock, m)
	ctx := context.Background()

	tree, err := cache.Tree(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, tree.Len())

	_, err = cache.Tree(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(time.Minute)
	_, err = cache.Tree(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Hits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Misses))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reloads.WithLabelValues("ok")))
}

func TestCategoryCache_Invalidate(t *testing.T) {
	var calls atomic.Int32
	repo := &mockCategoryRepo{
		listCategoriesFn: func(context.Context) ([]domain.Category, error) {
			calls.Add(1)
			return testCategories(), nil
		},
	}
	cache := NewCategoryCache(repo, time.Hour, clockwork.NewFakeClock(), newTestCacheMetrics())

	_, err := cache.Tree(context.Background())
	require.NoError(t, err)
	cache.Invalidate()
	_, err = cache.Tree(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestCategoryCache_ServesStaleTreeOnReloadFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fail := false
	repo := &mockCategoryRepo{
		listCategoriesFn: func(context.Context) ([]domain.Category, error) {
			if fail {
				return nil, errors.New("connection refused")
			}
			return testCategories(), nil
		},
	}
	m := newTestCacheMetrics()
	cache := NewCategoryCache(repo, time.Minute, clock, m)
	ctx := context.Background()

	first, err := cache.Tree(ctx)
	require.NoError(t, err)

	fail = true
	clock.Advance(2 * time.Minute)

	stale, err := cache.Tree(ctx)
	require.NoError(t, err)
	assert.Same(t, first, stale)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads.WithLabelValues("error")))
}

func TestCategoryCache_ColdFailure(t *testing.T) {
	repo := &mockCategoryRepo{
		listCategoriesFn: func(context.Context) ([]domain.Category, error) {
			return nil, errors.New("connection refused")
		},
	}
	cache := NewCategoryCache(repo, time.Minute, clockwork.NewFakeClock(), newTestCacheMetrics())

	_, err := cache.Tree(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestCategoryCache_InvalidTree(t *testing.T) {
	repo := &mockCategoryRepo{
		listCategoriesFn: func(context.Context) ([]domain.Category, error) {
			return []domain.Category{{ID: 2, Name: "orphan", ParentID: ptr(int64(9))}}, nil
		},
	}
	cache := NewCategoryCache(repo, time.Minute, clockwork.NewFakeClock(), newTestCacheMetrics())

	_, err := cache.Tree(context.Background())
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestCategoryCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	repo := &mockCategoryRepo{
		listCategoriesFn: func(context.Context) ([]domain.Category, error) {
			calls.Add(1)
			<-release
			return testCategories(), nil
		},
	}
	cache := NewCategoryCache(repo, time.Minute, clockwork.NewFakeClock(), newTestCacheMetrics())

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Tree(context.Background())
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestCategoryCache_LoopedParentsFailToLoad(t *testing.T) {
	repo := &mockCategoryRepo{
		listCategoriesFn: func(context.Context) ([]domain.Category, error) {
			return []domain.Category{
				{ID: 1, Name: "Life", Depth: 1},
				{ID: 2, Name: "a", Depth: 2, ParentID: ptr(int64(3))},
				{ID: 3, Name: "b", Depth: 2, ParentID: ptr(int64(2))},
			}, nil
		},
	}
	m := newTestCacheMetrics()
	cache := NewCategoryCache(repo, time.Minute, clockwork.NewFakeClock(), m)

	_, err := cache.Tree(context.Background())
	assert.ErrorIs(t, err, domain.ErrCategoryCycle)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads.WithLabelValues("error")))
}
