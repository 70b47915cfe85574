package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/johnbyeon/feelscore-sub000/internal/adapter/metrics"
	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

// --- Mock implementations ---

type mockCategoryRepo struct {
	listCategoriesFn func(ctx context.Context) ([]domain.Category, error)
}

func (m *mockCategoryRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return nil, fmt.Errorf("not implemented")
}

type staticCategories struct {
	tree *domain.CategoryTree
	err  error
}

func (s *staticCategories) Tree(context.Context) (*domain.CategoryTree, error) {
	return s.tree, s.err
}

type mockScoreSource struct {
	sumScoresFn     func(ctx context.Context, since *time.Time) (map[int64]domain.Vector, error)
	countCommentsFn func(ctx context.Context) (map[int64]int64, error)
}

func (m *mockScoreSource) SumScoresByCategory(ctx context.Context, since *time.Time) (map[int64]domain.Vector, error) {
	if m.sumScoresFn != nil {
		return m.sumScoresFn(ctx, since)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockScoreSource) CountCommentsByCategory(ctx context.Context) (map[int64]int64, error) {
	if m.countCommentsFn != nil {
		return m.countCommentsFn(ctx)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockSnapshotRepo struct {
	saveFn         func(ctx context.Context, s domain.Snapshot) error
	latestBeforeFn func(ctx context.Context, cutoff time.Time) (map[int64]domain.Snapshot, error)
}

func (m *mockSnapshotRepo) Save(ctx context.Context, s domain.Snapshot) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, s)
	}
	return nil
}

func (m *mockSnapshotRepo) LatestBefore(ctx context.Context, cutoff time.Time) (map[int64]domain.Snapshot, error) {
	if m.latestBeforeFn != nil {
		return m.latestBeforeFn(ctx, cutoff)
	}
	return map[int64]domain.Snapshot{}, nil
}

type mockSlotLocker struct {
	tryAcquireFn func(ctx context.Context, slot time.Time) (bool, error)
	releaseFn    func(ctx context.Context, slot time.Time) error
}

func (m *mockSlotLocker) TryAcquire(ctx context.Context, slot time.Time) (bool, error) {
	if m.tryAcquireFn != nil {
		return m.tryAcquireFn(ctx, slot)
	}
	return true, nil
}

func (m *mockSlotLocker) Release(ctx context.Context, slot time.Time) error {
	if m.releaseFn != nil {
		return m.releaseFn(ctx, slot)
	}
	return nil
}

type mockAnalysisRepo struct {
	getFn    func(ctx context.Context, postID uuid.UUID) (*domain.PostAnalysis, error)
	upsertFn func(ctx context.Context, postID uuid.UUID, categoryID int64, v domain.Vector) error
	deleteFn func(ctx context.Context, postID uuid.UUID) error
}

func (m *mockAnalysisRepo) Get(ctx context.Context, postID uuid.UUID) (*domain.PostAnalysis, error) {
	if m.getFn != nil {
		return m.getFn(ctx, postID)
	}
	return nil, domain.ErrAnalysisNotFound
}

func (m *mockAnalysisRepo) Upsert(ctx context.Context, postID uuid.UUID, categoryID int64, v domain.Vector) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, postID, categoryID, v)
	}
	return nil
}

func (m *mockAnalysisRepo) Delete(ctx context.Context, postID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, postID)
	}
	return nil
}

// --- Fixtures ---

func ptr[T any](v T) *T { return &v }

// Life(1) -> Food(2) -> Cafe(4)
//         -> Travel(3)
// Tech(5)
func testCategories() []domain.Category {
	return []domain.Category{
		{ID: 1, Name: "Life", Depth: 1},
		{ID: 2, Name: "Food", Depth: 2, ParentID: ptr(int64(1))},
		{ID: 3, Name: "Travel", Depth: 2, ParentID: ptr(int64(1))},
		{ID: 4, Name: "Cafe", Depth: 3, ParentID: ptr(int64(2))},
		{ID: 5, Name: "Tech", Depth: 1},
	}
}

func testTree() *domain.CategoryTree {
	tree, err := domain.NewCategoryTree(testCategories())
	if err != nil {
		panic(err)
	}
	return tree
}

func newTestStatsMetrics() *metrics.StatsMetrics {
	return metrics.NewStatsMetrics(prometheus.NewRegistry())
}

func newTestCacheMetrics() *metrics.CacheMetrics {
	return metrics.NewCacheMetrics(prometheus.NewRegistry())
}
