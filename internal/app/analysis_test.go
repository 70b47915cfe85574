package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

// memoryAnalyses is a map-backed AnalysisRepository for recorder tests.
type memoryAnalyses struct {
	rows      map[uuid.UUID]domain.PostAnalysis
	upsertErr error
}

func newMemoryAnalyses() *memoryAnalyses {
	return &memoryAnalyses{rows: make(map[uuid.UUID]domain.PostAnalysis)}
}

func (m *memoryAnalyses) repo() *mockAnalysisRepo {
	return &mockAnalysisRepo{
		getFn: func(_ context.Context, postID uuid.UUID) (*domain.PostAnalysis, error) {
			a, ok := m.rows[postID]
			if !ok {
				return nil, domain.ErrAnalysisNotFound
			}
			return &a, nil
		},
		upsertFn: func(_ context.Context, postID uuid.UUID, categoryID int64, v domain.Vector) error {
			if m.upsertErr != nil {
				return m.upsertErr
			}
			m.rows[postID] = domain.PostAnalysis{PostID: postID, CategoryID: categoryID, Scores: v}
			return nil
		},
		deleteFn: func(_ context.Context, postID uuid.UUID) error {
			if _, ok := m.rows[postID]; !ok {
				return domain.ErrAnalysisNotFound
			}
			delete(m.rows, postID)
			return nil
		},
	}
}

func TestAnalysisRecorder_FirstRecordApplies(t *testing.T) {
	f := newStatsFixture(t)
	store := newMemoryAnalyses()
	postID := uuid.New()
	rec := NewAnalysisRecorder(f.svc, store.repo())

	require.NoError(t, rec.Record(context.Background(), postID, 4, joy(70)))

	e, ok := entryFor(t, f.acc, 1, domain.Joy)
	require.True(t, ok)
	assert.Equal(t, int64(70), e.TotalScore)
	assert.Equal(t, joy(70), store.rows[postID].Scores)
}

func TestAnalysisRecorder_CorrectionReapplies(t *testing.T) {
	f := newStatsFixture(t)
	store := newMemoryAnalyses()
	postID := uuid.New()
	rec := NewAnalysisRecorder(f.svc, store.repo())
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, postID, 4, joy(70)))
	corrected := domain.NewVector(map[domain.Emotion]int{domain.Sadness: 30})
	require.NoError(t, rec.Record(ctx, postID, 4, corrected))

	j, _ := entryFor(t, f.acc, 4, domain.Joy)
	s, _ := entryFor(t, f.acc, 4, domain.Sadness)
	assert.Zero(t, j.TotalScore)
	assert.Zero(t, j.Count)
	assert.Equal(t, int64(30), s.TotalScore)
	assert.Equal(t, corrected, store.rows[postID].Scores)
}

func TestAnalysisRecorder_CategoryChangeMovesContribution(t *testing.T) {
	f := newStatsFixture(t)
	store := newMemoryAnalyses()
	postID := uuid.New()
	rec := NewAnalysisRecorder(f.svc, store.repo())
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, postID, 4, joy(70)))
	require.NoError(t, rec.Record(ctx, postID, 5, joy(70)))
	assert.Equal(t, int64(5), store.rows[postID].CategoryID)

	life, _ := entryFor(t, f.acc, 1, domain.Joy)
	tech, _ := entryFor(t, f.acc, 5, domain.Joy)
	assert.Zero(t, life.TotalScore)
	assert.Equal(t, int64(70), tech.TotalScore)
}

func TestAnalysisRecorder_MovedPostLeavesOtherPostsIntact(t *testing.T) {
	f := newStatsFixture(t)
	store := newMemoryAnalyses()
	rec := NewAnalysisRecorder(f.svc, store.repo())
	ctx := context.Background()
	other, moved := uuid.New(), uuid.New()

	require.NoError(t, rec.Record(ctx, other, 4, joy(50)))
	require.NoError(t, rec.Record(ctx, moved, 4, joy(70)))
	require.NoError(t, rec.Record(ctx, moved, 5, joy(30)))
	require.NoError(t, rec.Remove(ctx, moved))

	cafe, ok := entryFor(t, f.acc, 4, domain.Joy)
	require.True(t, ok)
	assert.Equal(t, domain.StatEntry{CategoryID: 4, Emotion: domain.Joy, Count: 1, TotalScore: 50}, cafe)

	tech, _ := entryFor(t, f.acc, 5, domain.Joy)
	assert.Zero(t, tech.Count)
	assert.Zero(t, tech.TotalScore)
}

func TestAnalysisRecorder_StoreFailureRestoresPrior(t *testing.T) {
	tests := []struct {
		name     string
		category int64
		updated  domain.Vector
	}{
		{name: "correction", category: 4, updated: joy(20)},
		{name: "category change", category: 5, updated: joy(20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStatsFixture(t)
			store := newMemoryAnalyses()
			rec := NewAnalysisRecorder(f.svc, store.repo())
			ctx := context.Background()
			postID := uuid.New()

			require.NoError(t, rec.Record(ctx, postID, 4, joy(70)))
			store.upsertErr = errors.New("db down")
			require.Error(t, rec.Record(ctx, postID, tt.category, tt.updated))

			cafe, _ := entryFor(t, f.acc, 4, domain.Joy)
			assert.Equal(t, int64(1), cafe.Count)
			assert.Equal(t, int64(70), cafe.TotalScore)
			tech, _ := entryFor(t, f.acc, 5, domain.Joy)
			assert.Zero(t, tech.TotalScore)

			// The stored analysis still matches the accumulator, so removal is exact.
			store.upsertErr = nil
			require.NoError(t, rec.Remove(ctx, postID))
			cafe, _ = entryFor(t, f.acc, 4, domain.Joy)
			assert.Zero(t, cafe.Count)
			assert.Zero(t, cafe.TotalScore)
		})
	}
}

func TestAnalysisRecorder_StoreFailureCompensates(t *testing.T) {
	f := newStatsFixture(t)
	store := newMemoryAnalyses()
	store.upsertErr = errors.New("db down")
	rec := NewAnalysisRecorder(f.svc, store.repo())

	err := rec.Record(context.Background(), uuid.New(), 4, joy(70))
	require.Error(t, err)

	e, _ := entryFor(t, f.acc, 4, domain.Joy)
	assert.Zero(t, e.Count)
	assert.Zero(t, e.TotalScore)
}

func TestAnalysisRecorder_Remove(t *testing.T) {
	f := newStatsFixture(t)
	store := newMemoryAnalyses()
	postID := uuid.New()
	rec := NewAnalysisRecorder(f.svc, store.repo())
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, postID, 4, joy(70)))
	require.NoError(t, rec.Remove(ctx, postID))

	e, _ := entryFor(t, f.acc, 1, domain.Joy)
	assert.Zero(t, e.TotalScore)
	assert.NotContains(t, store.rows, postID)

	err := rec.Remove(ctx, postID)
	assert.ErrorIs(t, err, domain.ErrAnalysisNotFound)
}

func TestAnalysisRecorder_LookupFailure(t *testing.T) {
	f := newStatsFixture(t)
	repo := &mockAnalysisRepo{
		getFn: func(context.Context, uuid.UUID) (*domain.PostAnalysis, error) {
			return nil, errors.New("timeout")
		},
	}
	rec := NewAnalysisRecorder(f.svc, repo)

	err := rec.Record(context.Background(), uuid.New(), 4, joy(1))
	assert.ErrorContains(t, err, "timeout")

	entries, err := f.acc.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
