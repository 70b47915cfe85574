package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

// AnalysisRecorder keeps the stored per-post analysis and the accumulator in
// step: a first analysis is applied, a corrected one reapplied against the
// stored vector, and a removed one reverted.
type AnalysisRecorder struct {
	stats    *StatsService
	analyses domain.AnalysisRepository
}

func NewAnalysisRecorder(stats *StatsService, analyses domain.AnalysisRepository) *AnalysisRecorder {
	return &AnalysisRecorder{stats: stats, analyses: analyses}
}

// Record applies v for the post at categoryID. If the post already has a
// stored analysis, that vector is reverted first at the category it was
// applied to.
func (r *AnalysisRecorder) Record(ctx context.Context, postID uuid.UUID, categoryID int64, v domain.Vector) error {
	prior, err := r.analyses.Get(ctx, postID)
	if err != nil && !errors.Is(err, domain.ErrAnalysisNotFound) {
		return fmt.Errorf("failed to load prior analysis: %w", err)
	}

	switch {
	case prior == nil:
		err = r.stats.ApplyAnalysis(ctx, categoryID, v)
	case prior.CategoryID == categoryID:
		err = r.stats.ReapplyAnalysis(ctx, categoryID, prior.Scores, v)
	default:
		if err = r.stats.RevertAnalysis(ctx, prior.CategoryID, prior.Scores); err == nil {
			err = r.stats.ApplyAnalysis(ctx, categoryID, v)
		}
	}
	if err != nil {
		return err
	}

	if err := r.analyses.Upsert(ctx, postID, categoryID, v); err != nil {
		r.compensate(ctx, postID, categoryID, v, prior)
		return fmt.Errorf("failed to store analysis: %w", err)
	}

	slog.DebugContext(ctx, "Analysis recorded", "post_id", postID, "category_id", categoryID, "dominant", v.Dominant().String(), "corrected", prior != nil)
	return nil
}

// Remove reverts the post's stored analysis and deletes it.
func (r *AnalysisRecorder) Remove(ctx context.Context, postID uuid.UUID) error {
	prior, err := r.analyses.Get(ctx, postID)
	if err != nil {
		return err
	}

	if err := r.stats.RevertAnalysis(ctx, prior.CategoryID, prior.Scores); err != nil {
		return err
	}
	if err := r.analyses.Delete(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	slog.DebugContext(ctx, "Analysis removed", "post_id", postID, "category_id", prior.CategoryID)
	return nil
}

// compensate undoes a write whose vector could not be stored: the new vector
// is reverted and the prior one, if any, is applied again where it was. The
// accumulator then matches the still-stored analysis.
func (r *AnalysisRecorder) compensate(ctx context.Context, postID uuid.UUID, categoryID int64, v domain.Vector, prior *domain.PostAnalysis) {
	if err := r.stats.RevertAnalysis(ctx, categoryID, v); err != nil {
		slog.ErrorContext(ctx, "Failed to compensate unstored analysis", "post_id", postID, "category_id", categoryID, "error", err)
		return
	}
	if prior == nil {
		return
	}
	if err := r.stats.ApplyAnalysis(ctx, prior.CategoryID, prior.Scores); err != nil {
		slog.ErrorContext(ctx, "Failed to restore prior analysis", "post_id", postID, "category_id", prior.CategoryID, "error", err)
	}
}
