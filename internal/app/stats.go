package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/johnbyeon/feelscore-sub000/internal/adapter/metrics"
	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

const tracerName = "github.com/johnbyeon/feelscore-sub000/internal/app"

// contribution sources, used as metric labels.
const (
	sourceAnalysis = "analysis"
	sourceReaction = "reaction"
)

// StatsService applies analysis and reaction contributions to the accumulator
// at the originating category and every ancestor, and serves rankings.
type StatsService struct {
	acc        domain.StatsAccumulator
	categories domain.CategorySource
	metrics    *metrics.StatsMetrics
}

func NewStatsService(acc domain.StatsAccumulator, categories domain.CategorySource, m *metrics.StatsMetrics) *StatsService {
	return &StatsService{acc: acc, categories: categories, metrics: m}
}

// ApplyAnalysis adds every non-zero component of v at categoryID and its ancestors.
func (s *StatsService) ApplyAnalysis(ctx context.Context, categoryID int64, v domain.Vector) error {
	deltas, err := analysisDeltas(v)
	if err != nil {
		return err
	}
	return s.write(ctx, "apply", sourceAnalysis, categoryID, nil, deltas)
}

// RevertAnalysis subtracts exactly what ApplyAnalysis(categoryID, v) added.
func (s *StatsService) RevertAnalysis(ctx context.Context, categoryID int64, v domain.Vector) error {
	deltas, err := analysisDeltas(v)
	if err != nil {
		return err
	}
	return s.write(ctx, "revert", sourceAnalysis, categoryID, deltas, nil)
}

// ReapplyAnalysis replaces a previously applied vector: revert old, then apply
// new. These are two separate units; a failure between them leaves the
// category under-counted, never double-counted.
func (s *StatsService) ReapplyAnalysis(ctx context.Context, categoryID int64, old, updated domain.Vector) error {
	if err := s.RevertAnalysis(ctx, categoryID, old); err != nil {
		return fmt.Errorf("reapply: %w", err)
	}
	if err := s.ApplyAnalysis(ctx, categoryID, updated); err != nil {
		return fmt.Errorf("reapply: %w", err)
	}
	return nil
}

func (s *StatsService) ApplyReaction(ctx context.Context, categoryID int64, e domain.Emotion) error {
	d, err := reactionDelta(e)
	if err != nil {
		return err
	}
	return s.write(ctx, "apply", sourceReaction, categoryID, nil, d)
}

func (s *StatsService) RevertReaction(ctx context.Context, categoryID int64, e domain.Emotion) error {
	d, err := reactionDelta(e)
	if err != nil {
		return err
	}
	return s.write(ctx, "revert", sourceReaction, categoryID, d, nil)
}

// SwitchReaction moves one reaction from one emotion to another in a single
// unit, so no reader sees both or neither counted.
func (s *StatsService) SwitchReaction(ctx context.Context, categoryID int64, from, to domain.Emotion) error {
	revert, err := reactionDelta(from)
	if err != nil {
		return err
	}
	apply, err := reactionDelta(to)
	if err != nil {
		return err
	}
	return s.write(ctx, "switch", sourceReaction, categoryID, revert, apply)
}

func (s *StatsService) write(ctx context.Context, op, source string, categoryID int64, revert, apply []domain.EmotionDelta) (err error) {
	if len(revert) == 0 && len(apply) == 0 {
		return nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "stats."+op,
		trace.WithAttributes(
			attribute.String("source", source),
			attribute.Int64("category_id", categoryID),
			attribute.Int("revert_deltas", len(revert)),
			attribute.Int("apply_deltas", len(apply)),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		result := "ok"
		switch {
		case errors.Is(err, domain.ErrConsistencyViolation):
			result = "consistency_violation"
		case err != nil:
			result = "error"
		}
		s.metrics.Writes.WithLabelValues(source, op, result).Inc()
		s.metrics.WriteDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
	}()

	path, err := s.path(ctx, categoryID)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("path_length", len(path)))

	switch {
	case len(revert) > 0 && len(apply) > 0:
		err = s.acc.Switch(ctx, path, revert, apply)
	case len(revert) > 0:
		err = s.acc.Revert(ctx, path, revert)
	default:
		err = s.acc.Apply(ctx, path, apply)
	}
	if err != nil {
		return fmt.Errorf("%s %s at category %d: %w", op, source, categoryID, err)
	}
	return nil
}

// path returns categoryID followed by every ancestor up to its root.
func (s *StatsService) path(ctx context.Context, categoryID int64) ([]int64, error) {
	tree, err := s.categories.Tree(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load category tree: %w", err)
	}
	return tree.Ancestors(categoryID)
}

// RankByCount ranks every emotion by its count summed across all categories.
func (s *StatsService) RankByCount(ctx context.Context) ([]domain.EmotionRank, error) {
	return s.globalRanking(ctx, domain.RankByCount)
}

// RankByScore ranks every emotion by its total score summed across all categories.
func (s *StatsService) RankByScore(ctx context.Context) ([]domain.EmotionRank, error) {
	return s.globalRanking(ctx, domain.RankByScore)
}

func (s *StatsService) globalRanking(ctx context.Context, metric domain.RankMetric) ([]domain.EmotionRank, error) {
	entries, err := s.acc.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read accumulator: %w", err)
	}
	return domain.Rank(domain.AggregateByEmotion(entries), metric), nil
}

// CategoryRanking ranks one category's own emotions by total score.
func (s *StatsService) CategoryRanking(ctx context.Context, categoryID int64) ([]domain.EmotionRank, error) {
	tree, err := s.categories.Tree(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load category tree: %w", err)
	}
	if _, ok := tree.Get(categoryID); !ok {
		return nil, fmt.Errorf("category %d: %w", categoryID, domain.ErrCategoryNotFound)
	}

	entries, err := s.acc.CategoryEntries(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to read accumulator for category %d: %w", categoryID, err)
	}
	return domain.Rank(domain.AggregateByEmotion(entries), domain.RankByScore), nil
}

func analysisDeltas(v domain.Vector) ([]domain.EmotionDelta, error) {
	if !v.IsValid() {
		return nil, fmt.Errorf("analysis vector has negative scores: %w", domain.ErrInvalidScores)
	}
	deltas := v.Components()
	for _, d := range deltas {
		if !d.Emotion.IsAnalysis() {
			return nil, fmt.Errorf("%w: %s is reaction-only", domain.ErrUnknownEmotion, d.Emotion)
		}
	}
	return deltas, nil
}

func reactionDelta(e domain.Emotion) ([]domain.EmotionDelta, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownEmotion, int(e))
	}
	return []domain.EmotionDelta{{Emotion: e, Score: domain.ReactionWeight}}, nil
}
