package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

type AnalysisRepo struct {
	pool *pgxpool.Pool
}

var _ domain.AnalysisRepository = (*AnalysisRepo)(nil)

func NewAnalysisRepo(pool *pgxpool.Pool) *AnalysisRepo {
	return &AnalysisRepo{pool: pool}
}

func (r *AnalysisRepo) Get(ctx context.Context, postID uuid.UUID) (*domain.PostAnalysis, error) {
	var (
		a domain.PostAnalysis
		v = &a.Scores
	)
	err := r.pool.QueryRow(ctx, `
		SELECT post_id, category_id,
		       joy, sadness, anger, fear, disgust, surprise, contempt, love, neutral,
		       updated_at
		FROM post_analyses
		WHERE post_id = $1`, postID).Scan(
		&a.PostID, &a.CategoryID,
		&v[domain.Joy], &v[domain.Sadness], &v[domain.Anger], &v[domain.Fear], &v[domain.Disgust],
		&v[domain.Surprise], &v[domain.Contempt], &v[domain.Love], &v[domain.Neutral],
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis for post %s: %w", postID, err)
	}
	return &a, nil
}

// Upsert stores the analysis vector for a post and the category it was
// applied at. Reaction-only emotions are not analysis outputs and are not
// persisted.
func (r *AnalysisRepo) Upsert(ctx context.Context, postID uuid.UUID, categoryID int64, v domain.Vector) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO post_analyses (post_id, category_id, joy, sadness, anger, fear, disgust, surprise, contempt, love, neutral, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (post_id) DO UPDATE SET
			category_id = EXCLUDED.category_id,
			joy = EXCLUDED.joy, sadness = EXCLUDED.sadness, anger = EXCLUDED.anger,
			fear = EXCLUDED.fear, disgust = EXCLUDED.disgust, surprise = EXCLUDED.surprise,
			contempt = EXCLUDED.contempt, love = EXCLUDED.love, neutral = EXCLUDED.neutral,
			updated_at = now()`,
		postID, categoryID,
		v[domain.Joy], v[domain.Sadness], v[domain.Anger], v[domain.Fear], v[domain.Disgust],
		v[domain.Surprise], v[domain.Contempt], v[domain.Love], v[domain.Neutral],
	)
	if err != nil {
		return fmt.Errorf("failed to upsert analysis for post %s: %w", postID, err)
	}
	return nil
}

func (r *AnalysisRepo) Delete(ctx context.Context, postID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM post_analyses WHERE post_id = $1`, postID)
	if err != nil {
		return fmt.Errorf("failed to delete analysis for post %s: %w", postID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAnalysisNotFound
	}
	return nil
}
