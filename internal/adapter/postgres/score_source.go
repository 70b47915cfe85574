package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

// ScoreSource aggregates analysis vectors straight from post_analyses. It is
// the only path that can honour a time window, since the accumulator keeps
// no timestamps.
type ScoreSource struct {
	pool *pgxpool.Pool
}

var _ domain.ScoreSource = (*ScoreSource)(nil)

func NewScoreSource(pool *pgxpool.Pool) *ScoreSource {
	return &ScoreSource{pool: pool}
}

func (s *ScoreSource) SumScoresByCategory(ctx context.Context, since *time.Time) (map[int64]domain.Vector, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.category_id,
		       SUM(a.joy), SUM(a.sadness), SUM(a.anger), SUM(a.fear), SUM(a.disgust),
		       SUM(a.surprise), SUM(a.contempt), SUM(a.love), SUM(a.neutral)
		FROM post_analyses a
		JOIN posts p ON p.id = a.post_id
		WHERE $1::timestamptz IS NULL OR p.created_at >= $1::timestamptz
		GROUP BY a.category_id`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to sum scores by category: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]domain.Vector)
	for rows.Next() {
		var (
			id int64
			v  domain.Vector
		)
		if err := rows.Scan(&id,
			&v[domain.Joy], &v[domain.Sadness], &v[domain.Anger], &v[domain.Fear], &v[domain.Disgust],
			&v[domain.Surprise], &v[domain.Contempt], &v[domain.Love], &v[domain.Neutral],
		); err != nil {
			return nil, fmt.Errorf("failed to scan category sums: %w", err)
		}
		out[id] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category sums: %w", err)
	}
	return out, nil
}

func (s *ScoreSource) CountCommentsByCategory(ctx context.Context) (map[int64]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.category_id, COUNT(c.id)
		FROM comments c
		JOIN posts p ON p.id = c.post_id
		GROUP BY p.category_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments by category: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int64)
	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan comment counts: %w", err)
		}
		out[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comment counts: %w", err)
	}
	return out, nil
}
