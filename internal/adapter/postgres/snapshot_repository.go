package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

type SnapshotRepo struct {
	pool *pgxpool.Pool
}

var _ domain.SnapshotRepository = (*SnapshotRepo)(nil)

func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

func (r *SnapshotRepo) Save(ctx context.Context, s domain.Snapshot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO category_snapshots (category_id, score, comment_count, created_at)
		VALUES ($1, $2, $3, $4)`, s.CategoryID, s.Score, s.CommentCount, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save snapshot for category %d: %w", s.CategoryID, err)
	}
	return nil
}

func (r *SnapshotRepo) LatestBefore(ctx context.Context, cutoff time.Time) (map[int64]domain.Snapshot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (category_id) id, category_id, score, comment_count, created_at
		FROM category_snapshots
		WHERE created_at < $1
		ORDER BY category_id, created_at DESC, id DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots before %s: %w", cutoff, err)
	}

	snaps, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Snapshot])
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshots: %w", err)
	}

	out := make(map[int64]domain.Snapshot, len(snaps))
	for _, s := range snaps {
		out[s.CategoryID] = s
	}
	return out, nil
}
