package domain

import (
	"context"
	"time"
)

// Snapshot is a point-in-time copy of a category's dominant score, written by
// the snapshot scheduler and read only for trend comparison.
type Snapshot struct {
	ID           int64
	CategoryID   int64
	Score        int
	CommentCount int64
	CreatedAt    time.Time
}

type SnapshotRepository interface {
	Save(ctx context.Context, snapshot Snapshot) error
	// LatestBefore returns, per category, the most recent snapshot created
	// strictly before cutoff. Categories without one are absent from the map.
	LatestBefore(ctx context.Context, cutoff time.Time) (map[int64]Snapshot, error)
}

// SlotLocker grants at most one instance the right to snapshot a given slot.
type SlotLocker interface {
	TryAcquire(ctx context.Context, slot time.Time) (bool, error)
	Release(ctx context.Context, slot time.Time) error
}
