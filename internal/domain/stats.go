package domain

import "context"

// StatEntry is the accumulator row for one (category, emotion) key.
type StatEntry struct {
	CategoryID int64
	Emotion    Emotion
	Count      int64
	TotalScore int64
}

// StatsAccumulator is the system of record for incremental per-(category, emotion)
// statistics. Every call touches all categories in path as one logical unit:
// either every level is updated or none is.
type StatsAccumulator interface {
	// Apply adds count+1 and total+score for each delta at every category in path.
	Apply(ctx context.Context, path []int64, deltas []EmotionDelta) error
	// Revert subtracts what a matching Apply added. It returns
	// ErrConsistencyViolation, without modifying anything, when any targeted
	// entry is missing or would go negative.
	Revert(ctx context.Context, path []int64, deltas []EmotionDelta) error
	// Switch reverts one set of deltas and applies another atomically.
	Switch(ctx context.Context, path []int64, revert, apply []EmotionDelta) error

	Entries(ctx context.Context) ([]StatEntry, error)
	CategoryEntries(ctx context.Context, categoryID int64) ([]StatEntry, error)
}
