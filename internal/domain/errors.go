package domain

import "errors"

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryCycle    = errors.New("category tree contains a cycle")
	ErrAnalysisNotFound = errors.New("post analysis not found")
	ErrUnknownEmotion   = errors.New("unknown emotion")
	ErrUnknownWindow    = errors.New("unknown window")
	ErrInvalidScores    = errors.New("scores must be non-negative")
	ErrReactionConflict = errors.New("reaction changed concurrently")

	// ErrConsistencyViolation signals a revert with no matching prior apply.
	// It indicates lost writes or a double revert and must never be swallowed.
	ErrConsistencyViolation = errors.New("accumulator consistency violation")
)
