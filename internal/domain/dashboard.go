package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Window restricts the dashboard rollup to posts created within a time range.
type Window string

const (
	WindowAll   Window = "ALL"
	WindowDay   Window = "DAY"
	WindowWeek  Window = "WEEK"
	WindowMonth Window = "MONTH"
)

// ParseWindow converts a case-insensitive window name. Empty defaults to ALL.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToUpper(strings.TrimSpace(s))); w {
	case "":
		return WindowAll, nil
	case WindowAll, WindowDay, WindowWeek, WindowMonth:
		return w, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownWindow, s)
	}
}

// Since returns the inclusive lower bound on post creation time, or nil for ALL.
func (w Window) Since(now time.Time) *time.Time {
	var d time.Duration
	switch w {
	case WindowDay:
		d = 24 * time.Hour
	case WindowWeek:
		d = 7 * 24 * time.Hour
	case WindowMonth:
		d = 30 * 24 * time.Hour
	default:
		return nil
	}
	since := now.Add(-d)
	return &since
}

// DashboardNode is one category of the rolled-up dashboard forest. Score is
// the dominant emotion's combined score, not the total across emotions.
type DashboardNode struct {
	CategoryID      int64            `json:"category_id"`
	Name            string           `json:"name"`
	DominantEmotion *Emotion         `json:"dominant_emotion"`
	Score           int              `json:"score"`
	CommentCount    int64            `json:"comment_count"`
	Trend           Trend            `json:"trend"`
	Children        []*DashboardNode `json:"children"`

	combined Vector
}

// Combined returns the node's self+descendants score vector.
func (n *DashboardNode) Combined() Vector {
	return n.combined
}

// SetCombined stores the self+descendants vector and derives dominant emotion and score.
func (n *DashboardNode) SetCombined(v Vector) {
	n.combined = v
	if e, score, ok := v.Max(); ok {
		n.DominantEmotion = &e
		n.Score = score
		return
	}
	n.DominantEmotion = nil
	n.Score = 0
}

// Flatten returns every node of the forest, parents before children.
func Flatten(forest []*DashboardNode) []*DashboardNode {
	var out []*DashboardNode
	stack := make([]*DashboardNode, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, forest[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

// ScoreSource recomputes raw per-category analysis sums directly from the
// post store, independent of the incremental accumulator.
type ScoreSource interface {
	// SumScoresByCategory sums post analysis vectors per category for posts
	// created at or after since. A nil since means no lower bound.
	SumScoresByCategory(ctx context.Context, since *time.Time) (map[int64]Vector, error)
	CountCommentsByCategory(ctx context.Context) (map[int64]int64, error)
}

// PostAnalysis is the stored analysis result for one post. CategoryID is the
// category the scores were applied at, not necessarily the post's current one.
type PostAnalysis struct {
	PostID     uuid.UUID
	CategoryID int64
	Scores     Vector
	UpdatedAt  time.Time
}

// AnalysisRepository keeps the last applied vector per post, together with
// the category it was applied at, so corrections and deletions can revert
// exactly what was applied even after the post changes category.
type AnalysisRepository interface {
	Get(ctx context.Context, postID uuid.UUID) (*PostAnalysis, error)
	Upsert(ctx context.Context, postID uuid.UUID, categoryID int64, scores Vector) error
	Delete(ctx context.Context, postID uuid.UUID) error
}

// ReactionStore tracks each user's current reaction emotion per post. Every
// mutation is a compare-and-set against the expected current selection: it
// returns false and changes nothing when the stored selection differs.
type ReactionStore interface {
	Current(ctx context.Context, postID, userID uuid.UUID) (Emotion, bool, error)
	// Create selects e only if the user has no selection.
	Create(ctx context.Context, postID, userID uuid.UUID, e Emotion) (bool, error)
	// Replace changes the selection from one emotion to another.
	Replace(ctx context.Context, postID, userID uuid.UUID, from, to Emotion) (bool, error)
	// Remove clears the selection only if it is e.
	Remove(ctx context.Context, postID, userID uuid.UUID, e Emotion) (bool, error)
}
