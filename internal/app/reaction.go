package app

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

// ReactionAction is what a toggle did to a user's reaction.
type ReactionAction string

const (
	ReactionCreated  ReactionAction = "created"
	ReactionRemoved  ReactionAction = "removed"
	ReactionSwitched ReactionAction = "switched"
)

// maxToggleAttempts bounds how often Toggle re-reads the selection after
// losing a compare-and-set to another writer.
const maxToggleAttempts = 3

const toggleLockStripes = 64

// ReactionToggler maintains one reaction emotion per user per post.
//
// A toggle first claims the selection change in the store with a
// compare-and-set and only then writes the accumulator. A failed accumulator
// write rolls the claim back, and a failed claim writes nothing, so the
// accumulator counts a reaction exactly when a selection is stored.
type ReactionToggler struct {
	stats     *StatsService
	reactions domain.ReactionStore
	locks     [toggleLockStripes]sync.Mutex
}

func NewReactionToggler(stats *StatsService, reactions domain.ReactionStore) *ReactionToggler {
	return &ReactionToggler{stats: stats, reactions: reactions}
}

// Toggle selects e for the user. Selecting the current emotion again removes
// the reaction; selecting a different one switches it. Toggles for the same
// post and user are serialized within the process; across instances the
// store's compare-and-set decides, and ErrReactionConflict is returned if the
// selection keeps changing underneath.
func (t *ReactionToggler) Toggle(ctx context.Context, postID, userID uuid.UUID, categoryID int64, e domain.Emotion) (ReactionAction, error) {
	if !e.Valid() {
		return "", fmt.Errorf("%w: %d", domain.ErrUnknownEmotion, int(e))
	}

	mu := t.lockFor(postID, userID)
	mu.Lock()
	defer mu.Unlock()

	for range maxToggleAttempts {
		current, ok, err := t.reactions.Current(ctx, postID, userID)
		if err != nil {
			return "", fmt.Errorf("failed to load current reaction: %w", err)
		}

		action := nextAction(current, ok, e)
		claimed, err := t.claim(ctx, postID, userID, action, current, e)
		if err != nil {
			return "", fmt.Errorf("failed to store reaction: %w", err)
		}
		if !claimed {
			continue
		}

		if err := t.write(ctx, categoryID, action, current, e); err != nil {
			t.unclaim(ctx, postID, userID, action, current, e)
			return "", err
		}

		slog.DebugContext(ctx, "Reaction toggled", "post_id", postID, "user_id", userID, "emotion", e.String(), "action", string(action))
		return action, nil
	}
	return "", fmt.Errorf("post %s user %s: %w", postID, userID, domain.ErrReactionConflict)
}

func nextAction(current domain.Emotion, ok bool, e domain.Emotion) ReactionAction {
	switch {
	case !ok:
		return ReactionCreated
	case current == e:
		return ReactionRemoved
	default:
		return ReactionSwitched
	}
}

func (t *ReactionToggler) claim(ctx context.Context, postID, userID uuid.UUID, action ReactionAction, current, e domain.Emotion) (bool, error) {
	switch action {
	case ReactionCreated:
		return t.reactions.Create(ctx, postID, userID, e)
	case ReactionRemoved:
		return t.reactions.Remove(ctx, postID, userID, e)
	default:
		return t.reactions.Replace(ctx, postID, userID, current, e)
	}
}

func (t *ReactionToggler) write(ctx context.Context, categoryID int64, action ReactionAction, current, e domain.Emotion) error {
	switch action {
	case ReactionCreated:
		return t.stats.ApplyReaction(ctx, categoryID, e)
	case ReactionRemoved:
		return t.stats.RevertReaction(ctx, categoryID, e)
	default:
		return t.stats.SwitchReaction(ctx, categoryID, current, e)
	}
}

// unclaim restores the selection a failed accumulator write had claimed.
func (t *ReactionToggler) unclaim(ctx context.Context, postID, userID uuid.UUID, action ReactionAction, current, e domain.Emotion) {
	var (
		restored bool
		err      error
	)
	switch action {
	case ReactionCreated:
		restored, err = t.reactions.Remove(ctx, postID, userID, e)
	case ReactionRemoved:
		restored, err = t.reactions.Create(ctx, postID, userID, e)
	default:
		restored, err = t.reactions.Replace(ctx, postID, userID, e, current)
	}
	if err != nil || !restored {
		slog.ErrorContext(ctx, "Failed to restore reaction after stats write failed",
			"post_id", postID, "user_id", userID, "action", string(action), "restored", restored, "error", err)
	}
}

func (t *ReactionToggler) lockFor(postID, userID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write(postID[:])
	_, _ = h.Write(userID[:])
	return &t.locks[h.Sum32()%toggleLockStripes]
}
