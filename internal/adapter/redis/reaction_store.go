package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

var compareAndSetReactionScript = goredis.NewScript(`
if redis.call("HGET", KEYS[1], ARGV[1]) ~= ARGV[2] then
  return 0
end
if ARGV[3] == "" then
  redis.call("HDEL", KEYS[1], ARGV[1])
else
  redis.call("HSET", KEYS[1], ARGV[1], ARGV[3])
end
return 1
`)

// ReactionStore keeps each user's current reaction in a hash per post,
// keyed by user id.
type ReactionStore struct {
	rdb goredis.Cmdable
}

var _ domain.ReactionStore = (*ReactionStore)(nil)

func NewReactionStore(rdb goredis.Cmdable) *ReactionStore {
	return &ReactionStore{rdb: rdb}
}

func (s *ReactionStore) Current(ctx context.Context, postID, userID uuid.UUID) (domain.Emotion, bool, error) {
	raw, err := s.rdb.HGet(ctx, reactionsKey(postID), userID.String()).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read reaction: %w", err)
	}

	e, err := domain.ParseEmotion(raw)
	if err != nil {
		return 0, false, fmt.Errorf("stored reaction for post %s: %w", postID, err)
	}
	return e, true, nil
}

// Create selects e with HSETNX, so of two concurrent first selections only
// one succeeds.
func (s *ReactionStore) Create(ctx context.Context, postID, userID uuid.UUID, e domain.Emotion) (bool, error) {
	ok, err := s.rdb.HSetNX(ctx, reactionsKey(postID), userID.String(), e.String()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to create reaction: %w", err)
	}
	return ok, nil
}

func (s *ReactionStore) Replace(ctx context.Context, postID, userID uuid.UUID, from, to domain.Emotion) (bool, error) {
	return s.compareAndSet(ctx, postID, userID, from.String(), to.String())
}

func (s *ReactionStore) Remove(ctx context.Context, postID, userID uuid.UUID, e domain.Emotion) (bool, error) {
	return s.compareAndSet(ctx, postID, userID, e.String(), "")
}

// compareAndSet swaps the user's selection from expected to next; an empty
// next deletes it.
func (s *ReactionStore) compareAndSet(ctx context.Context, postID, userID uuid.UUID, expected, next string) (bool, error) {
	n, err := compareAndSetReactionScript.Run(ctx, s.rdb, []string{reactionsKey(postID)}, userID.String(), expected, next).Int()
	if err != nil {
		return false, fmt.Errorf("failed to update reaction: %w", err)
	}
	return n == 1, nil
}

func reactionsKey(postID uuid.UUID) string {
	return "reactions:" + postID.String()
}
