package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

type reactionKey struct {
	postID uuid.UUID
	userID uuid.UUID
}

// ReactionStore keeps each user's current reaction per post in memory.
type ReactionStore struct {
	mu        sync.RWMutex
	reactions map[reactionKey]domain.Emotion
}

var _ domain.ReactionStore = (*ReactionStore)(nil)

func NewReactionStore() *ReactionStore {
	return &ReactionStore{reactions: make(map[reactionKey]domain.Emotion)}
}

func (s *ReactionStore) Current(_ context.Context, postID, userID uuid.UUID) (domain.Emotion, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.reactions[reactionKey{postID, userID}]
	return e, ok, nil
}

func (s *ReactionStore) Create(_ context.Context, postID, userID uuid.UUID, e domain.Emotion) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := reactionKey{postID, userID}
	if _, ok := s.reactions[k]; ok {
		return false, nil
	}
	s.reactions[k] = e
	return true, nil
}

func (s *ReactionStore) Replace(_ context.Context, postID, userID uuid.UUID, from, to domain.Emotion) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := reactionKey{postID, userID}
	if cur, ok := s.reactions[k]; !ok || cur != from {
		return false, nil
	}
	s.reactions[k] = to
	return true, nil
}

func (s *ReactionStore) Remove(_ context.Context, postID, userID uuid.UUID, e domain.Emotion) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := reactionKey{postID, userID}
	if cur, ok := s.reactions[k]; !ok || cur != e {
		return false, nil
	}
	delete(s.reactions, k)
	return true, nil
}
