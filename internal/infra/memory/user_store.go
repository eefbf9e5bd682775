package memory

import (
	"context"
	"sync"
	"time"

	"quiz-unlock-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*domain.UserProgress
}

func NewUserStore(userIDs ...string) *UserStore {
	s := &UserStore{
		users: make(map[string]*domain.UserProgress),
	}
	for _, id := range userIDs {
		s.users[id] = &domain.UserProgress{UserID: id}
	}
	return s
}

// CreateUser registers a user with zero progress; existing users are left alone.
func (s *UserStore) CreateUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		s.users[userID] = &domain.UserProgress{UserID: userID}
	}
	return nil
}

func (s *UserStore) GetProgress(_ context.Context, userID string) (domain.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	progress, ok := s.users[userID]
	if !ok {
		return domain.UserProgress{}, domain.ErrUserNotFound
	}
	return copyProgress(progress), nil
}

func (s *UserStore) AdvanceProgress(_ context.Context, expected domain.UserProgress, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	progress, ok := s.users[expected.UserID]
	if !ok {
		return false, domain.ErrUserNotFound
	}
	if progress.LastQuestionIndex != expected.LastQuestionIndex ||
		!sameInstant(progress.LastQuestionTimestamp, expected.LastQuestionTimestamp) {
		return false, nil
	}
	progress.LastQuestionIndex++
	progress.LastQuestionTimestamp = &now
	return true, nil
}

func (s *UserStore) TouchTimestamp(_ context.Context, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	progress, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if progress.LastQuestionTimestamp == nil || now.After(*progress.LastQuestionTimestamp) {
		progress.LastQuestionTimestamp = &now
	}
	return nil
}

func copyProgress(p *domain.UserProgress) domain.UserProgress {
	out := *p
	if p.LastQuestionTimestamp != nil {
		ts := *p.LastQuestionTimestamp
		out.LastQuestionTimestamp = &ts
	}
	return out
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
