package memory

import (
	"context"
	"sync"
	"time"

	"quiz-unlock-service/internal/domain"
)

// QuestionStore keeps questions in an append-only slice; position is insertion order.
type QuestionStore struct {
	mu    sync.RWMutex
	order []domain.Question
	byID  map[string]int
}

func NewQuestionStore(questions ...domain.Question) *QuestionStore {
	s := &QuestionStore{byID: make(map[string]int)}
	s.append(questions)
	return s
}

// Append adds questions to the end of the sequence and skips IDs already present.
// It returns how many were added.
func (s *QuestionStore) Append(_ context.Context, questions ...domain.Question) (int, error) {
	return s.append(questions), nil
}

func (s *QuestionStore) append(questions []domain.Question) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, q := range questions {
		if _, ok := s.byID[q.ID]; ok {
			continue
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = time.Now().UTC()
		}
		s.byID[q.ID] = len(s.order)
		s.order = append(s.order, q)
		added++
	}
	return added
}

func (s *QuestionStore) QuestionAt(_ context.Context, index int) (domain.Question, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.order) {
		return domain.Question{}, false, nil
	}
	return s.order[index], true, nil
}

func (s *QuestionStore) QuestionByID(_ context.Context, id string) (domain.Question, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return domain.Question{}, false, nil
	}
	return s.order[i], true, nil
}

// Count returns the number of stored questions.
func (s *QuestionStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}
