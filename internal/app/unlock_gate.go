package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"quiz-unlock-service/internal/domain"
)

// DefaultCooldown is the observed wait between two issued questions.
const DefaultCooldown = 18 * time.Hour

// maxAdvanceAttempts bounds how often a lost compare-and-swap is re-decided.
const maxAdvanceAttempts = 3

// UserStore abstracts where per-user progress lives (in-memory, Redis, Postgres).
type UserStore interface {
	GetProgress(ctx context.Context, userID string) (domain.UserProgress, error)
	// AdvanceProgress increments the index and stamps now only if the stored
	// progress still equals expected. It reports whether the update applied.
	AdvanceProgress(ctx context.Context, expected domain.UserProgress, now time.Time) (bool, error)
	// TouchTimestamp sets the timestamp to now without ever moving it backwards.
	TouchTimestamp(ctx context.Context, userID string, now time.Time) error
	CreateUser(ctx context.Context, userID string) error
}

// QuestionStore reads questions in their stable global order.
type QuestionStore interface {
	QuestionAt(ctx context.Context, index int) (domain.Question, bool, error)
	QuestionByID(ctx context.Context, id string) (domain.Question, bool, error)
}

// UnlockGate decides whether a user may receive the next question.
type UnlockGate struct {
	users     UserStore
	questions QuestionStore
	cooldown  time.Duration
	now       func() time.Time
	log       *zap.Logger
}

func NewUnlockGate(users UserStore, questions QuestionStore, cooldown time.Duration, log *zap.Logger) *UnlockGate {
	return NewUnlockGateWithClock(users, questions, cooldown, log, time.Now)
}

// NewUnlockGateWithClock allows deterministic timestamps in tests.
func NewUnlockGateWithClock(users UserStore, questions QuestionStore, cooldown time.Duration, log *zap.Logger, now func() time.Time) *UnlockGate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UnlockGate{
		users:     users,
		questions: questions,
		cooldown:  cooldown,
		now:       now,
		log:       log.With(zap.String("component", "unlock_gate")),
	}
}

// Cooldown returns the configured wait between issued questions.
func (g *UnlockGate) Cooldown() time.Duration {
	return g.cooldown
}

// RequestNextQuestion issues the next unseen question if the cool-down elapsed.
func (g *UnlockGate) RequestNextQuestion(ctx context.Context, userID string) (domain.UnlockResult, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.UnlockResult{}, &domain.ValidationError{Field: "userId", Reason: "required"}
	}

	for attempt := 0; attempt < maxAdvanceAttempts; attempt++ {
		progress, err := g.users.GetProgress(ctx, userID)
		if err != nil {
			return domain.UnlockResult{}, err
		}

		now := g.now()
		if next, waiting := g.nextUnlock(progress, now); waiting {
			return waitingResult(next, now), nil
		}

		question, ok, err := g.questions.QuestionAt(ctx, progress.LastQuestionIndex)
		if err != nil {
			return domain.UnlockResult{}, err
		}
		if !ok {
			return domain.UnlockResult{
				Outcome: domain.OutcomeExhausted,
				Message: "No more questions available. You have answered them all!",
			}, nil
		}

		advanced, err := g.users.AdvanceProgress(ctx, progress, now)
		if err != nil {
			return domain.UnlockResult{}, err
		}
		if advanced {
			g.log.Info("question issued",
				zap.String("user_id", userID),
				zap.String("question_id", question.ID),
				zap.Int("index", progress.LastQuestionIndex),
			)
			return domain.UnlockResult{
				Outcome:      domain.OutcomeIssued,
				Question:     &question,
				NextUnlockAt: now.Add(g.cooldown),
			}, nil
		}
		// Another request changed the progress between read and write; decide again.
		g.log.Debug("progress changed concurrently", zap.String("user_id", userID), zap.Int("attempt", attempt))
	}
	return domain.UnlockResult{}, fmt.Errorf("advance progress for %s: %w", userID, errContended)
}

// SubmitAnswer scores an answer and restarts the user's cool-down.
// It never advances the progress index.
func (g *UnlockGate) SubmitAnswer(ctx context.Context, userID, questionID, answer string) (domain.SubmitResult, error) {
	if strings.TrimSpace(questionID) == "" {
		return domain.SubmitResult{}, &domain.ValidationError{Field: "questionId", Reason: "required"}
	}
	if strings.TrimSpace(answer) == "" {
		return domain.SubmitResult{}, &domain.ValidationError{Field: "answer", Reason: "required"}
	}

	if _, err := g.users.GetProgress(ctx, userID); err != nil {
		return domain.SubmitResult{}, err
	}

	question, ok, err := g.questions.QuestionByID(ctx, questionID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if !ok {
		return domain.SubmitResult{}, domain.ErrQuestionNotFound
	}

	correct := question.IsCorrect(answer)
	if err := g.users.TouchTimestamp(ctx, userID, g.now()); err != nil {
		return domain.SubmitResult{}, err
	}

	g.log.Info("answer submitted",
		zap.String("user_id", userID),
		zap.String("question_id", questionID),
		zap.Bool("correct", correct),
	)
	return domain.SubmitResult{
		QuestionID:    question.ID,
		IsCorrect:     correct,
		CorrectAnswer: question.CorrectAnswer,
	}, nil
}

// Status reports the user's cool-down without changing anything.
func (g *UnlockGate) Status(ctx context.Context, userID string) (domain.UnlockStatus, error) {
	progress, err := g.users.GetProgress(ctx, userID)
	if err != nil {
		return domain.UnlockStatus{}, err
	}
	now := g.now()
	status := domain.UnlockStatus{
		UserID:          userID,
		Eligible:        true,
		QuestionsIssued: progress.LastQuestionIndex,
	}
	if next, waiting := g.nextUnlock(progress, now); waiting {
		status.Eligible = false
		status.NextUnlockAt = &next
		status.SecondsLeft = secondsUntil(next, now)
	}
	return status, nil
}

// nextUnlock returns when the user becomes eligible and whether that is still in the future.
func (g *UnlockGate) nextUnlock(progress domain.UserProgress, now time.Time) (time.Time, bool) {
	if progress.LastQuestionTimestamp == nil {
		return time.Time{}, false
	}
	next := progress.LastQuestionTimestamp.Add(g.cooldown)
	return next, now.Before(next)
}

func waitingResult(next, now time.Time) domain.UnlockResult {
	left := secondsUntil(next, now)
	return domain.UnlockResult{
		Outcome:      domain.OutcomeWaiting,
		NextUnlockAt: next,
		SecondsLeft:  left,
		Message:      fmt.Sprintf("Please wait %s before the next question unlocks.", time.Duration(left)*time.Second),
	}
}

// secondsUntil rounds up so a waiting user never sees zero seconds left.
func secondsUntil(next, now time.Time) int64 {
	d := next.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}

var errContended = errors.New("progress update contended")
