package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-unlock-service/internal/domain"
)

// UserStore reads and conditionally updates progress columns of the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) CreateUser(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID)
	if err != nil {
		return domain.StoreError("create user", err)
	}
	return nil
}

func (s *UserStore) GetProgress(ctx context.Context, userID string) (domain.UserProgress, error) {
	progress := domain.UserProgress{UserID: userID}
	var ts *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT last_question_index, last_question_timestamp FROM users WHERE id=$1`, userID,
	).Scan(&progress.LastQuestionIndex, &ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProgress{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserProgress{}, domain.StoreError("get progress", err)
	}
	if ts != nil {
		utc := ts.UTC()
		progress.LastQuestionTimestamp = &utc
	}
	return progress, nil
}

// AdvanceProgress applies only while index and timestamp still hold the values
// the caller read, so two eligible requests cannot both advance.
func (s *UserStore) AdvanceProgress(ctx context.Context, expected domain.UserProgress, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET last_question_index = last_question_index + 1,
		    last_question_timestamp = $4
		WHERE id = $1
		  AND last_question_index = $2
		  AND last_question_timestamp IS NOT DISTINCT FROM $3`,
		expected.UserID, expected.LastQuestionIndex, expected.LastQuestionTimestamp, now,
	)
	if err != nil {
		return false, domain.StoreError("advance progress", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := s.GetProgress(ctx, expected.UserID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *UserStore) TouchTimestamp(ctx context.Context, userID string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET last_question_timestamp = GREATEST(COALESCE(last_question_timestamp, $2), $2)
		WHERE id = $1`,
		userID, now,
	)
	if err != nil {
		return domain.StoreError("touch timestamp", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
