package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-unlock-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	Seq           int64           `bun:"seq,autoincrement"`
	ID            string          `bun:"id,pk"`
	Prompt        string          `bun:"prompt,notnull"`
	Options       []domain.Option `bun:"options,type:jsonb"`
	CorrectAnswer string          `bun:"correct_answer,notnull"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:            r.ID,
		Prompt:        r.Prompt,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

// QuestionStore reads questions in insertion order. seq is assigned by the
// database, so a later import always lands after every existing question;
// created_at is informational only.
type QuestionStore struct {
	db *bun.DB
}

// OpenDB builds a bun handle on the pure-Go pgdriver.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewQuestionStore(db *bun.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

func (s *QuestionStore) QuestionAt(ctx context.Context, index int) (domain.Question, bool, error) {
	if index < 0 {
		return domain.Question{}, false, nil
	}
	var row questionRow
	err := s.db.NewSelect().
		Model(&row).
		OrderExpr("seq ASC").
		Offset(index).
		Limit(1).
		Scan(ctx)
	return s.result(row, err, "question at")
}

func (s *QuestionStore) QuestionByID(ctx context.Context, id string) (domain.Question, bool, error) {
	var row questionRow
	err := s.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	return s.result(row, err, "question by id")
}

// Append inserts questions, skipping IDs that already exist, and returns how many were added.
func (s *QuestionStore) Append(ctx context.Context, questions ...domain.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	rows := make([]questionRow, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, questionRow{
			ID:            q.ID,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	res, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, domain.StoreError("append questions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.StoreError("append questions", err)
	}
	return int(n), nil
}

// Count returns the number of stored questions.
func (s *QuestionStore) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*questionRow)(nil)).Count(ctx)
	if err != nil {
		return 0, domain.StoreError("count questions", err)
	}
	return n, nil
}

func (s *QuestionStore) result(row questionRow, err error, op string) (domain.Question, bool, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, false, nil
	}
	if err != nil {
		return domain.Question{}, false, domain.StoreError(op, err)
	}
	return row.toDomain(), true, nil
}
