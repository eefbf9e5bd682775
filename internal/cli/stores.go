package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quiz-unlock-service/internal/app"
	"quiz-unlock-service/internal/config"
	"quiz-unlock-service/internal/domain"
	"quiz-unlock-service/internal/importer"
	"quiz-unlock-service/internal/infra/memory"
	"quiz-unlock-service/internal/infra/postgres"
	redisstore "quiz-unlock-service/internal/infra/redis"
	"quiz-unlock-service/internal/logger"
)

// stores bundles the backends chosen from config.
// Postgres is the source of truth when configured, Redis otherwise, memory as a last resort.
type stores struct {
	users     app.UserStore
	questions app.QuestionStore
	appender  importer.Appender // nil when questions are not persisted
	backend   string
	closers   []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Env)
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*stores, error) {
	s := &stores{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, domain.StoreError("ping redis", err)
		}
		s.closers = append(s.closers, func() { _ = redisClient.Close() })
	}

	var loader memory.QuestionLoader
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			s.Close()
			return nil, domain.StoreError("connect postgres", err)
		}
		s.closers = append(s.closers, pool.Close)

		db := postgres.OpenDB(cfg.Postgres.URL)
		s.closers = append(s.closers, func() { _ = db.Close() })

		questions := postgres.NewQuestionStore(db)
		s.users = postgres.NewUserStore(pool)
		s.appender = questions
		s.backend = "postgres"
		loader = questions
	case redisClient != nil:
		s.users = redisstore.NewUserStore(redisClient)
		s.backend = "redis"
		loader = memory.NewQuestionStore(sampleQuestions()...)
	default:
		s.users = memory.NewUserStore()
		s.backend = "memory"
		loader = memory.NewQuestionStore(sampleQuestions()...)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		s.questions = redisstore.NewQuestionCache(redisClient, loader, s.backend, quizTTL)
	} else {
		s.questions = memory.NewQuestionCache(loader, quizTTL)
	}

	log.Info("stores ready", zap.String("backend", s.backend), zap.Bool("redis_cache", redisClient != nil))
	return s, nil
}

// sampleQuestions provides a minimal question set for runs without Postgres.
func sampleQuestions() []domain.Question {
	base := time.Date(2024, 11, 22, 0, 0, 0, 0, time.UTC)
	return []domain.Question{
		{
			ID:     "sample-1",
			Prompt: "What is 2 + 2?",
			Options: []domain.Option{
				{Key: "A", Text: "3"}, {Key: "B", Text: "4"}, {Key: "C", Text: "5"}, {Key: "D", Text: "22"},
			},
			CorrectAnswer: "B",
			CreatedAt:     base,
		},
		{
			ID:     "sample-2",
			Prompt: "Which planet is closest to the sun?",
			Options: []domain.Option{
				{Key: "A", Text: "Venus"}, {Key: "B", Text: "Earth"}, {Key: "C", Text: "Mercury"}, {Key: "D", Text: "Mars"},
			},
			CorrectAnswer: "C",
			CreatedAt:     base.Add(time.Minute),
		},
	}
}
