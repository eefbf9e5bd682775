package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-unlock-service/internal/domain"
	"quiz-unlock-service/internal/infra/memory"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuestionLoader: memory.NewQuestionStore(sampleQuestions()...)}
	cache := NewQuestionCache(newClient(mr), loader, "memory", time.Minute)
	ctx := context.Background()

	q, ok, err := cache.QuestionAt(ctx, 1)
	if err != nil || !ok || q.ID != "q2" {
		t.Fatalf("question at 1: %+v ok=%v err=%v", q, ok, err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls.Load())
	}
	if !mr.Exists("question:memory:q2") || !mr.Exists("question:memory:pos:1") {
		t.Fatalf("expected question keys in redis")
	}

	// Second lookups should hit cache, loader not incremented.
	cached, ok, _ := cache.QuestionByID(ctx, "q2")
	if !ok || cached.CorrectAnswer != "A" || len(cached.Options) != 2 {
		t.Fatalf("unexpected cached question %+v", cached)
	}
	_, _, _ = cache.QuestionAt(ctx, 1)
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls.Load())
	}
}

func TestQuestionCacheMissFallsThrough(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewQuestionCache(newClient(mr), memory.NewQuestionStore(sampleQuestions()...), "memory", time.Minute)
	if _, ok, err := cache.QuestionByID(context.Background(), "nope"); ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
	if mr.Exists("question:memory:nope") {
		t.Fatalf("misses must not be cached")
	}
}

func TestQuestionCacheNamespacesByBackend(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	ctx := context.Background()
	client := newClient(mr)

	samples := NewQuestionCache(client, memory.NewQuestionStore(sampleQuestions()...), "redis", time.Minute)
	if q, ok, err := samples.QuestionAt(ctx, 0); err != nil || !ok || q.ID != "q1" {
		t.Fatalf("sample question at 0: %+v ok=%v err=%v", q, ok, err)
	}

	// Same Redis, different backend: the earlier entries must not leak through.
	imported := []domain.Question{{ID: "p1", Prompt: "Capital of Spain?", Options: []domain.Option{{Key: "A", Text: "Madrid"}, {Key: "B", Text: "Bilbao"}}, CorrectAnswer: "A"}}
	persisted := NewQuestionCache(client, memory.NewQuestionStore(imported...), "postgres", time.Minute)
	q, ok, err := persisted.QuestionAt(ctx, 0)
	if err != nil || !ok || q.ID != "p1" {
		t.Fatalf("expected p1 from the new backend, got %+v ok=%v err=%v", q, ok, err)
	}
	if _, ok, _ := persisted.QuestionByID(ctx, "q1"); ok {
		t.Fatalf("question cached under another backend must not be served")
	}
}

type countingLoader struct {
	QuestionLoader
	calls atomic.Int32
}

func (l *countingLoader) QuestionAt(ctx context.Context, index int) (domain.Question, bool, error) {
	l.calls.Add(1)
	return l.QuestionLoader.QuestionAt(ctx, index)
}

func (l *countingLoader) QuestionByID(ctx context.Context, id string) (domain.Question, bool, error) {
	l.calls.Add(1)
	return l.QuestionLoader.QuestionByID(ctx, id)
}

func sampleQuestions() []domain.Question {
	opts := []domain.Option{{Key: "A", Text: "3"}, {Key: "B", Text: "4"}}
	return []domain.Question{
		{ID: "q1", Prompt: "What is 2 + 2?", Options: opts, CorrectAnswer: "B"},
		{ID: "q2", Prompt: "What is 1 + 2?", Options: opts, CorrectAnswer: "A"},
	}
}
