package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-unlock-service/internal/domain"
)

// QuestionLoader fetches questions from a backing store (e.g., Postgres).
type QuestionLoader interface {
	QuestionAt(ctx context.Context, index int) (domain.Question, bool, error)
	QuestionByID(ctx context.Context, id string) (domain.Question, bool, error)
}

// QuestionCache caches questions in Redis and falls back to a loader on cache miss.
// Questions are stored as: SET question:{namespace}:{id} {json}
// Positions are stored as: SET question:{namespace}:pos:{index} {id}
// The namespace names the loader's backend so switching backends never serves stale entries.
// Cache errors degrade to the loader; only loader errors reach the caller.
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ns     string
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, namespace string, ttl time.Duration) *QuestionCache {
	if namespace == "" {
		namespace = "default"
	}
	return &QuestionCache{
		client: client,
		loader: loader,
		ns:     namespace,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type lookup struct {
	question domain.Question
	found    bool
}

func (c *QuestionCache) QuestionAt(ctx context.Context, index int) (domain.Question, bool, error) {
	if id, err := c.client.Get(ctx, c.posKey(index)).Result(); err == nil {
		if q, ok := c.cachedQuestion(ctx, id); ok {
			return q, true, nil
		}
	}

	result, err, _ := c.sf.Do(c.posKey(index), func() (interface{}, error) {
		q, found, err := c.loader.QuestionAt(ctx, index)
		if err != nil || !found {
			return lookup{}, err
		}
		c.fill(ctx, q, index)
		return lookup{question: q, found: true}, nil
	})
	if err != nil {
		return domain.Question{}, false, err
	}
	l := result.(lookup)
	return l.question, l.found, nil
}

func (c *QuestionCache) QuestionByID(ctx context.Context, id string) (domain.Question, bool, error) {
	if q, ok := c.cachedQuestion(ctx, id); ok {
		return q, true, nil
	}

	result, err, _ := c.sf.Do(c.questionKey(id), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if q, ok := c.cachedQuestion(ctx, id); ok {
			return lookup{question: q, found: true}, nil
		}
		q, found, err := c.loader.QuestionByID(ctx, id)
		if err != nil || !found {
			return lookup{}, err
		}
		c.fill(ctx, q, -1)
		return lookup{question: q, found: true}, nil
	})
	if err != nil {
		return domain.Question{}, false, err
	}
	l := result.(lookup)
	return l.question, l.found, nil
}

func (c *QuestionCache) cachedQuestion(ctx context.Context, id string) (domain.Question, bool) {
	raw, err := c.client.Get(ctx, c.questionKey(id)).Bytes()
	if err != nil {
		return domain.Question{}, false
	}
	var q domain.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Question{}, false
	}
	return q, true
}

func (c *QuestionCache) fill(ctx context.Context, q domain.Question, index int) {
	raw, err := json.Marshal(q)
	if err != nil {
		return
	}
	ttl := c.ttlWithJitter()
	pipe := c.client.Pipeline()
	pipe.Set(ctx, c.questionKey(q.ID), raw, ttl)
	if index >= 0 {
		pipe.Set(ctx, c.posKey(index), q.ID, ttl)
	}
	// best-effort; a failed fill only costs another loader round trip
	_, _ = pipe.Exec(ctx)
}

func (c *QuestionCache) questionKey(id string) string {
	return "question:" + c.ns + ":" + id
}

func (c *QuestionCache) posKey(index int) string {
	return "question:" + c.ns + ":pos:" + strconv.Itoa(index)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
