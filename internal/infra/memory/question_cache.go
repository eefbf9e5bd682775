package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-unlock-service/internal/domain"
)

// QuestionLoader fetches questions from a backing store (e.g., Postgres).
type QuestionLoader interface {
	QuestionAt(ctx context.Context, index int) (domain.Question, bool, error)
	QuestionByID(ctx context.Context, id string) (domain.Question, bool, error)
}

// QuestionCache caches questions with TTL to avoid repeated DB hits.
// Misses are never cached so newly appended questions show up immediately.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	byID  map[string]cachedQuestion
	byPos map[int]cachedQuestion
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

type lookup struct {
	question domain.Question
	found    bool
}

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		byID:   make(map[string]cachedQuestion),
		byPos:  make(map[int]cachedQuestion),
	}
}

func (c *QuestionCache) QuestionAt(ctx context.Context, index int) (domain.Question, bool, error) {
	if q, ok := c.cached(func() (cachedQuestion, bool) { e, ok := c.byPos[index]; return e, ok }); ok {
		return q, true, nil
	}

	result, err, _ := c.sf.Do("pos:"+strconv.Itoa(index), func() (interface{}, error) {
		q, found, err := c.loader.QuestionAt(ctx, index)
		if err != nil || !found {
			return lookup{}, err
		}
		c.store(q, index)
		return lookup{question: q, found: true}, nil
	})
	if err != nil {
		return domain.Question{}, false, err
	}
	l := result.(lookup)
	return l.question, l.found, nil
}

func (c *QuestionCache) QuestionByID(ctx context.Context, id string) (domain.Question, bool, error) {
	if q, ok := c.cached(func() (cachedQuestion, bool) { e, ok := c.byID[id]; return e, ok }); ok {
		return q, true, nil
	}

	result, err, _ := c.sf.Do("id:"+id, func() (interface{}, error) {
		q, found, err := c.loader.QuestionByID(ctx, id)
		if err != nil || !found {
			return lookup{}, err
		}
		c.store(q, -1)
		return lookup{question: q, found: true}, nil
	})
	if err != nil {
		return domain.Question{}, false, err
	}
	l := result.(lookup)
	return l.question, l.found, nil
}

func (c *QuestionCache) cached(get func() (cachedQuestion, bool)) (domain.Question, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := get(); ok && entry.expiresAt.After(now) {
		return entry.question, true
	}
	return domain.Question{}, false
}

func (c *QuestionCache) store(q domain.Question, index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cachedQuestion{question: q, expiresAt: c.clock().Add(c.ttlWithJitterLocked())}
	c.byID[q.ID] = entry
	if index >= 0 {
		c.byPos[index] = entry
	}
}

func (c *QuestionCache) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
