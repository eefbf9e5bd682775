package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-unlock-service/internal/domain"
)

// UserStore keeps user progress in a Redis hash per user:
//
//	HSET user:{userID}:progress idx {lastQuestionIndex} ts {unix micros}
//
// The ts field is absent until the first issue or answer. Conditional updates
// run as Lua scripts so the compare and the write are one atomic step.
type UserStore struct {
	client *redis.Client
}

func NewUserStore(client *redis.Client) *UserStore {
	return &UserStore{client: client}
}

// advanceScript returns -1 for an unknown user, 0 when the stored progress
// no longer matches, 1 when the index was advanced.
var advanceScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local idx = redis.call('HGET', KEYS[1], 'idx') or '0'
local ts = redis.call('HGET', KEYS[1], 'ts') or ''
if idx ~= ARGV[1] or ts ~= ARGV[2] then
  return 0
end
redis.call('HINCRBY', KEYS[1], 'idx', 1)
redis.call('HSET', KEYS[1], 'ts', ARGV[3])
return 1
`)

// touchScript keeps the larger of the stored and the supplied timestamp.
var touchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local ts = redis.call('HGET', KEYS[1], 'ts')
if ts and tonumber(ts) >= tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'ts', ARGV[1])
return 1
`)

func (s *UserStore) CreateUser(ctx context.Context, userID string) error {
	if err := s.client.HSetNX(ctx, s.key(userID), "idx", 0).Err(); err != nil {
		return domain.StoreError("create user", err)
	}
	return nil
}

func (s *UserStore) GetProgress(ctx context.Context, userID string) (domain.UserProgress, error) {
	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return domain.UserProgress{}, domain.StoreError("get progress", err)
	}
	if len(fields) == 0 {
		return domain.UserProgress{}, domain.ErrUserNotFound
	}

	progress := domain.UserProgress{UserID: userID}
	if raw, ok := fields["idx"]; ok {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return domain.UserProgress{}, domain.StoreError("parse progress index", err)
		}
		progress.LastQuestionIndex = idx
	}
	if raw, ok := fields["ts"]; ok && raw != "" {
		micros, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.UserProgress{}, domain.StoreError("parse progress timestamp", err)
		}
		ts := time.UnixMicro(micros).UTC()
		progress.LastQuestionTimestamp = &ts
	}
	return progress, nil
}

func (s *UserStore) AdvanceProgress(ctx context.Context, expected domain.UserProgress, now time.Time) (bool, error) {
	expectedTS := ""
	if expected.LastQuestionTimestamp != nil {
		expectedTS = encodeMicros(*expected.LastQuestionTimestamp)
	}
	res, err := advanceScript.Run(ctx, s.client, []string{s.key(expected.UserID)},
		strconv.Itoa(expected.LastQuestionIndex), expectedTS, encodeMicros(now)).Int()
	if err != nil {
		return false, domain.StoreError("advance progress", err)
	}
	switch res {
	case -1:
		return false, domain.ErrUserNotFound
	case 1:
		return true, nil
	default:
		return false, nil
	}
}

func (s *UserStore) TouchTimestamp(ctx context.Context, userID string, now time.Time) error {
	res, err := touchScript.Run(ctx, s.client, []string{s.key(userID)}, encodeMicros(now)).Int()
	if err != nil {
		return domain.StoreError("touch timestamp", err)
	}
	if res == -1 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) key(userID string) string {
	return "user:" + userID + ":progress"
}

func encodeMicros(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro(), 10)
}
