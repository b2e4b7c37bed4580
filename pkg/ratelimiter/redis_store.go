package ratelimiter

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// consumeScript is the token bucket evaluated atomically inside Redis.
// KEYS[1] bucket hash; ARGV capacity, refill rate, interval ms, now ms, tokens.
var consumeScript = goredis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local requested = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
  tokens = capacity
  last = now
end

local elapsed = now - last
if elapsed >= interval then
  local intervals = math.min(math.floor(elapsed / interval), math.floor(capacity / rate) + 1)
  tokens = math.min(capacity, tokens + intervals * rate)
  last = now
end

local remaining = tokens - requested
if remaining >= 0 then
  tokens = remaining
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last', last)
redis.call('PEXPIRE', KEYS[1], interval * (math.floor(capacity / rate) + 2))
return {remaining, last + interval}
`)

// RedisStore shares buckets between service instances.
type RedisStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewRedisStore stores buckets under "<prefix>:ratelimit:<key>".
func NewRedisStore(client goredis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	if s.prefix == "" {
		return "ratelimit:" + key
	}
	return s.prefix + ":ratelimit:" + key
}

func (s *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config, now time.Time) (int, time.Time, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.key(key)},
		config.Capacity, config.RefillRate, config.RefillInterval.Milliseconds(), now.UnixMilli(), tokens,
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, errors.New("unexpected script reply"))
	}
	return int(res[0]), time.UnixMilli(res[1]), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
