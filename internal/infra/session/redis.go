package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
)

const keyPrefix = "urlsentry:tab:"

// RedisStore keeps tab results in redis so several bridge processes can
// share one browser session. Values are JSON; TTL 0 means no expiry.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Connect creates a client for addr and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func tabKey(tab analysis.TabID) string {
	return fmt.Sprintf("%s%d", keyPrefix, tab)
}

func (s *RedisStore) Put(ctx context.Context, tab analysis.TabID, r *analysis.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return s.rdb.Set(ctx, tabKey(tab), data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, tab analysis.TabID) (*analysis.Result, bool, error) {
	data, err := s.rdb.Get(ctx, tabKey(tab)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var r analysis.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, fmt.Errorf("decode result: %w", err)
	}
	return &r, true, nil
}

func (s *RedisStore) Evict(ctx context.Context, tab analysis.TabID) error {
	return s.rdb.Del(ctx, tabKey(tab)).Err()
}

// Ping is used by the health checker.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
