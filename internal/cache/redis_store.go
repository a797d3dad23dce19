package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore mirrors the cache into a single Redis hash, one field per cache key.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedisStore stores the hash under key. A positive ttl is applied to the whole hash on every
// save so an abandoned mirror eventually disappears.
func NewRedisStore(client redis.UniversalClient, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cache hash %s: %w", s.key, err)
	}

	snap := make(Snapshot, len(fields))
	for k, v := range fields {
		if e, ok := decodeEntry([]byte(v)); ok {
			snap[k] = e
		}
	}
	return snap, nil
}

func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	values := make(map[string]any, len(snap))
	for k, e := range snap {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode cache entry %q: %w", k, err)
		}
		values[k] = string(data)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
			if s.ttl > 0 {
				pipe.Expire(ctx, s.key, s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save cache hash %s: %w", s.key, err)
	}
	return nil
}
