package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any non-miss Redis failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Redis stores session keys under "<prefix>:<key>" in a Redis instance.
//
// A non-zero ttl bounds how long stale tokens linger when a process dies without
// logging out; each Set refreshes it.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "gosession"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{
		client:    client,
		keyPrefix: prefix,
		ttl:       ttl,
	}
}

func (r *Redis) key(k string) string {
	return r.keyPrefix + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %v", ErrRedisUnavailable, key, err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrRedisUnavailable, key, err)
	}
	return nil
}

// Remove deletes all keys in one pipeline round trip. Missing keys are not errors.
func (r *Redis) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, k := range keys {
		pipe.Del(ctx, r.key(k))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: remove: %v", ErrRedisUnavailable, err)
	}
	return nil
}
