// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ensure Redis implements Backend at compile time.
var _ Backend = (*Redis)(nil)

// Redis implements Backend against a redis server.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the redis server at addr and verifies the connection
// with a ping.
func NewRedis(
	ctx context.Context,
	addr string,
	password string,
	db int,
) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     100,
		MinIdleConns: 10,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// Get returns the value for key, or ErrNotFound on a miss.
func (r *Redis) Get(
	ctx context.Context,
	key string,
) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return value, nil
}

// Set stores value under key with the given TTL.
func (r *Redis) Set(
	ctx context.Context,
	key string,
	value []byte,
	ttl time.Duration,
) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes the given keys.
func (r *Redis) Delete(
	ctx context.Context,
	keys ...string,
) error {
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// MGet returns one slot per requested key; a nil slot is a miss.
func (r *Redis) MGet(
	ctx context.Context,
	keys ...string,
) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	raw, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	values := make([][]byte, len(keys))
	for i, v := range raw {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			values[i] = []byte(s)
		}
	}

	return values, nil
}

// Keys returns all keys matching a glob pattern. KEYS (not SCAN) is used
// deliberately to match the stated backend contract.
func (r *Redis) Keys(
	ctx context.Context,
	pattern string,
) ([]string, error) {
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys: %w", err)
	}

	return keys, nil
}

// Incr atomically increments the integer value at key, creating it at 1.
func (r *Redis) Incr(
	ctx context.Context,
	key string,
) (int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}

	return count, nil
}

// Expire sets the TTL for an existing key.
func (r *Redis) Expire(
	ctx context.Context,
	key string,
	ttl time.Duration,
) error {
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}

	return nil
}

// ExpireAt sets an absolute expiry for an existing key.
func (r *Redis) ExpireAt(
	ctx context.Context,
	key string,
	at time.Time,
) error {
	if err := r.client.ExpireAt(ctx, key, at).Err(); err != nil {
		return fmt.Errorf("redis expireat: %w", err)
	}

	return nil
}

// TTL returns the remaining TTL for key.
func (r *Redis) TTL(
	ctx context.Context,
	key string,
) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl: %w", err)
	}

	return ttl, nil
}

// Close releases the underlying client connections.
func (r *Redis) Close() error {
	return r.client.Close()
}
