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
	"log/slog"
	"sync/atomic"
	"time"
)

// Store is a cache-aside layer over a Backend. Caching is strictly a
// performance optimization: a backend failure must never surface as a fetch
// failure unless the underlying fetch itself also fails.
type Store struct {
	backend Backend
	logger  *slog.Logger

	// maxTTL is the oversized-TTL warning threshold in seconds. Values above
	// it are logged but not rejected.
	maxTTL int

	hits   atomic.Int64
	misses atomic.Int64
}

// FetchFunc loads a value from the data source on a cache miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// BatchFetchFunc loads the missing subset of a batch from the data source.
// It must return one entry per requested key it can serve.
type BatchFetchFunc func(ctx context.Context, missing []string) (map[string][]byte, error)

// NewStore creates a cache-aside Store over the given backend.
func NewStore(
	logger *slog.Logger,
	backend Backend,
	maxTTLSeconds int,
) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
		maxTTL:  maxTTLSeconds,
	}
}

// Key composes the backend key as {namespace}:{identifier}.
func Key(
	namespace string,
	identifier string,
) string {
	return fmt.Sprintf("%s:%s", namespace, identifier)
}

// checkTTL warns on TTLs above the configured threshold. TTLs are always
// whole seconds; oversized values pass through unchanged.
func (s *Store) checkTTL(
	namespace string,
	ttlSeconds int,
) {
	if s.maxTTL > 0 && ttlSeconds > s.maxTTL {
		s.logger.Warn(
			"cache ttl above threshold",
			slog.String("namespace", namespace),
			slog.Int("ttl_seconds", ttlSeconds),
			slog.Int("threshold_seconds", s.maxTTL),
		)
	}
}

// Get returns the cached value for (namespace, key) and whether it was a hit.
func (s *Store) Get(
	ctx context.Context,
	namespace string,
	key string,
) ([]byte, bool) {
	value, err := s.backend.Get(ctx, Key(namespace, key))
	if err != nil {
		if err != ErrNotFound {
			s.logger.Warn(
				"cache get failed",
				slog.String("key", Key(namespace, key)),
				slog.String("error", err.Error()),
			)
		}
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	return value, true
}

// Set stores a value under (namespace, key) for ttlSeconds.
func (s *Store) Set(
	ctx context.Context,
	namespace string,
	key string,
	value []byte,
	ttlSeconds int,
) {
	s.checkTTL(namespace, ttlSeconds)

	if err := s.backend.Set(
		ctx,
		Key(namespace, key),
		value,
		time.Duration(ttlSeconds)*time.Second,
	); err != nil {
		s.logger.Warn(
			"cache set failed",
			slog.String("key", Key(namespace, key)),
			slog.String("error", err.Error()),
		)
	}
}

// Delete removes the given identifiers from a namespace.
func (s *Store) Delete(
	ctx context.Context,
	namespace string,
	keys ...string,
) {
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, Key(namespace, key))
	}

	if err := s.backend.Delete(ctx, full...); err != nil {
		s.logger.Warn(
			"cache delete failed",
			slog.String("namespace", namespace),
			slog.String("error", err.Error()),
		)
	}
}

// InvalidatePrefix removes every key in a namespace matching prefix, using
// the backend's pattern scan.
func (s *Store) InvalidatePrefix(
	ctx context.Context,
	namespace string,
	prefix string,
) {
	pattern := Key(namespace, prefix) + "*"

	keys, err := s.backend.Keys(ctx, pattern)
	if err != nil {
		s.logger.Warn(
			"cache invalidate scan failed",
			slog.String("pattern", pattern),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(keys) == 0 {
		return
	}

	if err := s.backend.Delete(ctx, keys...); err != nil {
		s.logger.Warn(
			"cache invalidate delete failed",
			slog.String("pattern", pattern),
			slog.String("error", err.Error()),
		)
	}
}

// GetOrFetch returns the cached value on a hit. On a miss it invokes fetch,
// stores a non-nil result, and returns it. On a backend error the fetch
// result is returned unchanged; the request never fails because of the
// cache. The second return reports whether the value came from the cache.
func (s *Store) GetOrFetch(
	ctx context.Context,
	namespace string,
	key string,
	ttlSeconds int,
	fetch FetchFunc,
) ([]byte, bool, error) {
	if value, hit := s.Get(ctx, namespace, key); hit {
		return value, true, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		return nil, false, err
	}

	if value != nil {
		s.Set(ctx, namespace, key, value, ttlSeconds)
	}

	return value, false, nil
}

// BatchGetOrFetch performs one multi-key read, invokes fetch for the miss
// set only, merges the results, and populates the cache for newly-fetched
// entries asynchronously. The returned map contains every key the cache or
// the fetch could serve.
func (s *Store) BatchGetOrFetch(
	ctx context.Context,
	namespace string,
	keys []string,
	ttlSeconds int,
	fetch BatchFetchFunc,
) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))

	missing := keys
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, Key(namespace, key))
	}

	values, err := s.backend.MGet(ctx, full...)
	if err != nil {
		s.logger.Warn(
			"cache mget failed",
			slog.String("namespace", namespace),
			slog.String("error", err.Error()),
		)
	} else {
		missing = make([]string, 0, len(keys))
		for i, value := range values {
			if value == nil {
				s.misses.Add(1)
				missing = append(missing, keys[i])
				continue
			}
			s.hits.Add(1)
			result[keys[i]] = value
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := fetch(ctx, missing)
	if err != nil {
		return nil, err
	}

	for key, value := range fetched {
		result[key] = value
	}

	// Fire-and-forget population; the caller never waits on it and a failure
	// is logged, not propagated. The parent context may already be cancelled
	// when the response is flushed, so populate detached.
	go func() {
		populateCtx, cancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer cancel()

		for key, value := range fetched {
			s.Set(populateCtx, namespace, key, value, ttlSeconds)
		}
	}()

	return result, nil
}

// Stats reports cumulative hit and miss counts.
func (s *Store) Stats() (hits int64, misses int64) {
	return s.hits.Load(), s.misses.Load()
}
