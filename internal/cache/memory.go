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
	"path"
	"strconv"
	"sync"
	"time"
)

// ensure Memory implements Backend at compile time.
var _ Backend = (*Memory)(nil)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Memory is an in-process Backend used by tests and single-node deployments
// that run without redis.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryEntry

	// nowFn is injectable so tests can simulate the passage of time.
	nowFn func() time.Time
}

// MemoryOption configures a Memory backend.
type MemoryOption func(*Memory)

// WithClock overrides the backend's time source.
func WithClock(
	nowFn func() time.Time,
) MemoryOption {
	return func(m *Memory) {
		m.nowFn = nowFn
	}
}

// NewMemory creates an empty in-memory backend.
func NewMemory(
	opts ...MemoryOption,
) *Memory {
	m := &Memory{
		items: make(map[string]memoryEntry),
		nowFn: time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// live returns the entry for key if present and unexpired, pruning it
// otherwise. Callers must hold m.mu.
func (m *Memory) live(
	key string,
) (memoryEntry, bool) {
	e, ok := m.items[key]
	if !ok {
		return memoryEntry{}, false
	}

	if !e.expiresAt.IsZero() && !m.nowFn().Before(e.expiresAt) {
		delete(m.items, key)
		return memoryEntry{}, false
	}

	return e, true
}

// Get returns the value for key, or ErrNotFound on a miss.
func (m *Memory) Get(
	_ context.Context,
	key string,
) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(key)
	if !ok {
		return nil, ErrNotFound
	}

	return e.value, nil
}

// Set stores value under key with the given TTL.
func (m *Memory) Set(
	_ context.Context,
	key string,
	value []byte,
	ttl time.Duration,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.nowFn().Add(ttl)
	}
	m.items[key] = e

	return nil
}

// Delete removes the given keys.
func (m *Memory) Delete(
	_ context.Context,
	keys ...string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.items, key)
	}

	return nil
}

// MGet returns one slot per requested key; a nil slot is a miss.
func (m *Memory) MGet(
	_ context.Context,
	keys ...string,
) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	values := make([][]byte, len(keys))
	for i, key := range keys {
		if e, ok := m.live(key); ok {
			values[i] = e.value
		}
	}

	return values, nil
}

// Keys returns all unexpired keys matching a glob pattern.
func (m *Memory) Keys(
	_ context.Context,
	pattern string,
) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for key := range m.items {
		if _, ok := m.live(key); !ok {
			continue
		}
		if matched, err := path.Match(pattern, key); err == nil && matched {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Incr atomically increments the integer value at key, creating it at 1.
// An existing expiry is preserved, matching redis INCR semantics.
func (m *Memory) Incr(
	_ context.Context,
	key string,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	var expiresAt time.Time

	if e, ok := m.live(key); ok {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, err
		}
		count = parsed
		expiresAt = e.expiresAt
	}

	count++
	m.items[key] = memoryEntry{
		value:     []byte(strconv.FormatInt(count, 10)),
		expiresAt: expiresAt,
	}

	return count, nil
}

// Expire sets the TTL for an existing key.
func (m *Memory) Expire(
	_ context.Context,
	key string,
	ttl time.Duration,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(key)
	if !ok {
		return nil
	}

	e.expiresAt = m.nowFn().Add(ttl)
	m.items[key] = e

	return nil
}

// ExpireAt sets an absolute expiry for an existing key.
func (m *Memory) ExpireAt(
	_ context.Context,
	key string,
	at time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(key)
	if !ok {
		return nil
	}

	e.expiresAt = at
	m.items[key] = e

	return nil
}

// TTL returns the remaining TTL for key, or a negative duration when the
// key has no expiry or does not exist.
func (m *Memory) TTL(
	_ context.Context,
	key string,
) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(key)
	if !ok {
		return -2 * time.Second, nil
	}
	if e.expiresAt.IsZero() {
		return -1 * time.Second, nil
	}

	return e.expiresAt.Sub(m.nowFn()), nil
}
