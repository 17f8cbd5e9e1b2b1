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

// Package cache provides the shared key-value cache backend contract and a
// cache-aside store built on top of it.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or expired. Callers
// cannot distinguish "never cached" from "expired"; both read as a miss.
var ErrNotFound = errors.New("cache: key not found")

// Backend is the narrow contract every cache backend must satisfy. Counters
// (Incr/Expire/ExpireAt/TTL) are atomic single operations so concurrent
// requests never perform read-modify-write sequences against shared keys.
type Backend interface {
	// Get returns the value for key, or ErrNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key with the given TTL. A zero TTL means no
	// expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// MGet returns one slot per requested key; a nil slot is a miss.
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	// Keys returns all keys matching a glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Incr atomically increments the integer value at key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets the TTL for an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// ExpireAt sets an absolute expiry for an existing key.
	ExpireAt(ctx context.Context, key string, at time.Time) error
	// TTL returns the remaining TTL for key, or a negative duration when the
	// key has no expiry or does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
