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

package cache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/retr0h/shopapi/internal/cache"
)

// brokenBackend fails every operation, standing in for an unreachable
// redis.
type brokenBackend struct{}

var _ cache.Backend = (*brokenBackend)(nil)

var errBackendDown = fmt.Errorf("backend unavailable")

func (b *brokenBackend) Get(
	_ context.Context,
	_ string,
) ([]byte, error) {
	return nil, errBackendDown
}

func (b *brokenBackend) Set(
	_ context.Context,
	_ string,
	_ []byte,
	_ time.Duration,
) error {
	return errBackendDown
}

func (b *brokenBackend) Delete(
	_ context.Context,
	_ ...string,
) error {
	return errBackendDown
}

func (b *brokenBackend) MGet(
	_ context.Context,
	keys ...string,
) ([][]byte, error) {
	return nil, errBackendDown
}

func (b *brokenBackend) Keys(
	_ context.Context,
	_ string,
) ([]string, error) {
	return nil, errBackendDown
}

func (b *brokenBackend) Incr(
	_ context.Context,
	_ string,
) (int64, error) {
	return 0, errBackendDown
}

func (b *brokenBackend) Expire(
	_ context.Context,
	_ string,
	_ time.Duration,
) error {
	return errBackendDown
}

func (b *brokenBackend) ExpireAt(
	_ context.Context,
	_ string,
	_ time.Time,
) error {
	return errBackendDown
}

func (b *brokenBackend) TTL(
	_ context.Context,
	_ string,
) (time.Duration, error) {
	return 0, errBackendDown
}
