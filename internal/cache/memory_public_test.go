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
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/shopapi/internal/cache"
)

type MemoryPublicTestSuite struct {
	suite.Suite

	ctx     context.Context
	now     time.Time
	backend *cache.Memory
}

func (s *MemoryPublicTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	s.backend = cache.NewMemory(cache.WithClock(func() time.Time {
		return s.now
	}))
}

func (s *MemoryPublicTestSuite) advance(
	d time.Duration,
) {
	s.now = s.now.Add(d)
}

func (s *MemoryPublicTestSuite) TestGetSet() {
	err := s.backend.Set(s.ctx, "k1", []byte("v1"), 0)
	s.NoError(err)

	value, err := s.backend.Get(s.ctx, "k1")
	s.NoError(err)
	s.Equal([]byte("v1"), value)

	_, err = s.backend.Get(s.ctx, "missing")
	s.ErrorIs(err, cache.ErrNotFound)
}

func (s *MemoryPublicTestSuite) TestExpiry() {
	err := s.backend.Set(s.ctx, "k1", []byte("v1"), time.Minute)
	s.NoError(err)

	s.advance(59 * time.Second)
	_, err = s.backend.Get(s.ctx, "k1")
	s.NoError(err)

	s.advance(2 * time.Second)
	_, err = s.backend.Get(s.ctx, "k1")
	s.ErrorIs(err, cache.ErrNotFound)
}

func (s *MemoryPublicTestSuite) TestIncrPreservesExpiry() {
	count, err := s.backend.Incr(s.ctx, "counter")
	s.NoError(err)
	s.Equal(int64(1), count)

	err = s.backend.Expire(s.ctx, "counter", time.Minute)
	s.NoError(err)

	s.advance(30 * time.Second)
	count, err = s.backend.Incr(s.ctx, "counter")
	s.NoError(err)
	s.Equal(int64(2), count)

	ttl, err := s.backend.TTL(s.ctx, "counter")
	s.NoError(err)
	s.Equal(30*time.Second, ttl)

	s.advance(31 * time.Second)
	count, err = s.backend.Incr(s.ctx, "counter")
	s.NoError(err)
	s.Equal(int64(1), count, "expired counter restarts at one")
}

func (s *MemoryPublicTestSuite) TestExpireAt() {
	err := s.backend.Set(s.ctx, "k1", []byte("v1"), 0)
	s.NoError(err)

	boundary := s.now.Add(2 * time.Hour)
	err = s.backend.ExpireAt(s.ctx, "k1", boundary)
	s.NoError(err)

	s.advance(2*time.Hour - time.Second)
	_, err = s.backend.Get(s.ctx, "k1")
	s.NoError(err)

	s.advance(time.Second)
	_, err = s.backend.Get(s.ctx, "k1")
	s.ErrorIs(err, cache.ErrNotFound)
}

func (s *MemoryPublicTestSuite) TestTTLSentinels() {
	ttl, err := s.backend.TTL(s.ctx, "missing")
	s.NoError(err)
	s.Equal(-2*time.Second, ttl)

	err = s.backend.Set(s.ctx, "forever", []byte("v"), 0)
	s.NoError(err)

	ttl, err = s.backend.TTL(s.ctx, "forever")
	s.NoError(err)
	s.Equal(-1*time.Second, ttl)
}

func (s *MemoryPublicTestSuite) TestMGet() {
	s.NoError(s.backend.Set(s.ctx, "a", []byte("1"), 0))
	s.NoError(s.backend.Set(s.ctx, "c", []byte("3"), 0))

	values, err := s.backend.MGet(s.ctx, "a", "b", "c")
	s.NoError(err)
	s.Len(values, 3)
	s.Equal([]byte("1"), values[0])
	s.Nil(values[1])
	s.Equal([]byte("3"), values[2])
}

func (s *MemoryPublicTestSuite) TestKeys() {
	s.NoError(s.backend.Set(s.ctx, "shop:1", []byte("a"), 0))
	s.NoError(s.backend.Set(s.ctx, "shop:2", []byte("b"), 0))
	s.NoError(s.backend.Set(s.ctx, "user:1", []byte("c"), 0))

	keys, err := s.backend.Keys(s.ctx, "shop:*")
	s.NoError(err)
	s.ElementsMatch([]string{"shop:1", "shop:2"}, keys)
}

func (s *MemoryPublicTestSuite) TestDelete() {
	s.NoError(s.backend.Set(s.ctx, "k1", []byte("v1"), 0))
	s.NoError(s.backend.Delete(s.ctx, "k1", "never-existed"))

	_, err := s.backend.Get(s.ctx, "k1")
	s.ErrorIs(err, cache.ErrNotFound)
}

func TestMemoryPublicTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryPublicTestSuite))
}
