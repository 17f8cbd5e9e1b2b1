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
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/shopapi/internal/cache"
)

type StorePublicTestSuite struct {
	suite.Suite

	ctx     context.Context
	backend *cache.Memory
	store   *cache.Store
}

func (s *StorePublicTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = cache.NewMemory()
	s.store = cache.NewStore(slog.Default(), s.backend, 86400)
}

func (s *StorePublicTestSuite) TestKey() {
	s.Equal("shop:42", cache.Key("shop", "42"))
	s.Equal("token:abc", cache.Key("token", "abc"))
}

func (s *StorePublicTestSuite) TestGetOrFetch() {
	calls := 0
	fetch := func(_ context.Context) ([]byte, error) {
		calls++
		return []byte("fetched"), nil
	}

	value, hit, err := s.store.GetOrFetch(s.ctx, "shop", "1", 60, fetch)
	s.NoError(err)
	s.False(hit)
	s.Equal([]byte("fetched"), value)
	s.Equal(1, calls)

	value, hit, err = s.store.GetOrFetch(s.ctx, "shop", "1", 60, fetch)
	s.NoError(err)
	s.True(hit)
	s.Equal([]byte("fetched"), value)
	s.Equal(1, calls, "second read must come from the cache")

	hits, misses := s.store.Stats()
	s.Equal(int64(1), hits)
	s.Equal(int64(1), misses)
}

func (s *StorePublicTestSuite) TestGetOrFetchError() {
	fetch := func(_ context.Context) ([]byte, error) {
		return nil, fmt.Errorf("db down")
	}

	_, hit, err := s.store.GetOrFetch(s.ctx, "shop", "1", 60, fetch)
	s.Error(err)
	s.False(hit)
}

func (s *StorePublicTestSuite) TestGetOrFetchBackendFailure() {
	store := cache.NewStore(slog.Default(), &brokenBackend{}, 86400)

	value, hit, err := store.GetOrFetch(
		s.ctx,
		"shop",
		"1",
		60,
		func(_ context.Context) ([]byte, error) {
			return []byte("from-source"), nil
		},
	)
	s.NoError(err, "a broken cache must not fail the request")
	s.False(hit)
	s.Equal([]byte("from-source"), value)
}

func (s *StorePublicTestSuite) TestBatchGetOrFetch() {
	s.store.Set(s.ctx, "product", "1", []byte("cached-1"), 60)

	fetchedKeys := []string{}
	entries, err := s.store.BatchGetOrFetch(
		s.ctx,
		"product",
		[]string{"1", "2", "3"},
		60,
		func(_ context.Context, missing []string) (map[string][]byte, error) {
			fetchedKeys = missing
			out := make(map[string][]byte, len(missing))
			for _, key := range missing {
				out[key] = []byte("fetched-" + key)
			}
			return out, nil
		},
	)
	s.NoError(err)
	s.Equal([]string{"2", "3"}, fetchedKeys, "only misses reach the source")
	s.Equal([]byte("cached-1"), entries["1"])
	s.Equal([]byte("fetched-2"), entries["2"])
	s.Equal([]byte("fetched-3"), entries["3"])

	// Population is asynchronous.
	s.Eventually(func() bool {
		_, hit := s.store.Get(s.ctx, "product", "2")
		return hit
	}, time.Second, 5*time.Millisecond)
}

func (s *StorePublicTestSuite) TestInvalidatePrefix() {
	s.store.Set(s.ctx, "shop", "list:t-1", []byte("a"), 60)
	s.store.Set(s.ctx, "shop", "list:t-2", []byte("b"), 60)
	s.store.Set(s.ctx, "shop", "42", []byte("c"), 60)

	s.store.InvalidatePrefix(s.ctx, "shop", "list:")

	_, hit := s.store.Get(s.ctx, "shop", "list:t-1")
	s.False(hit)
	_, hit = s.store.Get(s.ctx, "shop", "list:t-2")
	s.False(hit)
	_, hit = s.store.Get(s.ctx, "shop", "42")
	s.True(hit, "unrelated keys survive prefix invalidation")
}

func (s *StorePublicTestSuite) TestOversizedTTLStored() {
	// TTLs above the threshold are flagged but never rejected.
	s.store.Set(s.ctx, "shop", "1", []byte("v"), 90000)

	_, hit := s.store.Get(s.ctx, "shop", "1")
	s.True(hit)
}

func TestStorePublicTestSuite(t *testing.T) {
	suite.Run(t, new(StorePublicTestSuite))
}
