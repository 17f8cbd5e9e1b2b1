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

package ratelimit_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/shopapi/internal/cache"
	"github.com/retr0h/shopapi/internal/ratelimit"
)

type LimiterPublicTestSuite struct {
	suite.Suite

	ctx     context.Context
	now     time.Time
	backend *cache.Memory
	limiter *ratelimit.Limiter
}

func (s *LimiterPublicTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	clock := func() time.Time { return s.now }
	s.backend = cache.NewMemory(cache.WithClock(clock))

	policies := map[string]ratelimit.Policy{
		ratelimit.PolicyLogin: {
			Window: time.Minute,
			Limits: map[string]int{"default": 3},
		},
		ratelimit.PolicyStandard: {
			Window: time.Minute,
			Limits: map[string]int{
				"default":  5,
				"merchant": 10,
			},
		},
	}

	s.limiter = ratelimit.New(
		slog.Default(),
		s.backend,
		policies,
		ratelimit.WithClock(clock),
	)
}

func (s *LimiterPublicTestSuite) TestCeiling() {
	for i := 0; i < 3; i++ {
		d := s.limiter.Allow(s.ctx, ratelimit.PolicyLogin, "user", "1.2.3.4")
		s.True(d.Allowed, "request %d within the ceiling", i+1)
		s.Equal(3, d.Limit)
		s.Equal(3-(i+1), d.Remaining)
	}

	d := s.limiter.Allow(s.ctx, ratelimit.PolicyLogin, "user", "1.2.3.4")
	s.False(d.Allowed, "request above the ceiling is rejected")
	s.Equal(0, d.Remaining)
	s.Positive(d.RetryAfter)
}

func (s *LimiterPublicTestSuite) TestIdentitiesIndependent() {
	for i := 0; i < 3; i++ {
		s.limiter.Allow(s.ctx, ratelimit.PolicyLogin, "user", "1.2.3.4")
	}
	s.False(s.limiter.Allow(s.ctx, ratelimit.PolicyLogin, "user", "1.2.3.4").Allowed)

	d := s.limiter.Allow(s.ctx, ratelimit.PolicyLogin, "user", "5.6.7.8")
	s.True(d.Allowed, "a different identity has its own counter")
}

func (s *LimiterPublicTestSuite) TestFreshWindow() {
	for i := 0; i < 4; i++ {
		s.limiter.Allow(s.ctx, ratelimit.PolicyLogin, "user", "1.2.3.4")
	}
	s.False(s.limiter.Allow(s.ctx, ratelimit.PolicyLogin, "user", "1.2.3.4").Allowed)

	s.now = s.now.Add(61 * time.Second)

	d := s.limiter.Allow(s.ctx, ratelimit.PolicyLogin, "user", "1.2.3.4")
	s.True(d.Allowed, "counter resets after the window expires")
	s.Equal(2, d.Remaining)
}

func (s *LimiterPublicTestSuite) TestAudienceCeilings() {
	d := s.limiter.Allow(s.ctx, ratelimit.PolicyStandard, "merchant", "m-1")
	s.Equal(10, d.Limit, "merchant gets its explicit ceiling")

	d = s.limiter.Allow(s.ctx, ratelimit.PolicyStandard, "user", "u-1")
	s.Equal(5, d.Limit, "unlisted audience falls back to default")
}

func (s *LimiterPublicTestSuite) TestUnknownPolicyFailsOpen() {
	d := s.limiter.Allow(s.ctx, "no-such-policy", "user", "1.2.3.4")
	s.True(d.Allowed)
}

func (s *LimiterPublicTestSuite) TestBackendFailureFailsOpen() {
	limiter := ratelimit.New(
		slog.Default(),
		&brokenBackend{},
		map[string]ratelimit.Policy{
			ratelimit.PolicyLogin: {
				Window: time.Minute,
				Limits: map[string]int{"default": 1},
			},
		},
	)

	for i := 0; i < 5; i++ {
		d := limiter.Allow(s.ctx, ratelimit.PolicyLogin, "user", "1.2.3.4")
		s.True(d.Allowed, "an unreachable backend must not reject traffic")
	}
}

func (s *LimiterPublicTestSuite) TestBucketKey() {
	s.Equal(
		"ratelimit:login:user:1.2.3.4",
		ratelimit.BucketKey("login", "user", "1.2.3.4"),
	)
}

func TestLimiterPublicTestSuite(t *testing.T) {
	suite.Run(t, new(LimiterPublicTestSuite))
}
