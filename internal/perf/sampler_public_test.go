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

package perf_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/shopapi/internal/perf"
)

type SamplerPublicTestSuite struct {
	suite.Suite

	ctx     context.Context
	sampler *perf.Sampler
}

func (s *SamplerPublicTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.sampler = perf.New(
		slog.Default(),
		100*time.Millisecond,
		10,
		3,
		3,
		time.Hour,
	)
}

func (s *SamplerPublicTestSuite) TestAggregates() {
	s.sampler.Observe(s.ctx, "/shops/:id", "user", 200, 10*time.Millisecond, nil)
	s.sampler.Observe(s.ctx, "/shops/:id", "user", 200, 30*time.Millisecond, nil)
	s.sampler.Observe(s.ctx, "/shops/:id", "user", 500, 20*time.Millisecond, nil)

	report := s.sampler.Report()
	s.Equal(int64(3), report.TotalRequests)
	s.Equal(int64(1), report.TotalFailures)
	s.Equal(10*time.Millisecond, report.Min)
	s.Equal(30*time.Millisecond, report.Max)
	s.Equal(20*time.Millisecond, report.Avg)
	s.Equal(int64(2), report.Statuses[200])
	s.Equal(int64(1), report.Statuses[500])

	route := report.Routes["user /shops/:id"]
	s.Equal(int64(3), route.Count)
	s.Equal(int64(1), route.Failures)
	s.Equal(10*time.Millisecond, route.Min)
	s.Equal(30*time.Millisecond, route.Max)
}

func (s *SamplerPublicTestSuite) TestPercentiles() {
	for i := 1; i <= 10; i++ {
		s.sampler.Observe(
			s.ctx, "/r", "user", 200,
			time.Duration(i)*time.Millisecond, nil,
		)
	}

	report := s.sampler.Report()
	s.Equal(5*time.Millisecond, report.Percentiles.P50)
	s.Equal(9*time.Millisecond, report.Percentiles.P90)
	s.Equal(10*time.Millisecond, report.Percentiles.P95)
	s.Equal(10*time.Millisecond, report.Percentiles.P99)
}

func (s *SamplerPublicTestSuite) TestWindowBounded() {
	// Push 15 samples through a window of 10; only the last 10 count.
	for i := 1; i <= 15; i++ {
		s.sampler.Observe(
			s.ctx, "/r", "user", 200,
			time.Duration(i)*time.Millisecond, nil,
		)
	}

	report := s.sampler.Report()
	// Window is 6..15ms, so P50 reads the 5th sorted element.
	s.Equal(10*time.Millisecond, report.Percentiles.P50)
}

func (s *SamplerPublicTestSuite) TestSlowRequests() {
	s.sampler.Observe(s.ctx, "/fast", "user", 200, 10*time.Millisecond, nil)
	s.sampler.Observe(s.ctx, "/slow", "user", 200, 150*time.Millisecond, nil)

	report := s.sampler.Report()
	s.Len(report.SlowRequests, 1)
	s.Equal("/slow", report.SlowRequests[0].Route)

	// Capacity evicts oldest.
	for i := 0; i < 5; i++ {
		s.sampler.Observe(
			s.ctx, fmt.Sprintf("/slow-%d", i), "user", 200,
			200*time.Millisecond, nil,
		)
	}
	report = s.sampler.Report()
	s.Len(report.SlowRequests, 3)
	s.Equal("/slow-4", report.SlowRequests[2].Route)
}

func (s *SamplerPublicTestSuite) TestRecentErrors() {
	s.sampler.Observe(s.ctx, "/boom", "admin", 500, time.Millisecond, nil)
	s.sampler.Observe(
		s.ctx, "/fail", "admin", 200, time.Millisecond,
		fmt.Errorf("handler exploded"),
	)

	report := s.sampler.Report()
	s.Len(report.RecentErrors, 2)
	s.Equal("/boom", report.RecentErrors[0].Route)
	s.Equal("handler exploded", report.RecentErrors[1].Error)
}

func TestSamplerPublicTestSuite(t *testing.T) {
	suite.Run(t, new(SamplerPublicTestSuite))
}
