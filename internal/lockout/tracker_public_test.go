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

package lockout_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/shopapi/internal/cache"
	"github.com/retr0h/shopapi/internal/lockout"
)

type TrackerPublicTestSuite struct {
	suite.Suite

	ctx     context.Context
	now     time.Time
	backend *cache.Memory
	tracker *lockout.Tracker
}

func (s *TrackerPublicTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 15, 22, 30, 0, 0, time.UTC)

	clock := func() time.Time { return s.now }
	s.backend = cache.NewMemory(cache.WithClock(clock))
	s.tracker = lockout.New(
		slog.Default(),
		s.backend,
		3,
		lockout.WithClock(clock),
	)
}

func (s *TrackerPublicTestSuite) TestBelowMaxStaysUnlocked() {
	s.NoError(s.tracker.Fail(s.ctx, "alex@example.com"))
	s.NoError(s.tracker.Fail(s.ctx, "alex@example.com"))
	s.NoError(s.tracker.Check(s.ctx, "alex@example.com"))
}

func (s *TrackerPublicTestSuite) TestLocksAtMax() {
	s.NoError(s.tracker.Fail(s.ctx, "alex@example.com"))
	s.NoError(s.tracker.Fail(s.ctx, "alex@example.com"))

	err := s.tracker.Fail(s.ctx, "alex@example.com")
	s.Error(err)

	var locked *lockout.LockedError
	s.ErrorAs(err, &locked)
	s.Equal("alex@example.com", locked.Principal)

	wantUntil := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	s.Equal(wantUntil, locked.Until, "lock runs until the next local midnight")

	err = s.tracker.Check(s.ctx, "alex@example.com")
	s.ErrorAs(err, &locked)
}

func (s *TrackerPublicTestSuite) TestClearResetsCount() {
	s.NoError(s.tracker.Fail(s.ctx, "alex@example.com"))
	s.NoError(s.tracker.Fail(s.ctx, "alex@example.com"))

	s.tracker.Clear(s.ctx, "alex@example.com")

	// The streak restarts; two more failures do not lock.
	s.NoError(s.tracker.Fail(s.ctx, "alex@example.com"))
	s.NoError(s.tracker.Fail(s.ctx, "alex@example.com"))
	s.NoError(s.tracker.Check(s.ctx, "alex@example.com"))
}

func (s *TrackerPublicTestSuite) TestUnlocksAfterBoundary() {
	for i := 0; i < 3; i++ {
		_ = s.tracker.Fail(s.ctx, "alex@example.com")
	}
	s.Error(s.tracker.Check(s.ctx, "alex@example.com"))

	// 22:30 → past midnight. The counter expires with the boundary.
	s.now = s.now.Add(2 * time.Hour)

	s.NoError(s.tracker.Check(s.ctx, "alex@example.com"))
}

func (s *TrackerPublicTestSuite) TestLateFailureLocksBriefly() {
	s.now = time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_ = s.tracker.Fail(s.ctx, "alex@example.com")
	}

	var locked *lockout.LockedError
	s.ErrorAs(s.tracker.Check(s.ctx, "alex@example.com"), &locked)
	s.Equal(time.Minute, locked.Until.Sub(s.now), "a failure just before midnight locks only until midnight")
}

func (s *TrackerPublicTestSuite) TestUnknownPrincipalCounted() {
	for i := 0; i < 3; i++ {
		_ = s.tracker.Fail(s.ctx, "nobody@example.com")
	}

	var locked *lockout.LockedError
	s.ErrorAs(s.tracker.Check(s.ctx, "nobody@example.com"), &locked)
}

func (s *TrackerPublicTestSuite) TestBackendFailureTreatedUnlocked() {
	tracker := lockout.New(slog.Default(), &failingBackend{}, 1)

	s.NoError(tracker.Check(s.ctx, "alex@example.com"))
	s.NoError(tracker.Fail(s.ctx, "alex@example.com"))
}

func TestTrackerPublicTestSuite(t *testing.T) {
	suite.Run(t, new(TrackerPublicTestSuite))
}
