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

// Package lockout tracks consecutive authentication failures per principal
// and imposes a time-boxed lockout.
package lockout

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/retr0h/shopapi/internal/cache"
)

// LockedError is returned when a principal is locked out. The unlock time is
// embedded so the caller can surface it to the client.
type LockedError struct {
	Principal string
	Until     time.Time
}

// Error implements the error interface.
func (e *LockedError) Error() string {
	return fmt.Sprintf(
		"account locked until %s",
		e.Until.Format(time.RFC3339),
	)
}

// Tracker counts consecutive authentication failures per principal in the
// shared backend. Reaching the maximum locks the principal until the next
// process-local midnight. Expiry is lazy: the counter's TTL is the lock
// boundary, so the locked state clears itself with no background sweep.
type Tracker struct {
	backend cache.Backend
	logger  *slog.Logger

	// maxFailures is the count at which the principal transitions to Locked.
	maxFailures int

	nowFn func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the tracker's time source.
func WithClock(
	nowFn func() time.Time,
) Option {
	return func(t *Tracker) {
		t.nowFn = nowFn
	}
}

// New creates a Tracker.
func New(
	logger *slog.Logger,
	backend cache.Backend,
	maxFailures int,
	opts ...Option,
) *Tracker {
	t := &Tracker{
		backend:     backend,
		logger:      logger,
		maxFailures: maxFailures,
		nowFn:       time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func counterKey(
	principal string,
) string {
	return "lockout:" + principal
}

// nextBoundary returns the next process-local midnight after now. A failure
// at 23:59 locks for under a minute while one at 00:01 locks for nearly a
// day; this matches the established behavior and is kept for compatibility.
func nextBoundary(
	now time.Time,
) time.Time {
	return time.Date(
		now.Year(), now.Month(), now.Day()+1,
		0, 0, 0, 0,
		now.Location(),
	)
}

// Check returns a LockedError when the principal's failure count has reached
// the maximum and the lock boundary has not passed. Backend failures are
// treated as unlocked; lockout is a control, not a correctness dependency.
func (t *Tracker) Check(
	ctx context.Context,
	principal string,
) error {
	value, err := t.backend.Get(ctx, counterKey(principal))
	if err != nil {
		if err != cache.ErrNotFound {
			t.logger.Warn(
				"lockout counter unavailable",
				slog.String("principal", principal),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	count, err := strconv.Atoi(string(value))
	if err != nil {
		return nil
	}

	if count >= t.maxFailures {
		return &LockedError{
			Principal: principal,
			Until:     nextBoundary(t.nowFn()),
		}
	}

	return nil
}

// Fail records a consecutive authentication failure for principal and
// returns a LockedError when the failure transitions the principal to
// Locked. Failures against unknown principals are counted on purpose: an
// attacker must not be able to reset counters via username enumeration.
// Every failure refreshes the counter's expiry to the next lock boundary.
func (t *Tracker) Fail(
	ctx context.Context,
	principal string,
) error {
	key := counterKey(principal)

	count, err := t.backend.Incr(ctx, key)
	if err != nil {
		t.logger.Warn(
			"failed to record login failure",
			slog.String("principal", principal),
			slog.String("error", err.Error()),
		)
		return nil
	}

	boundary := nextBoundary(t.nowFn())
	if err := t.backend.ExpireAt(ctx, key, boundary); err != nil {
		t.logger.Warn(
			"failed to bind lockout boundary",
			slog.String("principal", principal),
			slog.String("error", err.Error()),
		)
	}

	if count >= int64(t.maxFailures) {
		if count == int64(t.maxFailures) {
			t.logger.Warn(
				"account locked after repeated authentication failures",
				slog.String("category", "security"),
				slog.String("principal", principal),
				slog.Int64("failures", count),
				slog.Time("locked_until", boundary),
			)
		}

		return &LockedError{
			Principal: principal,
			Until:     boundary,
		}
	}

	return nil
}

// Clear resets the failure count after a successful authentication. It is a
// no-op for a principal with no recorded failures.
func (t *Tracker) Clear(
	ctx context.Context,
	principal string,
) {
	if err := t.backend.Delete(ctx, counterKey(principal)); err != nil {
		t.logger.Warn(
			"failed to clear login failures",
			slog.String("principal", principal),
			slog.String("error", err.Error()),
		)
	}
}
