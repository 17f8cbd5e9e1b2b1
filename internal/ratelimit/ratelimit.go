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

// Package ratelimit implements a fixed-window request limiter backed by the
// shared cache backend's atomic counters.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/retr0h/shopapi/internal/cache"
)

// Well-known policy names. Policies differ by window length and ceiling;
// the same mechanism services all of them.
const (
	PolicyLogin     = "login"
	PolicyStandard  = "standard"
	PolicySensitive = "sensitive"
	PolicyBatch     = "batch"
	PolicyExport    = "export"
)

// Policy holds the window and per-audience ceilings for one policy name.
type Policy struct {
	// Window is the fixed window length.
	Window time.Duration
	// Limits maps audience to ceiling. The "default" entry applies to any
	// audience without an explicit ceiling.
	Limits map[string]int
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// LimitExceededError is returned when a request exceeds its policy ceiling.
type LimitExceededError struct {
	Policy   string
	Decision Decision
}

// Error implements the error interface.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf(
		"rate limit exceeded for policy %s, retry after %s",
		e.Policy,
		e.Decision.RetryAfter,
	)
}

// Limiter admits or rejects requests per (policy, audience, identity) key.
// Counters live in the shared backend so concurrent requests for the same
// key only ever perform atomic increments.
type Limiter struct {
	backend  cache.Backend
	logger   *slog.Logger
	policies map[string]Policy

	nowFn func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter's time source.
func WithClock(
	nowFn func() time.Time,
) Option {
	return func(l *Limiter) {
		l.nowFn = nowFn
	}
}

// New creates a Limiter with the given policy table.
func New(
	logger *slog.Logger,
	backend cache.Backend,
	policies map[string]Policy,
	opts ...Option,
) *Limiter {
	l := &Limiter{
		backend:  backend,
		logger:   logger,
		policies: policies,
		nowFn:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// BucketKey composes the counter key as {policy}:{audience}:{identity}.
func BucketKey(
	policy string,
	audience string,
	identity string,
) string {
	return fmt.Sprintf("ratelimit:%s:%s:%s", policy, audience, identity)
}

// ceiling resolves the configured ceiling for an audience under a policy.
func (p Policy) ceiling(
	audience string,
) int {
	if limit, ok := p.Limits[audience]; ok {
		return limit
	}

	return p.Limits["default"]
}

// Allow increments the bucket for (policy, audience, identity) and returns
// the admission decision. The first request for a key starts a fresh fixed
// window; a request arriving exactly at the window boundary belongs to the
// new window. Backend failures fail open: throttling is never allowed to
// take down request handling.
func (l *Limiter) Allow(
	ctx context.Context,
	policy string,
	audience string,
	identity string,
) Decision {
	p, ok := l.policies[policy]
	if !ok {
		return Decision{Allowed: true}
	}

	limit := p.ceiling(audience)
	if limit <= 0 {
		return Decision{Allowed: true}
	}

	key := BucketKey(policy, audience, identity)

	count, err := l.backend.Incr(ctx, key)
	if err != nil {
		l.logger.Warn(
			"rate limit counter unavailable, failing open",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return Decision{Allowed: true, Limit: limit}
	}

	// First hit creates the bucket; bind it to the window.
	if count == 1 {
		if err := l.backend.Expire(ctx, key, p.Window); err != nil {
			l.logger.Warn(
				"failed to bind rate limit window",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	now := l.nowFn()
	resetAt := now.Add(p.Window)
	if ttl, err := l.backend.TTL(ctx, key); err == nil && ttl > 0 {
		resetAt = now.Add(ttl)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: resetAt.Sub(now),
	}
}

// DefaultPolicies returns the built-in policy table, used when the
// configuration defines none.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		PolicyLogin: {
			Window: time.Minute,
			Limits: map[string]int{"default": 10},
		},
		PolicyStandard: {
			Window: time.Minute,
			Limits: map[string]int{
				"default":  120,
				"merchant": 240,
			},
		},
		PolicySensitive: {
			Window: time.Minute,
			Limits: map[string]int{"default": 30},
		},
		PolicyBatch: {
			Window: time.Minute,
			Limits: map[string]int{"default": 10},
		},
		PolicyExport: {
			Window: time.Hour,
			Limits: map[string]int{"default": 5},
		},
	}
}
