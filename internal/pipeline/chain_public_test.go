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

package pipeline_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"

	"github.com/retr0h/shopapi/internal/lockout"
	"github.com/retr0h/shopapi/internal/pipeline"
	"github.com/retr0h/shopapi/internal/ratelimit"
)

type ChainPublicTestSuite struct {
	suite.Suite
}

func (s *ChainPublicTestSuite) newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	return e.NewContext(req, rec), rec
}

func namedStage(
	name string,
	order *[]string,
) pipeline.Stage {
	return pipeline.Stage{
		Name: name,
		Handle: func(c echo.Context, next echo.HandlerFunc) error {
			*order = append(*order, name)
			return next(c)
		},
	}
}

func (s *ChainPublicTestSuite) TestStrictOrdering() {
	var order []string

	chain := pipeline.NewChain(slog.Default(), pipeline.AudienceUser).
		Append(namedStage("first", &order)).
		Append(namedStage("second", &order)).
		Append(namedStage("third", &order))

	c, _ := s.newContext()
	handler := chain.Middleware()(func(c echo.Context) error {
		order = append(order, "handler")
		return c.NoContent(http.StatusOK)
	})

	s.NoError(handler(c))
	s.Equal([]string{"first", "second", "third", "handler"}, order)
	s.Equal([]string{"first", "second", "third"}, chain.StageNames())
}

func (s *ChainPublicTestSuite) TestShortCircuit() {
	var order []string

	chain := pipeline.NewChain(slog.Default(), pipeline.AudienceUser).
		Append(namedStage("first", &order)).
		Append(pipeline.Stage{
			Name: "reject",
			Handle: func(c echo.Context, _ echo.HandlerFunc) error {
				order = append(order, "reject")
				return echo.NewHTTPError(http.StatusForbidden, "nope")
			},
		}).
		Append(namedStage("never", &order))

	c, _ := s.newContext()
	handler := chain.Middleware()(func(_ echo.Context) error {
		order = append(order, "handler")
		return nil
	})

	s.Error(handler(c))
	s.Equal([]string{"first", "reject"}, order, "stages after the rejection never run")
}

func (s *ChainPublicTestSuite) TestWhenPredicate() {
	var order []string

	skipAll := pipeline.When(
		func(_ echo.Context) bool { return false },
		namedStage("skipped", &order),
	)

	c, _ := s.newContext()
	chain := pipeline.NewChain(slog.Default(), pipeline.AudienceUser).Append(skipAll)
	handler := chain.Middleware()(func(c echo.Context) error {
		order = append(order, "handler")
		return c.NoContent(http.StatusOK)
	})

	s.NoError(handler(c))
	s.Equal([]string{"handler"}, order)
}

func (s *ChainPublicTestSuite) TestBoundaryRecoversPanic() {
	boundary := pipeline.Boundary(slog.Default(), pipeline.Stage{
		Name: "exploder",
		Handle: func(_ echo.Context, _ echo.HandlerFunc) error {
			panic("boom")
		},
	})

	c, rec := s.newContext()
	err := boundary.Handle(c, func(_ echo.Context) error { return nil })

	s.NoError(err, "the fault is converted to a fallback response")
	s.Equal(http.StatusInternalServerError, rec.Code)

	var body pipeline.ErrorBody
	s.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.False(body.Success)
	s.Equal("internal_error", body.Error)
	s.NotContains(rec.Body.String(), "boom", "panic detail never reaches the client")
}

func (s *ChainPublicTestSuite) TestBoundaryPassesAdmissionErrors() {
	rejection := &ratelimit.LimitExceededError{Policy: "standard"}
	boundary := pipeline.Boundary(slog.Default(), pipeline.Stage{
		Name: "limiter",
		Handle: func(_ echo.Context, _ echo.HandlerFunc) error {
			return rejection
		},
	})

	c, _ := s.newContext()
	err := boundary.Handle(c, func(_ echo.Context) error { return nil })
	s.ErrorIs(err, rejection)
}

func (s *ChainPublicTestSuite) TestRetryStopsOnNonRetryable() {
	calls := 0
	stage := pipeline.Retry(
		pipeline.Stage{
			Name: "flaky",
			Handle: func(_ echo.Context, _ echo.HandlerFunc) error {
				calls++
				return fmt.Errorf("permanent")
			},
		},
		3,
		time.Millisecond,
		func(_ error) bool { return false },
	)

	c, _ := s.newContext()
	s.Error(stage.Handle(c, func(_ echo.Context) error { return nil }))
	s.Equal(1, calls)
}

func (s *ChainPublicTestSuite) TestRetryExhaustsAttempts() {
	calls := 0
	stage := pipeline.Retry(
		pipeline.Stage{
			Name: "flaky",
			Handle: func(_ echo.Context, _ echo.HandlerFunc) error {
				calls++
				return fmt.Errorf("transient")
			},
		},
		3,
		time.Millisecond,
		func(_ error) bool { return true },
	)

	c, _ := s.newContext()
	err := stage.Handle(c, func(_ echo.Context) error { return nil })
	s.Error(err)
	s.Equal(3, calls)
}

func (s *ChainPublicTestSuite) TestResolve() {
	registry := pipeline.Registry{
		"noop": func(_ pipeline.Descriptor) (pipeline.Stage, error) {
			return pipeline.Stage{Name: "noop"}, nil
		},
	}

	chain, err := pipeline.Resolve(
		slog.Default(),
		pipeline.AudienceAdmin,
		[]pipeline.Descriptor{{Stage: "noop"}},
		registry,
	)
	s.NoError(err)
	s.Equal(pipeline.AudienceAdmin, chain.Audience())
	s.Equal([]string{"noop"}, chain.StageNames())

	_, err = pipeline.Resolve(
		slog.Default(),
		pipeline.AudienceAdmin,
		[]pipeline.Descriptor{{Stage: "unknown"}},
		registry,
	)
	s.Error(err)
	s.Contains(err.Error(), "unknown pipeline stage")
}

func (s *ChainPublicTestSuite) TestErrorHandlerRateLimited() {
	handler := pipeline.ErrorHandler(slog.Default())

	c, rec := s.newContext()
	resetAt := time.Now().Add(30 * time.Second)
	handler(&ratelimit.LimitExceededError{
		Policy: "standard",
		Decision: ratelimit.Decision{
			Limit:      5,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: 30 * time.Second,
		},
	}, c)

	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("5", rec.Header().Get("X-RateLimit-Limit"))
	s.Equal("0", rec.Header().Get("X-RateLimit-Remaining"))
	s.NotEmpty(rec.Header().Get("Retry-After"))

	var body pipeline.ErrorBody
	s.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.False(body.Success)
	s.Equal("too many requests", body.Message)
	s.Equal("rate_limited", body.Error)
}

func (s *ChainPublicTestSuite) TestErrorHandlerLocked() {
	handler := pipeline.ErrorHandler(slog.Default())

	until := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	c, rec := s.newContext()
	handler(&lockout.LockedError{Principal: "alex@example.com", Until: until}, c)

	s.Equal(http.StatusLocked, rec.Code)

	var body pipeline.ErrorBody
	s.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.False(body.Success)
	s.Equal("account_locked", body.Error)
	s.Contains(body.Message, "2026-03-16T00:00:00Z", "clients see when the lock ends")
}

func (s *ChainPublicTestSuite) TestErrorHandlerGenericHidesDetail() {
	handler := pipeline.ErrorHandler(slog.Default())

	c, rec := s.newContext()
	handler(fmt.Errorf("pq: connection refused at 10.0.0.5"), c)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.NotContains(rec.Body.String(), "10.0.0.5")
}

func TestChainPublicTestSuite(t *testing.T) {
	suite.Run(t, new(ChainPublicTestSuite))
}
