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

package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HandlerFunc is one stage's body. A stage may call next to proceed,
// produce a response directly to short-circuit, or return an error that
// terminates the chain and is handed to the terminal error handler.
type HandlerFunc func(c echo.Context, next echo.HandlerFunc) error

// Stage is a named pipeline step.
type Stage struct {
	Name   string
	Handle HandlerFunc
}

// Predicate decides whether a conditional stage applies to a request.
type Predicate func(c echo.Context) bool

// When wraps a stage so it runs only if the predicate holds; otherwise the
// request proceeds straight to the continuation.
func When(
	pred Predicate,
	s Stage,
) Stage {
	return Stage{
		Name: s.Name,
		Handle: func(c echo.Context, next echo.HandlerFunc) error {
			if !pred(c) {
				return next(c)
			}
			return s.Handle(c, next)
		},
	}
}

// Boundary wraps a stage in an error boundary: a stage fault (error or
// panic) is logged with full detail server-side and replaced by a generic
// fallback response, so one misbehaving stage cannot crash the pipeline.
// Admission rejections and deliberate HTTP errors pass through untouched.
func Boundary(
	logger *slog.Logger,
	s Stage,
) Stage {
	return Stage{
		Name: s.Name,
		Handle: func(c echo.Context, next echo.HandlerFunc) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(
						"stage panic",
						slog.String("stage", s.Name),
						slog.Any("panic", r),
					)
					err = fallback(c)
				}
			}()

			stageErr := s.Handle(c, next)
			if stageErr == nil {
				return nil
			}

			if isDeliberate(stageErr) {
				return stageErr
			}

			logger.Error(
				"stage failed",
				slog.String("stage", s.Name),
				slog.String("error", stageErr.Error()),
			)

			return fallback(c)
		},
	}
}

// isDeliberate reports whether an error is an intentional outcome rather
// than a stage fault. Admission errors are always terminal and never
// swallowed by a boundary.
func isDeliberate(
	err error,
) bool {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return true
	}

	return IsAdmission(err)
}

// fallback substitutes a generic error response for a faulted stage.
func fallback(
	c echo.Context,
) error {
	if c.Response().Committed {
		return nil
	}

	return c.JSON(http.StatusInternalServerError, ErrorBody{
		Success: false,
		Message: "internal server error",
		Error:   "internal_error",
	})
}

// Retry wraps a stage so it is re-invoked up to attempts times with
// exponential backoff, but only for failures the stage has declared
// retryable. Non-retryable failures propagate immediately.
func Retry(
	s Stage,
	attempts int,
	backoff time.Duration,
	retryable func(error) bool,
) Stage {
	return Stage{
		Name: s.Name,
		Handle: func(c echo.Context, next echo.HandlerFunc) error {
			var err error
			delay := backoff

			for attempt := 0; attempt < attempts; attempt++ {
				err = s.Handle(c, next)
				if err == nil {
					return nil
				}
				if retryable == nil || !retryable(err) {
					return err
				}
				if attempt == attempts-1 {
					break
				}

				select {
				case <-c.Request().Context().Done():
					return c.Request().Context().Err()
				case <-time.After(delay):
				}
				delay *= 2
			}

			return fmt.Errorf("stage %s exhausted %d attempts: %w", s.Name, attempts, err)
		},
	}
}

// Middleware adapts a single stage to route-level echo middleware, for
// per-route tightening such as a stricter rate limit policy on one
// endpoint.
func (s Stage) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return s.Handle(c, next)
		}
	}
}
