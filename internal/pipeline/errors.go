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
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/shopapi/internal/lockout"
	"github.com/retr0h/shopapi/internal/ratelimit"
)

// ErrorBody is the stable machine-readable error envelope. Stack traces and
// internal detail never appear here; they are logged server-side only.
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// IsAdmission reports whether err is a rate-limit or lockout rejection.
// Admission errors are always terminal and never retried.
func IsAdmission(
	err error,
) bool {
	var limitErr *ratelimit.LimitExceededError
	var lockErr *lockout.LockedError

	return errors.As(err, &limitErr) || errors.As(err, &lockErr)
}

// statusOf extracts the HTTP status an error will map to. Used by the
// observing stages to record outcomes before the terminal handler runs.
func statusOf(
	err error,
	c echo.Context,
) int {
	if err == nil {
		return c.Response().Status
	}

	var limitErr *ratelimit.LimitExceededError
	if errors.As(err, &limitErr) {
		return http.StatusTooManyRequests
	}

	var lockErr *lockout.LockedError
	if errors.As(err, &lockErr) {
		return http.StatusLocked
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}

	return http.StatusInternalServerError
}

// ErrorHandler returns the terminal error handler: every stage or handler
// error not caught by a boundary lands here and is mapped to a structured
// response. No partial responses are ever sent before this handler decides
// the outcome.
func ErrorHandler(
	logger *slog.Logger,
) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var limitErr *ratelimit.LimitExceededError
		if errors.As(err, &limitErr) {
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limitErr.Decision.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(limitErr.Decision.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(limitErr.Decision.ResetAt.Unix(), 10))
			h.Set("Retry-After", strconv.Itoa(int(limitErr.Decision.RetryAfter/time.Second)+1))

			_ = c.JSON(http.StatusTooManyRequests, ErrorBody{
				Success: false,
				Message: "too many requests",
				Error:   "rate_limited",
			})
			return
		}

		var lockErr *lockout.LockedError
		if errors.As(err, &lockErr) {
			_ = c.JSON(http.StatusLocked, ErrorBody{
				Success: false,
				Message: fmt.Sprintf(
					"account locked until %s",
					lockErr.Until.Format(time.RFC3339),
				),
				Error: "account_locked",
			})
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			message := http.StatusText(httpErr.Code)
			if m, ok := httpErr.Message.(string); ok {
				message = m
			}

			_ = c.JSON(httpErr.Code, ErrorBody{
				Success: false,
				Message: message,
				Error:   strconv.Itoa(httpErr.Code),
			})
			return
		}

		logger.Error(
			"unhandled request error",
			slog.String("path", c.Request().URL.Path),
			slog.String("error", err.Error()),
		)

		_ = c.JSON(http.StatusInternalServerError, ErrorBody{
			Success: false,
			Message: "internal server error",
			Error:   "internal_error",
		})
	}
}
