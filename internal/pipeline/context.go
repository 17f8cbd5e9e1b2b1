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

// Package pipeline assembles the per-audience request-processing chain:
// audience tagging, rate limiting, authentication, cache-aside lookup,
// audit recording, and performance sampling.
package pipeline

import (
	"time"

	"github.com/labstack/echo/v4"
)

// Audiences are the API consumer classes. Each audience gets its own
// pre-assembled pipeline and policy set.
const (
	AudienceUser     = "user"
	AudienceMerchant = "merchant"
	AudienceAdmin    = "admin"
	AudienceConsole  = "console"
)

// Audiences lists every known audience.
var Audiences = []string{
	AudienceUser,
	AudienceMerchant,
	AudienceAdmin,
	AudienceConsole,
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	// ID is the JWT subject.
	ID string
	// Roles granted to the principal.
	Roles []string
	// Tenant scopes the principal; empty for console operators.
	Tenant string
	// Permissions is the resolved effective permission set.
	Permissions map[string]bool
}

// RequestContext is the per-request state created at pipeline entry, mutated
// by each stage, and discarded at response completion. Exactly one exists
// per in-flight request; it is never shared across requests.
type RequestContext struct {
	// Audience the request arrived on.
	Audience string
	// CorrelationID ties log lines, audit records, and samples together.
	CorrelationID string
	// Start is when the pipeline admitted the request.
	Start time.Time
	// Principal is nil until authentication succeeds.
	Principal *Principal
	// Authenticated reports whether the auth stage accepted the request.
	Authenticated bool
	// DeclaredOp is the operation tag declared on the route, if any.
	DeclaredOp string
	// CacheOutcome is "HIT" or "MISS" when cache-aside applied to the route.
	CacheOutcome string
	// CacheKey is the cache key used, when cache-aside applied.
	CacheKey string
	// RequestBody is the captured request body, when capture applied.
	RequestBody []byte
}

// contextKey is where the RequestContext lives in the echo context.
const contextKey = "pipeline.request_context"

// Current returns the request's RequestContext, or nil when the request did
// not pass through a pipeline.
func Current(
	c echo.Context,
) *RequestContext {
	rc, _ := c.Get(contextKey).(*RequestContext)
	return rc
}

// setCurrent stores the RequestContext in the echo context.
func setCurrent(
	c echo.Context,
	rc *RequestContext,
) {
	c.Set(contextKey, rc)
}

// Operation returns route-level middleware that tags requests with a
// declared operation type, consulted by the audit classifier.
func Operation(
	operationType string,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rc := Current(c); rc != nil {
				rc.DeclaredOp = operationType
			}
			return next(c)
		}
	}
}
