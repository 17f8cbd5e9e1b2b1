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
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/retr0h/shopapi/internal/audit"
	"github.com/retr0h/shopapi/internal/authtoken"
	"github.com/retr0h/shopapi/internal/cache"
	"github.com/retr0h/shopapi/internal/lockout"
	"github.com/retr0h/shopapi/internal/ratelimit"
	"github.com/retr0h/shopapi/internal/telemetry"
)

// maxBodyCapture bounds how much of a request or response body the audit
// stage retains.
const maxBodyCapture = 64 * 1024

// TokenValidator parses and validates JWT tokens.
type TokenValidator interface {
	Validate(
		tokenString string,
		signingKey string,
	) (*authtoken.CustomClaims, error)
}

// AudienceStage tags the request with its audience and creates the
// RequestContext. It is always the first stage in a chain.
func AudienceStage(
	audience string,
) Stage {
	return Stage{
		Name: "audience",
		Handle: func(c echo.Context, next echo.HandlerFunc) error {
			correlationID := c.Request().Header.Get(echo.HeaderXRequestID)
			if correlationID == "" {
				correlationID = uuid.New().String()
			}

			req := c.Request()
			c.SetRequest(req.WithContext(
				telemetry.WithCorrelationID(req.Context(), correlationID),
			))

			setCurrent(c, &RequestContext{
				Audience:      audience,
				CorrelationID: correlationID,
				Start:         time.Now(),
			})

			return next(c)
		},
	}
}

// RateLimitStage admits or rejects the request under the named policy. The
// limiter key uses the authenticated principal when one is already known,
// falling back to the client IP. Rejections under administrative audiences
// emit a security event at elevated severity.
func RateLimitStage(
	logger *slog.Logger,
	limiter *ratelimit.Limiter,
	policy string,
) Stage {
	return Stage{
		Name: "ratelimit:" + policy,
		Handle: func(c echo.Context, next echo.HandlerFunc) error {
			rc := Current(c)

			identity := c.RealIP()
			if rc.Principal != nil {
				identity = rc.Principal.ID
			}

			decision := limiter.Allow(
				c.Request().Context(),
				policy,
				rc.Audience,
				identity,
			)

			if decision.Limit > 0 {
				h := c.Response().Header()
				h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
				h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
				h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
			}

			if !decision.Allowed {
				attrs := []any{
					slog.String("policy", policy),
					slog.String("audience", rc.Audience),
					slog.String("identity", identity),
				}
				if rc.Audience == AudienceAdmin || rc.Audience == AudienceConsole {
					attrs = append(attrs, slog.String("category", "security"))
					logger.Error("administrative rate limit rejection", attrs...)
				} else {
					logger.Warn("rate limit rejection", attrs...)
				}

				return &ratelimit.LimitExceededError{
					Policy:   policy,
					Decision: decision,
				}
			}

			return next(c)
		},
	}
}

// AuthStage validates the bearer token, resolves the principal, and attaches
// it to the RequestContext. Decoded claims are cached in the token namespace
// so repeated requests skip signature verification; token expiry is still
// enforced on every request.
func AuthStage(
	logger *slog.Logger,
	validator TokenValidator,
	signingKey string,
	customRoles map[string][]string,
	tokens *cache.Store,
	tokenTTLSeconds int,
) Stage {
	return Stage{
		Name: "auth",
		Handle: func(c echo.Context, next echo.HandlerFunc) error {
			rc := Current(c)

			authHeader := c.Request().Header.Get("Authorization")
			const prefix = "Bearer "
			if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
				return echo.NewHTTPError(
					http.StatusUnauthorized,
					"bearer token required",
				)
			}
			tokenString := authHeader[len(prefix):]

			claims, err := resolveClaims(
				c, validator, signingKey, tokens, tokenTTLSeconds, tokenString,
			)
			if err != nil {
				logger.Debug(
					"token rejected",
					slog.String("error", err.Error()),
				)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
			}

			if !claims.ValidForAudience(rc.Audience) {
				return echo.NewHTTPError(
					http.StatusForbidden,
					"token not valid for this surface",
				)
			}

			rc.Principal = &Principal{
				ID:     claims.Subject,
				Roles:  claims.Roles,
				Tenant: claims.Tenant,
				Permissions: authtoken.ResolvePermissions(
					claims.Roles,
					claims.Permissions,
					customRoles,
				),
			}
			rc.Authenticated = true

			return next(c)
		},
	}
}

// resolveClaims returns the decoded claims for a token, consulting the
// cache-aside store when one is configured. Only successfully validated
// claims are ever cached.
func resolveClaims(
	c echo.Context,
	validator TokenValidator,
	signingKey string,
	tokens *cache.Store,
	tokenTTLSeconds int,
	tokenString string,
) (*authtoken.CustomClaims, error) {
	if tokens == nil {
		return validator.Validate(tokenString, signingKey)
	}

	sum := sha256.Sum256([]byte(tokenString))
	key := hex.EncodeToString(sum[:])

	payload, _, err := tokens.GetOrFetch(
		c.Request().Context(),
		"token",
		key,
		tokenTTLSeconds,
		func(_ context.Context) ([]byte, error) {
			claims, err := validator.Validate(tokenString, signingKey)
			if err != nil {
				return nil, err
			}
			return json.Marshal(claims)
		},
	)
	if err != nil {
		return nil, err
	}

	claims := &authtoken.CustomClaims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// RequirePermission returns route-level middleware enforcing one resolved
// permission.
func RequirePermission(
	required string,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rc := Current(c)
			if rc == nil || rc.Principal == nil {
				return echo.NewHTTPError(
					http.StatusUnauthorized,
					"authentication required",
				)
			}

			if !authtoken.HasPermission(rc.Principal.Permissions, required) {
				return echo.NewHTTPError(
					http.StatusForbidden,
					"insufficient permissions: "+required,
				)
			}

			return next(c)
		}
	}
}

// LoginGuardStage rejects requests for principals currently locked out.
// The principal is taken from the request body's email field by the login
// handler itself; this stage only covers routes where the principal is
// already known (token refresh and similar).
func LoginGuardStage(
	tracker *lockout.Tracker,
) Stage {
	return Stage{
		Name: "lockout",
		Handle: func(c echo.Context, next echo.HandlerFunc) error {
			rc := Current(c)
			if rc.Principal == nil {
				return next(c)
			}

			if err := tracker.Check(c.Request().Context(), rc.Principal.ID); err != nil {
				return err
			}

			return next(c)
		},
	}
}

// cachedResponse is the serialized form of a full-response cache entry.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseCacheStage serves eligible GET requests entirely from the
// cache-aside store. A hit short-circuits the rest of the pipeline; a miss
// proceeds to the handler and populates the cache after the handler
// returns, before the bytes are flushed to the transport.
//
// Keys are scoped to the principal's tenant so one tenant's responses are
// never replayed to another, and principalScoped routes (whose responses
// depend on who is asking) are additionally scoped to the principal ID.
// Requests with no authenticated principal bypass the cache.
func ResponseCacheStage(
	logger *slog.Logger,
	store *cache.Store,
	namespace string,
	ttlSeconds int,
	principalScoped func(echo.Context) bool,
) Stage {
	return Stage{
		Name: "cache:" + namespace,
		Handle: func(c echo.Context, next echo.HandlerFunc) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			rc := Current(c)
			if rc.Principal == nil {
				return next(c)
			}

			key := rc.Principal.Tenant
			if principalScoped != nil && principalScoped(c) {
				key += ":" + rc.Principal.ID
			}
			key += ":" + c.Request().URL.Path
			if q := c.Request().URL.RawQuery; q != "" {
				key += "?" + q
			}
			rc.CacheKey = cache.Key(namespace, key)

			h := c.Response().Header()
			h.Set("X-Cache-Key", rc.CacheKey)

			if payload, hit := store.Get(c.Request().Context(), namespace, key); hit {
				var cached cachedResponse
				if err := json.Unmarshal(payload, &cached); err == nil {
					rc.CacheOutcome = "HIT"
					h.Set("X-Cache", "HIT")
					return c.Blob(cached.Status, cached.ContentType, cached.Body)
				}
				// Unreadable entry: drop it and fall through to the handler.
				store.Delete(c.Request().Context(), namespace, key)
			}

			rc.CacheOutcome = "MISS"
			h.Set("X-Cache", "MISS")

			res := c.Response()
			capture := newCaptureWriter(res.Writer, maxBodyCapture)
			res.Writer = capture

			err := next(c)

			if err == nil && res.Status == http.StatusOK && !capture.truncated {
				cached := cachedResponse{
					Status:      res.Status,
					ContentType: res.Header().Get(echo.HeaderContentType),
					Body:        capture.buf.Bytes(),
				}
				payload, marshalErr := json.Marshal(cached)
				if marshalErr != nil {
					logger.Warn(
						"failed to serialize response for cache",
						slog.String("key", rc.CacheKey),
						slog.String("error", marshalErr.Error()),
					)
				} else {
					store.Set(c.Request().Context(), namespace, key, payload, ttlSeconds)
				}
			}

			return err
		},
	}
}

// AuditStage observes the request outcome and hands a finalized record to
// the recorder. Mutating-request bodies are captured up front; the recorder
// discards them for routine records. Recording still occurs for abandoned
// requests with whatever partial outcome is known.
func AuditStage(
	recorder *audit.Recorder,
) Stage {
	return Stage{
		Name: "audit",
		Handle: func(c echo.Context, next echo.HandlerFunc) error {
			rc := Current(c)
			req := c.Request()

			switch req.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
				if req.Body != nil {
					body, readErr := io.ReadAll(io.LimitReader(req.Body, maxBodyCapture))
					_ = req.Body.Close()
					if readErr == nil {
						req.Body = io.NopCloser(bytes.NewReader(body))
						rc.RequestBody = body
					}
				}
			}

			var capture *captureWriter
			if recorder.CaptureResponse() {
				res := c.Response()
				capture = newCaptureWriter(res.Writer, maxBodyCapture)
				res.Writer = capture
			}

			err := next(c)

			status := statusOf(err, c)
			record := audit.Record{
				OperationID:   rc.CorrelationID,
				OperationType: rc.DeclaredOp,
				Timestamp:     rc.Start,
				Audience:      rc.Audience,
				Method:        req.Method,
				Path:          req.URL.Path,
				SourceIP:      c.RealIP(),
				RequestBody:   string(rc.RequestBody),
				ResponseCode:  status,
				DurationMs:    time.Since(rc.Start).Milliseconds(),
				Success:       err == nil && status < http.StatusBadRequest,
			}
			if record.OperationType == "" {
				record.OperationType = req.Method + " " + c.Path()
			}
			if rc.Principal != nil {
				record.Actor = &audit.Actor{
					ID:     rc.Principal.ID,
					Roles:  rc.Principal.Roles,
					Tenant: rc.Principal.Tenant,
				}
			}
			if err != nil {
				record.Error = err.Error()
			}
			if capture != nil {
				record.ResponseBody = capture.buf.String()
			}

			recorder.Record(req.Context(), record)

			return err
		},
	}
}

// Observer receives one observation per completed request.
type Observer interface {
	Observe(
		ctx context.Context,
		route string,
		audience string,
		status int,
		duration time.Duration,
		reqErr error,
	)
}

// PerfStage observes duration and status for every request that reaches it.
func PerfStage(
	sampler Observer,
) Stage {
	return Stage{
		Name: "perf",
		Handle: func(c echo.Context, next echo.HandlerFunc) error {
			rc := Current(c)
			start := time.Now()

			err := next(c)

			sampler.Observe(
				c.Request().Context(),
				c.Path(),
				rc.Audience,
				statusOf(err, c),
				time.Since(start),
				err,
			)

			return err
		},
	}
}

// captureWriter tees response bytes into a bounded buffer on their way to
// the transport.
type captureWriter struct {
	http.ResponseWriter
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCaptureWriter(
	w http.ResponseWriter,
	limit int,
) *captureWriter {
	return &captureWriter{
		ResponseWriter: w,
		limit:          limit,
	}
}

// Write buffers up to the limit and always forwards to the underlying
// writer.
func (w *captureWriter) Write(
	b []byte,
) (int, error) {
	if room := w.limit - w.buf.Len(); room > 0 {
		if len(b) <= room {
			w.buf.Write(b)
		} else {
			w.buf.Write(b[:room])
			w.truncated = true
		}
	} else if len(b) > 0 {
		w.truncated = true
	}

	return w.ResponseWriter.Write(b)
}
