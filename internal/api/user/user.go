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

// Package user serves account endpoints, including login with
// failed-attempt tracking.
package user

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/shopapi/internal/authtoken"
	"github.com/retr0h/shopapi/internal/cache"
	"github.com/retr0h/shopapi/internal/lockout"
	"github.com/retr0h/shopapi/internal/pipeline"
	"github.com/retr0h/shopapi/internal/store"
	"github.com/retr0h/shopapi/internal/validation"
)

const namespace = "user"

// User handles account endpoints.
type User struct {
	logger      *slog.Logger
	source      store.UserSource
	tracker     *lockout.Tracker
	cache       *cache.Store
	signingKey  string
	customRoles map[string][]string
	tokens      *authtoken.Token
}

// New creates a User handler.
func New(
	logger *slog.Logger,
	source store.UserSource,
	tracker *lockout.Tracker,
	cacheStore *cache.Store,
	signingKey string,
	customRoles map[string][]string,
) *User {
	return &User{
		logger:      logger,
		source:      source,
		tracker:     tracker,
		cache:       cacheStore,
		signingKey:  signingKey,
		customRoles: customRoles,
		tokens:      authtoken.New(logger),
	}
}

// loginRequest is the login payload.
type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Audience string `json:"audience" validate:"audience"`
}

// audienceAllowed reports whether any of the user's roles grant access to
// the requested API surface.
func audienceAllowed(
	roles []string,
	audience string,
) bool {
	for _, role := range roles {
		switch role {
		case "customer":
			if audience == pipeline.AudienceUser {
				return true
			}
		case "merchant":
			if audience == pipeline.AudienceUser || audience == pipeline.AudienceMerchant {
				return true
			}
		case "admin", "console":
			return true
		}
	}

	return false
}

// Login authenticates a user and returns a signed token bound to one API
// surface. Consecutive failures are tracked per email; a locked principal
// is rejected before credentials are even checked.
func (u *User) Login(
	c echo.Context,
) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid login payload")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	if req.Audience == "" {
		req.Audience = pipeline.AudienceUser
	}
	if msg, ok := validation.Struct(&req); !ok {
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}

	ctx := c.Request().Context()

	if err := u.tracker.Check(ctx, req.Email); err != nil {
		return err
	}

	account, err := u.source.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "login unavailable")
	}

	if account == nil || !passwordMatches(account.PasswordHash, req.Password) {
		if lockErr := u.tracker.Fail(ctx, req.Email); lockErr != nil {
			return lockErr
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	if !audienceAllowed(account.Roles, req.Audience) {
		return echo.NewHTTPError(
			http.StatusForbidden,
			"account not permitted on this surface",
		)
	}

	u.tracker.Clear(ctx, req.Email)

	token, err := u.tokens.Generate(
		u.signingKey,
		req.Audience,
		account.TenantID,
		account.Roles,
		account.ID,
		nil,
	)
	if err != nil {
		u.logger.Error(
			"failed to generate token",
			slog.String("subject", account.ID),
			slog.String("error", err.Error()),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"token":      token,
		"expires_in": int(authtoken.DefaultTokenTTL.Seconds()),
	})
}

// passwordMatches compares stored and presented credentials in constant
// time.
func passwordMatches(
	storedHash string,
	password string,
) bool {
	presented := store.HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(presented)) == 1
}

// Me returns the authenticated account.
func (u *User) Me(
	c echo.Context,
) error {
	rc := pipeline.Current(c)
	if rc == nil || rc.Principal == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	return u.fetch(c, rc.Principal.ID)
}

// Get returns one account by ID.
func (u *User) Get(
	c echo.Context,
) error {
	return u.fetch(c, c.Param("id"))
}

func (u *User) fetch(
	c echo.Context,
	id string,
) error {
	payload, hit, err := u.cache.GetOrFetch(
		c.Request().Context(),
		namespace,
		id,
		u.cacheTTL(),
		func(ctx context.Context) ([]byte, error) {
			account, err := u.source.GetUser(ctx, id)
			if err != nil {
				return nil, err
			}
			return json.Marshal(account)
		},
	)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load user")
	}

	h := c.Response().Header()
	if h.Get("X-Cache") == "" {
		outcome := "MISS"
		if hit {
			outcome = "HIT"
		}
		h.Set("X-Cache", outcome)
		h.Set("X-Cache-Key", cache.Key(namespace, id))
	}

	return c.JSONBlob(http.StatusOK, payload)
}

// cacheTTL is the user-entity cache tier.
func (u *User) cacheTTL() int {
	return 300
}

// Delete removes an account and its cached entity.
func (u *User) Delete(
	c echo.Context,
) error {
	id := c.Param("id")

	if err := u.source.DeleteUser(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete user")
	}

	u.cache.Delete(c.Request().Context(), namespace, id)

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "user deleted",
	})
}

// rolesRequest is the role assignment payload.
type rolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1"`
}

// SetRoles replaces an account's roles.
func (u *User) SetRoles(
	c echo.Context,
) error {
	id := c.Param("id")

	var req rolesRequest
	if err := c.Bind(&req); err != nil || len(req.Roles) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "roles are required")
	}

	allowed := make(map[string]bool)
	for _, role := range authtoken.GenerateAllowedRoles(authtoken.RoleHierarchy) {
		allowed[role] = true
	}
	for name := range u.customRoles {
		allowed[name] = true
	}
	for _, role := range req.Roles {
		if !allowed[role] {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown role: "+role)
		}
	}

	if err := u.source.SetRoles(c.Request().Context(), id, req.Roles); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to set roles")
	}

	u.cache.Delete(c.Request().Context(), namespace, id)

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "roles updated",
	})
}
