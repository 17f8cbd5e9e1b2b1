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

// Package iplist serves the admin-managed IP allow/deny list. Updates are
// classified as sensitive operations by the audit layer.
package iplist

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/shopapi/internal/cache"
	"github.com/retr0h/shopapi/internal/store"
)

const namespace = "iplist"

// rulesKey is the single cache entry holding the whole rule set.
const rulesKey = "rules"

// IPList handles IP list endpoints.
type IPList struct {
	logger *slog.Logger
	source store.IPListSource
	cache  *cache.Store
	ttl    int
}

// New creates an IPList handler.
func New(
	logger *slog.Logger,
	source store.IPListSource,
	cacheStore *cache.Store,
	ttlSeconds int,
) *IPList {
	return &IPList{
		logger: logger,
		source: source,
		cache:  cacheStore,
		ttl:    ttlSeconds,
	}
}

// Get returns the current rule set, read through the cache so Put's
// invalidation is what forces a reload.
func (i *IPList) Get(
	c echo.Context,
) error {
	payload, hit, err := i.cache.GetOrFetch(
		c.Request().Context(),
		namespace,
		rulesKey,
		i.ttl,
		func(ctx context.Context) ([]byte, error) {
			rules, err := i.source.ListRules(ctx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(rules)
		},
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load ip list")
	}

	h := c.Response().Header()
	if h.Get("X-Cache") == "" {
		outcome := "MISS"
		if hit {
			outcome = "HIT"
		}
		h.Set("X-Cache", outcome)
		h.Set("X-Cache-Key", cache.Key(namespace, rulesKey))
	}

	return c.JSONBlob(http.StatusOK, payload)
}

// putRequest is the rule replacement payload.
type putRequest struct {
	Rules []store.IPRule `json:"rules" validate:"required"`
}

// Put replaces the rule set atomically.
func (i *IPList) Put(
	c echo.Context,
) error {
	var req putRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ip list payload")
	}

	for _, rule := range req.Rules {
		if _, _, err := net.ParseCIDR(rule.CIDR); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid CIDR: "+rule.CIDR)
		}
		if rule.Action != "allow" && rule.Action != "deny" {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid action: "+rule.Action)
		}
	}

	if err := i.source.PutRules(c.Request().Context(), req.Rules); err != nil {
		i.logger.Error(
			"failed to update ip list",
			slog.String("error", err.Error()),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update ip list")
	}

	i.cache.InvalidatePrefix(c.Request().Context(), namespace, "")

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "ip list updated",
	})
}
