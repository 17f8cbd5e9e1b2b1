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

// Package shop serves shop resources through the cache-aside store.
package shop

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/shopapi/internal/cache"
	"github.com/retr0h/shopapi/internal/pipeline"
	"github.com/retr0h/shopapi/internal/store"
)

const namespace = "shop"

// Shop handles shop endpoints.
type Shop struct {
	logger *slog.Logger
	source store.ShopSource
	cache  *cache.Store
	ttl    int
}

// New creates a Shop handler.
func New(
	logger *slog.Logger,
	source store.ShopSource,
	cacheStore *cache.Store,
	ttlSeconds int,
) *Shop {
	return &Shop{
		logger: logger,
		source: source,
		cache:  cacheStore,
		ttl:    ttlSeconds,
	}
}

// setCacheHeaders records the cache outcome for this fetch unless an outer
// stage already claimed the headers.
func setCacheHeaders(
	c echo.Context,
	key string,
	hit bool,
) {
	h := c.Response().Header()
	if h.Get("X-Cache") != "" {
		return
	}

	outcome := "MISS"
	if hit {
		outcome = "HIT"
	}
	h.Set("X-Cache", outcome)
	h.Set("X-Cache-Key", key)
}

// Get returns one shop by ID.
func (s *Shop) Get(
	c echo.Context,
) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid shop id")
	}

	key := strconv.Itoa(id)
	payload, hit, err := s.cache.GetOrFetch(
		c.Request().Context(),
		namespace,
		key,
		s.ttl,
		func(ctx context.Context) ([]byte, error) {
			shop, err := s.source.GetShop(ctx, id)
			if err != nil {
				return nil, err
			}
			return json.Marshal(shop)
		},
	)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "shop not found")
		}
		s.logger.Error(
			"failed to load shop",
			slog.Int("id", id),
			slog.String("error", err.Error()),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load shop")
	}

	setCacheHeaders(c, cache.Key(namespace, key), hit)

	return c.JSONBlob(http.StatusOK, payload)
}

// List returns the shops visible to the caller's tenant.
func (s *Shop) List(
	c echo.Context,
) error {
	tenant := ""
	if rc := pipeline.Current(c); rc != nil && rc.Principal != nil {
		tenant = rc.Principal.Tenant
	}

	key := "list:" + tenant
	payload, hit, err := s.cache.GetOrFetch(
		c.Request().Context(),
		namespace,
		key,
		s.ttl,
		func(ctx context.Context) ([]byte, error) {
			shops, err := s.source.ListShops(ctx, tenant)
			if err != nil {
				return nil, err
			}
			return json.Marshal(shops)
		},
	)
	if err != nil {
		s.logger.Error(
			"failed to list shops",
			slog.String("tenant", tenant),
			slog.String("error", err.Error()),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list shops")
	}

	setCacheHeaders(c, cache.Key(namespace, key), hit)

	return c.JSONBlob(http.StatusOK, payload)
}

// Delete removes a shop and invalidates every cached view of it.
func (s *Shop) Delete(
	c echo.Context,
) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid shop id")
	}

	if err := s.source.DeleteShop(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "shop not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete shop")
	}

	ctx := c.Request().Context()
	s.cache.Delete(ctx, namespace, strconv.Itoa(id))
	s.cache.InvalidatePrefix(ctx, namespace, "list:")
	s.cache.InvalidatePrefix(ctx, "response", "")

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "shop deleted",
	})
}
