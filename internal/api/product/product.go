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

// Package product serves product resources through the cache-aside store.
package product

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/shopapi/internal/cache"
	"github.com/retr0h/shopapi/internal/store"
)

const namespace = "product"

// Product handles product endpoints.
type Product struct {
	logger *slog.Logger
	source store.ShopSource
	cache  *cache.Store
	ttl    int
}

// New creates a Product handler.
func New(
	logger *slog.Logger,
	source store.ShopSource,
	cacheStore *cache.Store,
	ttlSeconds int,
) *Product {
	return &Product{
		logger: logger,
		source: source,
		cache:  cacheStore,
		ttl:    ttlSeconds,
	}
}

// Get returns one product by ID.
func (p *Product) Get(
	c echo.Context,
) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	key := strconv.Itoa(id)
	payload, hit, err := p.cache.GetOrFetch(
		c.Request().Context(),
		namespace,
		key,
		p.ttl,
		func(ctx context.Context) ([]byte, error) {
			product, err := p.source.GetProduct(ctx, id)
			if err != nil {
				return nil, err
			}
			return json.Marshal(product)
		},
	)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		p.logger.Error(
			"failed to load product",
			slog.Int("id", id),
			slog.String("error", err.Error()),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load product")
	}

	h := c.Response().Header()
	if h.Get("X-Cache") == "" {
		outcome := "MISS"
		if hit {
			outcome = "HIT"
		}
		h.Set("X-Cache", outcome)
		h.Set("X-Cache-Key", cache.Key(namespace, key))
	}

	return c.JSONBlob(http.StatusOK, payload)
}

// ListByShop returns every product in a shop. Only the shop's ID index is
// read up front; full product entities are multi-fetched through the cache
// and the data source is consulted for the miss set alone.
func (p *Product) ListByShop(
	c echo.Context,
) error {
	shopID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid shop id")
	}

	ctx := c.Request().Context()

	ids, err := p.source.ListProductIDs(ctx, shopID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list products")
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, strconv.Itoa(id))
	}

	entries, err := p.cache.BatchGetOrFetch(
		ctx,
		namespace,
		keys,
		p.ttl,
		func(ctx context.Context, missing []string) (map[string][]byte, error) {
			out := make(map[string][]byte, len(missing))
			for _, key := range missing {
				id, convErr := strconv.Atoi(key)
				if convErr != nil {
					continue
				}
				product, err := p.source.GetProduct(ctx, id)
				if err != nil {
					// Deleted between the index read and the fetch.
					if errors.Is(err, store.ErrNotFound) {
						continue
					}
					return nil, err
				}
				payload, err := json.Marshal(product)
				if err != nil {
					return nil, err
				}
				out[key] = payload
			}
			return out, nil
		},
	)
	if err != nil {
		p.logger.Error(
			"failed to batch-load products",
			slog.Int("shop_id", shopID),
			slog.String("error", err.Error()),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list products")
	}

	result := make([]json.RawMessage, 0, len(keys))
	for _, key := range keys {
		if payload, ok := entries[key]; ok {
			result = append(result, json.RawMessage(payload))
		}
	}

	return c.JSON(http.StatusOK, result)
}
