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

package product_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"

	"github.com/retr0h/shopapi/internal/api/product"
	"github.com/retr0h/shopapi/internal/cache"
	"github.com/retr0h/shopapi/internal/store"
)

// fakeShopSource records which product IDs were fetched individually.
type fakeShopSource struct {
	products map[int]store.Product

	listCalls    int
	fetchedIDs   []int
	listOverride []int
}

func (f *fakeShopSource) GetShop(
	_ context.Context,
	_ int,
) (*store.Shop, error) {
	return nil, store.ErrNotFound
}

func (f *fakeShopSource) ListShops(
	_ context.Context,
	_ string,
) ([]store.Shop, error) {
	return nil, nil
}

func (f *fakeShopSource) DeleteShop(
	_ context.Context,
	_ int,
) error {
	return nil
}

func (f *fakeShopSource) GetProduct(
	_ context.Context,
	id int,
) (*store.Product, error) {
	f.fetchedIDs = append(f.fetchedIDs, id)

	p, ok := f.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	return &p, nil
}

func (f *fakeShopSource) ListProductIDs(
	_ context.Context,
	_ int,
) ([]int, error) {
	f.listCalls++

	return f.listOverride, nil
}

type ProductPublicTestSuite struct {
	suite.Suite

	e          *echo.Echo
	source     *fakeShopSource
	cacheStore *cache.Store
	handler    *product.Product
}

func (s *ProductPublicTestSuite) SetupTest() {
	s.e = echo.New()
	s.source = &fakeShopSource{
		products: map[int]store.Product{
			1: {ID: 1, ShopID: 1, Name: "Olive oil 500ml", PriceCents: 1250, Stock: 12},
			2: {ID: 2, ShopID: 1, Name: "Sea salt 250g", PriceCents: 450, Stock: 40},
		},
		listOverride: []int{1, 2},
	}
	s.cacheStore = cache.NewStore(slog.Default(), cache.NewMemory(), 86400)
	s.handler = product.New(slog.Default(), s.source, s.cacheStore, 120)
}

func (s *ProductPublicTestSuite) listByShop() *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/user/shops/1/products", nil)
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	s.NoError(s.handler.ListByShop(c))

	return rec
}

func (s *ProductPublicTestSuite) TestListByShopColdCache() {
	rec := s.listByShop()

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(1, s.source.listCalls)
	s.ElementsMatch([]int{1, 2}, s.source.fetchedIDs, "every miss is fetched once")
	s.Contains(rec.Body.String(), "Olive oil 500ml")
	s.Contains(rec.Body.String(), "Sea salt 250g")
}

func (s *ProductPublicTestSuite) TestListByShopFetchesOnlyMisses() {
	// Pre-warm one product; only the other may reach the data source.
	payload, err := json.Marshal(s.source.products[1])
	s.NoError(err)
	s.cacheStore.Set(context.Background(), "product", "1", payload, 120)

	rec := s.listByShop()

	s.Equal(http.StatusOK, rec.Code)
	s.Equal([]int{2}, s.source.fetchedIDs, "cached products never hit the source")
	s.Contains(rec.Body.String(), "Olive oil 500ml")
	s.Contains(rec.Body.String(), "Sea salt 250g")
}

func (s *ProductPublicTestSuite) TestListByShopSkipsVanishedProduct() {
	// The index can race a delete; a vanished ID is dropped, not an error.
	s.source.listOverride = []int{1, 2, 3}

	rec := s.listByShop()

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Olive oil 500ml")
	s.Contains(rec.Body.String(), "Sea salt 250g")

	var result []json.RawMessage
	s.NoError(json.Unmarshal(rec.Body.Bytes(), &result))
	s.Len(result, 2)
}

func (s *ProductPublicTestSuite) TestGet() {
	req := httptest.NewRequest(http.MethodGet, "/api/user/products/2", nil)
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("2")

	s.NoError(s.handler.Get(c))
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("MISS", rec.Header().Get("X-Cache"))
	s.Contains(rec.Body.String(), "Sea salt 250g")

	rec = httptest.NewRecorder()
	c = s.e.NewContext(httptest.NewRequest(http.MethodGet, "/api/user/products/2", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("2")

	s.NoError(s.handler.Get(c))
	s.Equal("HIT", rec.Header().Get("X-Cache"))
	s.Equal([]int{2}, s.source.fetchedIDs, "a hit never reaches the source")
}

func TestProductPublicTestSuite(t *testing.T) {
	suite.Run(t, &ProductPublicTestSuite{})
}
