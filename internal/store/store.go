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

// Package store defines the data-source contracts the API handlers fetch
// through. Handlers never touch a backend directly; the cache-aside layer
// sits between them and these interfaces.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Shop is a storefront owned by a merchant.
type Shop struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	TenantID    string    `json:"tenant_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product is an item listed in a shop.
type Product struct {
	ID         int      `json:"id"`
	ShopID     int      `json:"shop_id"`
	Name       string   `json:"name"`
	PriceCents int64    `json:"price_cents"`
	Stock      int      `json:"stock"`
	Tags       []string `json:"tags,omitempty"`
}

// User is an account able to authenticate against the API.
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Roles        []string `json:"roles"`
	TenantID     string   `json:"tenant_id"`
}

// IPRule is one allow or deny entry in the admin-managed IP list.
type IPRule struct {
	CIDR      string    `json:"cidr"`
	Action    string    `json:"action"`
	Comment   string    `json:"comment,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShopSource fetches shops and products.
type ShopSource interface {
	GetShop(
		ctx context.Context,
		id int,
	) (*Shop, error)
	ListShops(
		ctx context.Context,
		tenant string,
	) ([]Shop, error)
	DeleteShop(
		ctx context.Context,
		id int,
	) error
	GetProduct(
		ctx context.Context,
		id int,
	) (*Product, error)
	ListProductIDs(
		ctx context.Context,
		shopID int,
	) ([]int, error)
}

// UserSource authenticates and manages accounts.
type UserSource interface {
	GetUser(
		ctx context.Context,
		id string,
	) (*User, error)
	FindByEmail(
		ctx context.Context,
		email string,
	) (*User, error)
	DeleteUser(
		ctx context.Context,
		id string,
	) error
	SetRoles(
		ctx context.Context,
		id string,
		roles []string,
	) error
}

// IPListSource manages the admin IP list.
type IPListSource interface {
	ListRules(
		ctx context.Context,
	) ([]IPRule, error)
	PutRules(
		ctx context.Context,
		rules []IPRule,
	) error
}
