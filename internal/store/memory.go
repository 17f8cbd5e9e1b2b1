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

package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process data source seeded with fixture data. It stands
// in for a real database behind the same contracts.
type Memory struct {
	mu       sync.RWMutex
	shops    map[int]Shop
	products map[int]Product
	users    map[string]User
	ipRules  []IPRule
}

var (
	_ ShopSource   = (*Memory)(nil)
	_ UserSource   = (*Memory)(nil)
	_ IPListSource = (*Memory)(nil)
)

// NewMemory creates a Memory seeded with a small fixture set.
func NewMemory() *Memory {
	now := time.Now().UTC()

	m := &Memory{
		shops:    make(map[int]Shop),
		products: make(map[int]Product),
		users:    make(map[string]User),
	}

	m.shops[1] = Shop{
		ID:          1,
		Name:        "North End Provisions",
		Description: "Small-batch pantry goods",
		OwnerID:     "u-merchant-1",
		TenantID:    "t-1",
		CreatedAt:   now,
	}
	m.shops[2] = Shop{
		ID:          2,
		Name:        "Harbor Hardware",
		Description: "Tools and fixings",
		OwnerID:     "u-merchant-2",
		TenantID:    "t-1",
		CreatedAt:   now,
	}

	m.products[1] = Product{
		ID: 1, ShopID: 1, Name: "Olive oil 500ml", PriceCents: 1299, Stock: 42,
	}
	m.products[2] = Product{
		ID: 2, ShopID: 1, Name: "Sea salt 250g", PriceCents: 499, Stock: 120,
	}
	m.products[3] = Product{
		ID: 3, ShopID: 2, Name: "Claw hammer", PriceCents: 2150, Stock: 8,
	}

	m.users["u-customer-1"] = User{
		ID:           "u-customer-1",
		Email:        "alex@example.com",
		PasswordHash: HashPassword("customer-pass"),
		Roles:        []string{"customer"},
		TenantID:     "t-1",
	}
	m.users["u-merchant-1"] = User{
		ID:           "u-merchant-1",
		Email:        "merchant@example.com",
		PasswordHash: HashPassword("merchant-pass"),
		Roles:        []string{"merchant"},
		TenantID:     "t-1",
	}
	m.users["u-admin-1"] = User{
		ID:           "u-admin-1",
		Email:        "admin@example.com",
		PasswordHash: HashPassword("admin-pass"),
		Roles:        []string{"admin"},
		TenantID:     "t-1",
	}

	m.ipRules = []IPRule{
		{CIDR: "10.0.0.0/8", Action: "allow", Comment: "internal", UpdatedAt: now},
	}

	return m
}

// HashPassword returns the stored form of a password.
func HashPassword(
	password string,
) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// GetShop implements ShopSource.
func (m *Memory) GetShop(
	_ context.Context,
	id int,
) (*Shop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	shop, ok := m.shops[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &shop, nil
}

// ListShops implements ShopSource. An empty tenant lists all shops.
func (m *Memory) ListShops(
	_ context.Context,
	tenant string,
) ([]Shop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	shops := make([]Shop, 0, len(m.shops))
	for _, shop := range m.shops {
		if tenant != "" && shop.TenantID != tenant {
			continue
		}
		shops = append(shops, shop)
	}

	return shops, nil
}

// DeleteShop implements ShopSource.
func (m *Memory) DeleteShop(
	_ context.Context,
	id int,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.shops[id]; !ok {
		return ErrNotFound
	}
	delete(m.shops, id)

	for pid, product := range m.products {
		if product.ShopID == id {
			delete(m.products, pid)
		}
	}

	return nil
}

// GetProduct implements ShopSource.
func (m *Memory) GetProduct(
	_ context.Context,
	id int,
) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	product, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &product, nil
}

// ListProductIDs implements ShopSource. Only the ID index is read; full
// entities are fetched individually so callers can cache them per product.
func (m *Memory) ListProductIDs(
	_ context.Context,
	shopID int,
) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int, 0)
	for id, product := range m.products {
		if product.ShopID == shopID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	return ids, nil
}

// GetUser implements UserSource.
func (m *Memory) GetUser(
	_ context.Context,
	id string,
) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &user, nil
}

// FindByEmail implements UserSource.
func (m *Memory) FindByEmail(
	_ context.Context,
	email string,
) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}

	return nil, ErrNotFound
}

// DeleteUser implements UserSource.
func (m *Memory) DeleteUser(
	_ context.Context,
	id string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)

	return nil
}

// SetRoles implements UserSource.
func (m *Memory) SetRoles(
	_ context.Context,
	id string,
	roles []string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Roles = roles
	m.users[id] = user

	return nil
}

// ListRules implements IPListSource.
func (m *Memory) ListRules(
	_ context.Context,
) ([]IPRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]IPRule, len(m.ipRules))
	copy(rules, m.ipRules)

	return rules, nil
}

// PutRules implements IPListSource.
func (m *Memory) PutRules(
	_ context.Context,
	rules []IPRule,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ipRules = make([]IPRule, len(rules))
	copy(m.ipRules, rules)

	return nil
}
