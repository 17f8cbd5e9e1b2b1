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

// Package authtoken provides JWT generation, validation, and permission
// resolution for all API surfaces.
package authtoken

import (
	"log/slog"

	"github.com/golang-jwt/jwt/v4"
)

// CustomClaims are the JWT claims carried by shopapi tokens. The registered
// audience claim names the API surface (user, merchant, admin, console) the
// token is valid for.
type CustomClaims struct {
	jwt.RegisteredClaims

	// Roles granted to the principal.
	Roles []string `json:"roles"    validate:"required,min=1"`
	// Permissions set directly by an IdP; overrides role expansion.
	Permissions []string `json:"permissions,omitempty"`
	// Tenant scopes the principal to one tenant. Empty for console
	// operators, who are tenant-unscoped.
	Tenant string `json:"tenant,omitempty"`
}

// Token manages JWT operations.
type Token struct {
	logger *slog.Logger
}

// New creates a Token manager.
func New(
	logger *slog.Logger,
) *Token {
	return &Token{
		logger: logger,
	}
}
