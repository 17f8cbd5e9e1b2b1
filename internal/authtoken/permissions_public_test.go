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

package authtoken_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/shopapi/internal/authtoken"
)

type PermissionsPublicTestSuite struct {
	suite.Suite
}

func (s *PermissionsPublicTestSuite) TestResolvePermissions() {
	tests := []struct {
		name        string
		roles       []string
		direct      []string
		customRoles map[string][]string
		want        []string
		wantAbsent  []string
	}{
		{
			name:       "customer role expands to read permissions",
			roles:      []string{"customer"},
			want:       []string{authtoken.PermShopRead, authtoken.PermProductRead},
			wantAbsent: []string{authtoken.PermShopWrite, authtoken.PermAuditRead},
		},
		{
			name:       "roles union their grants",
			roles:      []string{"customer", "merchant"},
			want:       []string{authtoken.PermShopRead, authtoken.PermShopWrite},
			wantAbsent: []string{authtoken.PermAuditRead},
		},
		{
			name:       "direct permissions override role expansion",
			roles:      []string{"console"},
			direct:     []string{authtoken.PermPerfRead},
			want:       []string{authtoken.PermPerfRead},
			wantAbsent: []string{authtoken.PermShopRead, authtoken.PermAuditRead},
		},
		{
			name:  "custom role shadows the built-in grant",
			roles: []string{"merchant"},
			customRoles: map[string][]string{
				"merchant": {authtoken.PermShopRead},
			},
			want:       []string{authtoken.PermShopRead},
			wantAbsent: []string{authtoken.PermShopWrite},
		},
		{
			name:  "custom role adds a new role name",
			roles: []string{"support"},
			customRoles: map[string][]string{
				"support": {authtoken.PermUserRead, authtoken.PermAuditRead},
			},
			want: []string{authtoken.PermUserRead, authtoken.PermAuditRead},
		},
		{
			name:       "unknown role resolves to nothing",
			roles:      []string{"nobody"},
			wantAbsent: []string{authtoken.PermShopRead},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			resolved := authtoken.ResolvePermissions(tc.roles, tc.direct, tc.customRoles)

			for _, p := range tc.want {
				s.True(authtoken.HasPermission(resolved, p), p)
			}
			for _, p := range tc.wantAbsent {
				s.False(authtoken.HasPermission(resolved, p), p)
			}
		})
	}
}

func (s *PermissionsPublicTestSuite) TestGenerateAllowedRoles() {
	roles := authtoken.GenerateAllowedRoles(authtoken.RoleHierarchy)

	s.Equal([]string{"customer", "merchant", "admin", "console"}, roles)

	// The returned slice is a copy.
	roles[0] = "mutated"
	s.Equal("customer", authtoken.RoleHierarchy[0])
}

func TestPermissionsPublicTestSuite(t *testing.T) {
	suite.Run(t, new(PermissionsPublicTestSuite))
}
