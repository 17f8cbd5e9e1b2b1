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

package audit_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/shopapi/internal/audit"
)

type ClassifierPublicTestSuite struct {
	suite.Suite

	classifier *audit.Classifier
}

func (s *ClassifierPublicTestSuite) SetupTest() {
	s.classifier = audit.NewClassifier(
		slog.Default(),
		[]string{"user.delete", "iplist.update"},
		nil,
		nil,
	)
}

func (s *ClassifierPublicTestSuite) TestIsSensitive() {
	tests := []struct {
		name     string
		declared string
		method   string
		path     string
		want     bool
	}{
		{
			name:     "declared operation type wins",
			declared: "user.delete",
			method:   "GET",
			path:     "/anything",
			want:     true,
		},
		{
			name:     "undeclared operation falls through to path",
			declared: "shop.view",
			method:   "GET",
			path:     "/api/admin/users/42/delete",
			want:     true,
		},
		{
			name:   "password path",
			method: "POST",
			path:   "/api/user/password",
			want:   true,
		},
		{
			name:   "role assignment path",
			method: "PUT",
			path:   "/api/admin/users/42/roles",
			want:   true,
		},
		{
			name:   "destructive verb on any path",
			method: "DELETE",
			path:   "/api/merchant/shops/7",
			want:   true,
		},
		{
			name:   "iplist update combination",
			method: "PUT",
			path:   "/api/admin/iplist",
			want:   true,
		},
		{
			name:   "plain read is routine",
			method: "GET",
			path:   "/api/user/shops/1",
			want:   false,
		},
		{
			name:   "user view without delete suffix is routine",
			method: "GET",
			path:   "/api/admin/users/42",
			want:   false,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			got := s.classifier.IsSensitive(tt.declared, tt.method, tt.path)
			s.Equal(tt.want, got)
		})
	}
}

func TestClassifierPublicTestSuite(t *testing.T) {
	suite.Run(t, new(ClassifierPublicTestSuite))
}
