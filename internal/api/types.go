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

package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/shopapi/internal/audit"
	"github.com/retr0h/shopapi/internal/cache"
	"github.com/retr0h/shopapi/internal/config"
	"github.com/retr0h/shopapi/internal/lockout"
	"github.com/retr0h/shopapi/internal/perf"
	"github.com/retr0h/shopapi/internal/ratelimit"
	"github.com/retr0h/shopapi/internal/store"
)

// Server wraps the Echo instance plus every injected collaborator the
// handlers and pipelines use. Nothing here is a singleton; construction
// happens once in the command layer and everything arrives through
// options.
type Server struct {
	Echo        *echo.Echo
	logger      *slog.Logger
	appConfig   config.Config
	customRoles map[string][]string

	cacheStore *cache.Store
	limiter    *ratelimit.Limiter
	tracker    *lockout.Tracker
	recorder   *audit.Recorder
	sampler    *perf.Sampler

	shops  store.ShopSource
	users  store.UserSource
	ipList store.IPListSource
}

// Option is a functional option for Server.
type Option func(*Server)

// WithCacheStore sets the cache-aside store.
func WithCacheStore(s *cache.Store) Option {
	return func(srv *Server) { srv.cacheStore = s }
}

// WithLimiter sets the rate limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(srv *Server) { srv.limiter = l }
}

// WithTracker sets the login-attempt tracker.
func WithTracker(t *lockout.Tracker) Option {
	return func(srv *Server) { srv.tracker = t }
}

// WithRecorder sets the audit recorder.
func WithRecorder(r *audit.Recorder) Option {
	return func(srv *Server) { srv.recorder = r }
}

// WithSampler sets the performance sampler.
func WithSampler(s *perf.Sampler) Option {
	return func(srv *Server) { srv.sampler = s }
}

// WithShopSource sets the shop data source.
func WithShopSource(s store.ShopSource) Option {
	return func(srv *Server) { srv.shops = s }
}

// WithUserSource sets the user data source.
func WithUserSource(s store.UserSource) Option {
	return func(srv *Server) { srv.users = s }
}

// WithIPListSource sets the IP list data source.
func WithIPListSource(s store.IPListSource) Option {
	return func(srv *Server) { srv.ipList = s }
}
