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

// Package api assembles the Echo server, the per-audience pipelines, and
// the resource handlers.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/retr0h/shopapi/internal/api/auditlog"
	"github.com/retr0h/shopapi/internal/api/health"
	"github.com/retr0h/shopapi/internal/api/iplist"
	"github.com/retr0h/shopapi/internal/api/perfreport"
	"github.com/retr0h/shopapi/internal/api/product"
	"github.com/retr0h/shopapi/internal/api/shop"
	"github.com/retr0h/shopapi/internal/api/user"
	"github.com/retr0h/shopapi/internal/authtoken"
	"github.com/retr0h/shopapi/internal/config"
	"github.com/retr0h/shopapi/internal/pipeline"
	"github.com/retr0h/shopapi/internal/ratelimit"
)

// New initialize a new Server and configure an Echo server.
func New(
	appConfig config.Config,
	logger *slog.Logger,
	opts ...Option,
) *Server {
	e := echo.New()
	e.HideBanner = true

	corsConfig := middleware.CORSConfig{}
	allowOrigins := appConfig.API.Server.Security.CORS.AllowOrigins
	if len(allowOrigins) > 0 {
		corsConfig.AllowOrigins = allowOrigins
	}

	e.Use(otelecho.Middleware("shopapi"))
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(corsConfig))

	e.HTTPErrorHandler = pipeline.ErrorHandler(logger)

	var customRoles map[string][]string
	if cfgRoles := appConfig.API.Server.Security.Roles; len(cfgRoles) > 0 {
		customRoles = make(map[string][]string, len(cfgRoles))
		for name, role := range cfgRoles {
			customRoles[name] = role.Permissions
		}
	}

	s := &Server{
		Echo:        e,
		logger:      logger,
		appConfig:   appConfig,
		customRoles: customRoles,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// registry builds the stage registry every audience pipeline resolves
// against. Each identifier maps to one shared stage instance; the
// descriptor's policy field parameterizes rate limit policies and cache
// namespaces.
func (s *Server) registry(
	audience string,
) pipeline.Registry {
	signingKey := s.appConfig.API.Server.Security.SigningKey
	tokenTTL := s.cacheTier("token", 300)

	return pipeline.Registry{
		"audience": func(_ pipeline.Descriptor) (pipeline.Stage, error) {
			return pipeline.AudienceStage(audience), nil
		},
		"perf": func(_ pipeline.Descriptor) (pipeline.Stage, error) {
			return pipeline.PerfStage(s.sampler), nil
		},
		"audit": func(_ pipeline.Descriptor) (pipeline.Stage, error) {
			return pipeline.Boundary(
				s.logger,
				pipeline.AuditStage(s.recorder),
			), nil
		},
		"ratelimit": func(d pipeline.Descriptor) (pipeline.Stage, error) {
			policy := d.Policy
			if policy == "" {
				policy = ratelimit.PolicyStandard
			}
			return pipeline.RateLimitStage(s.logger, s.limiter, policy), nil
		},
		"auth": func(_ pipeline.Descriptor) (pipeline.Stage, error) {
			stage := pipeline.AuthStage(
				s.logger,
				authtoken.New(s.logger),
				signingKey,
				s.customRoles,
				s.cacheStore,
				tokenTTL,
			)
			return pipeline.When(notAnonymousRoute, stage), nil
		},
		"cache": func(d pipeline.Descriptor) (pipeline.Stage, error) {
			namespace := d.Policy
			if namespace == "" {
				return pipeline.Stage{}, fmt.Errorf(
					"cache stage requires a namespace policy",
				)
			}
			return pipeline.ResponseCacheStage(
				s.logger,
				s.cacheStore,
				namespace,
				s.cacheTier(namespace, 60),
				principalScopedRoute,
			), nil
		},
	}
}

// descriptors returns the ordered pipeline definition for an audience.
// Admission runs before auth so unauthenticated floods are shed cheaply;
// audit and perf wrap everything below them so they observe the final
// outcome.
func descriptors(
	audience string,
) []pipeline.Descriptor {
	d := []pipeline.Descriptor{
		{Stage: "audience"},
		{Stage: "perf"},
		{Stage: "audit"},
	}

	switch audience {
	case pipeline.AudienceAdmin, pipeline.AudienceConsole:
		d = append(d, pipeline.Descriptor{Stage: "ratelimit", Policy: ratelimit.PolicySensitive})
	default:
		d = append(d, pipeline.Descriptor{Stage: "ratelimit", Policy: ratelimit.PolicyStandard})
	}

	d = append(d, pipeline.Descriptor{Stage: "auth"})

	switch audience {
	case pipeline.AudienceUser, pipeline.AudienceMerchant:
		d = append(d, pipeline.Descriptor{Stage: "cache", Policy: "response"})
	}

	return d
}

// notAnonymousRoute excludes the handful of routes reachable without a
// token from the auth stage.
func notAnonymousRoute(
	c echo.Context,
) bool {
	switch c.Path() {
	case "/api/user/login", "/health", "/metrics":
		return false
	}

	return true
}

// principalScopedRoute marks routes whose response depends on the caller,
// not just the tenant, so their cache entries are keyed per principal.
func principalScopedRoute(
	c echo.Context,
) bool {
	return c.Path() == "/api/user/me"
}

// cacheTier returns the configured TTL for a namespace, or the fallback.
func (s *Server) cacheTier(
	namespace string,
	fallback int,
) int {
	if ttl, ok := s.appConfig.Cache.Tiers[namespace]; ok {
		return ttl
	}

	return fallback
}

// RegisterRoutes resolves one pipeline per audience and mounts every
// resource handler under its audience group.
func (s *Server) RegisterRoutes() error {
	healthHandler := health.New(s.logger)
	s.Echo.GET("/health", healthHandler.Get)

	shopHandler := shop.New(s.logger, s.shops, s.cacheStore, s.cacheTier("shop", 300))
	productHandler := product.New(s.logger, s.shops, s.cacheStore, s.cacheTier("product", 120))
	userHandler := user.New(
		s.logger,
		s.users,
		s.tracker,
		s.cacheStore,
		s.appConfig.API.Server.Security.SigningKey,
		s.customRoles,
	)
	ipListHandler := iplist.New(s.logger, s.ipList, s.cacheStore, s.cacheTier("iplist", 300))
	auditHandler := auditlog.New(s.logger, s.recorder)
	perfHandler := perfreport.New(s.logger, s.sampler)

	loginLimit := pipeline.RateLimitStage(
		s.logger, s.limiter, ratelimit.PolicyLogin,
	).Middleware()
	batchLimit := pipeline.RateLimitStage(
		s.logger, s.limiter, ratelimit.PolicyBatch,
	).Middleware()
	exportLimit := pipeline.RateLimitStage(
		s.logger, s.limiter, ratelimit.PolicyExport,
	).Middleware()

	for _, audience := range pipeline.Audiences {
		chain, err := pipeline.Resolve(
			s.logger,
			audience,
			descriptors(audience),
			s.registry(audience),
		)
		if err != nil {
			return fmt.Errorf("resolving %s pipeline: %w", audience, err)
		}

		s.logger.Info(
			"pipeline assembled",
			slog.String("audience", audience),
			slog.Any("stages", chain.StageNames()),
		)

		g := s.Echo.Group("/api/"+audience, chain.Middleware())

		switch audience {
		case pipeline.AudienceUser:
			g.POST("/login", userHandler.Login,
				loginLimit,
				pipeline.Operation("user.login"))
			g.GET("/shops", shopHandler.List)
			g.GET("/shops/:id", shopHandler.Get)
			g.GET("/shops/:id/products", productHandler.ListByShop, batchLimit)
			g.GET("/products/:id", productHandler.Get)
			g.GET("/me", userHandler.Me)

		case pipeline.AudienceMerchant:
			g.GET("/shops", shopHandler.List)
			g.GET("/shops/:id", shopHandler.Get)
			g.GET("/shops/:id/products", productHandler.ListByShop, batchLimit)
			g.DELETE("/shops/:id", shopHandler.Delete,
				pipeline.RequirePermission(authtoken.PermShopWrite),
				pipeline.Operation("shop.delete"))

		case pipeline.AudienceAdmin:
			g.GET("/users/:id", userHandler.Get,
				pipeline.RequirePermission(authtoken.PermUserRead))
			g.POST("/users/:id/delete", userHandler.Delete,
				pipeline.RequirePermission(authtoken.PermUserWrite),
				pipeline.Operation("user.delete"))
			g.PUT("/users/:id/roles", userHandler.SetRoles,
				pipeline.RequirePermission(authtoken.PermUserWrite),
				pipeline.Operation("user.roles"))
			g.GET("/iplist", ipListHandler.Get,
				pipeline.RequirePermission(authtoken.PermIPListRead))
			g.PUT("/iplist", ipListHandler.Put,
				pipeline.RequirePermission(authtoken.PermIPListWrite),
				pipeline.Operation("iplist.update"))

		case pipeline.AudienceConsole:
			g.GET("/audit", auditHandler.List,
				pipeline.RequirePermission(authtoken.PermAuditRead))
			g.POST("/audit/export", auditHandler.Export,
				exportLimit,
				pipeline.RequirePermission(authtoken.PermAuditRead),
				pipeline.Operation("audit.export"))
			g.GET("/perf", perfHandler.Get,
				pipeline.RequirePermission(authtoken.PermPerfRead))
		}
	}

	return nil
}

// RegisterMetrics mounts the Prometheus scrape handler.
func (s *Server) RegisterMetrics(
	handler http.Handler,
	path string,
) {
	s.Echo.GET(path, echo.WrapHandler(handler))
}

// Start starts the Echo server with the configured port.
func (s *Server) Start() {
	go func() {
		s.logger.Info("starting server")
		listenAddr := fmt.Sprintf(":%d", s.appConfig.API.Server.Port)
		if err := s.Echo.Start(listenAddr); err != nil && err != http.ErrServerClosed {
			s.logger.Error(
				"failed to start server",
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Stop gracefully shuts down the Echo server.
func (s *Server) Stop(
	ctx context.Context,
) {
	s.logger.Info("stopping server")

	if err := s.Echo.Shutdown(ctx); err != nil {
		s.logger.Error(
			"server shutdown failed",
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("server stopped gracefully")
	}
}
