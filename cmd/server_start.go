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

package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/retr0h/shopapi/internal/api"
	"github.com/retr0h/shopapi/internal/audit"
	"github.com/retr0h/shopapi/internal/cache"
	"github.com/retr0h/shopapi/internal/cli"
	"github.com/retr0h/shopapi/internal/lockout"
	"github.com/retr0h/shopapi/internal/perf"
	"github.com/retr0h/shopapi/internal/ratelimit"
	"github.com/retr0h/shopapi/internal/store"
	"github.com/retr0h/shopapi/internal/telemetry"
)

// serverStartCmd represents the serverStart command.
var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server",
	Long: `Start the API server.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		shutdownTracer, err := telemetry.InitTracer(
			ctx,
			"shopapi",
			appConfig.Telemetry.Tracing,
		)
		if err != nil {
			logFatal("failed to initialize tracer", err)
		}

		metricsHandler, metricsPath, shutdownMeter, err := telemetry.InitMeter(
			appConfig.Telemetry.Metrics,
		)
		if err != nil {
			logFatal("failed to initialize meter", err)
		}

		backend := setupBackend(ctx, logger.With("component", "cache"))

		cacheStore := cache.NewStore(
			logger.With("component", "cache"),
			backend,
			appConfig.Cache.MaxTTLSeconds,
		)

		policies := policiesFromConfig()
		limiter := ratelimit.New(
			logger.With("component", "ratelimit"),
			backend,
			policies,
		)

		tracker := lockout.New(
			logger.With("component", "lockout"),
			backend,
			appConfig.Lockout.MaxFailures,
		)

		var natsServer *natsLifecycle
		natsURL := appConfig.NATS.URL
		if appConfig.NATS.Enabled && appConfig.NATS.Embedded {
			ns := setupEmbeddedNATS(logger.With("component", "nats"))
			natsServer = &natsLifecycle{server: ns}
			natsURL = ns.ClientURL()
		}

		sink, closeSink := setupAuditSink(
			logger.With("component", "audit"),
			natsURL,
		)

		classifier := audit.NewClassifier(
			logger.With("component", "audit"),
			appConfig.Audit.SensitiveOperations,
			appConfig.Audit.SensitivePaths,
			auditMethodPatterns(),
		)

		recorder := audit.NewRecorder(
			logger.With("component", "audit"),
			classifier,
			audit.NewLedger(appConfig.Audit.LedgerCapacity),
			sink,
			appConfig.Audit.CaptureResponseBody,
			time.Duration(appConfig.Audit.RetentionDays)*24*time.Hour,
		)
		if err := recorder.StartSweep(appConfig.Audit.SweepSchedule); err != nil {
			logFatal("failed to schedule audit sweep", err)
		}

		sampler := perf.New(
			logger.With("component", "perf"),
			time.Duration(appConfig.Perf.SlowThresholdMs)*time.Millisecond,
			appConfig.Perf.WindowSize,
			appConfig.Perf.SlowCapacity,
			appConfig.Perf.ErrorCapacity,
			time.Duration(appConfig.Perf.SystemSampleSeconds)*time.Second,
		)

		dataSource := store.NewMemory()

		srv := api.New(
			appConfig,
			logger.With("component", "api"),
			api.WithCacheStore(cacheStore),
			api.WithLimiter(limiter),
			api.WithTracker(tracker),
			api.WithRecorder(recorder),
			api.WithSampler(sampler),
			api.WithShopSource(dataSource),
			api.WithUserSource(dataSource),
			api.WithIPListSource(dataSource),
		)

		if err := srv.RegisterRoutes(); err != nil {
			logFatal("failed to register routes", err)
		}
		srv.RegisterMetrics(metricsHandler, metricsPath)

		srv.Start()
		if natsServer != nil {
			cli.RunServer(ctx, &compositeLifecycle{
				components: []cli.Lifecycle{srv, natsServer},
			}, serverCleanup(recorder, closeSink, shutdownMeter, shutdownTracer))
			return
		}

		cli.RunServer(
			ctx,
			srv,
			serverCleanup(recorder, closeSink, shutdownMeter, shutdownTracer),
		)
	},
}

// serverCleanup bundles the shutdown steps shared by both run modes.
func serverCleanup(
	recorder *audit.Recorder,
	closeSink func(),
	shutdownMeter func(context.Context) error,
	shutdownTracer func(context.Context) error,
) func() {
	return func() {
		recorder.StopSweep()
		closeSink()
		_ = shutdownMeter(context.Background())
		_ = shutdownTracer(context.Background())
	}
}

// policiesFromConfig converts configured policies to the limiter's form,
// falling back to the built-in table when none are configured.
func policiesFromConfig() map[string]ratelimit.Policy {
	if len(appConfig.RateLimit.Policies) == 0 {
		return ratelimit.DefaultPolicies()
	}

	policies := make(map[string]ratelimit.Policy, len(appConfig.RateLimit.Policies))
	for name, p := range appConfig.RateLimit.Policies {
		window, err := time.ParseDuration(p.Window)
		if err != nil {
			// Validate already rejected unparseable windows.
			continue
		}
		policies[name] = ratelimit.Policy{
			Window: window,
			Limits: p.Limits,
		}
	}

	return policies
}

func init() {
	serverCmd.AddCommand(serverStartCmd)
}
