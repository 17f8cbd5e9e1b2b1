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
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/retr0h/shopapi/internal/audit"
	"github.com/retr0h/shopapi/internal/cache"
)

// natsLifecycle adapts an embedded NATS server to the Lifecycle interface.
type natsLifecycle struct {
	server *server.Server
}

func (n *natsLifecycle) Start() {}

func (n *natsLifecycle) Stop(
	_ context.Context,
) {
	n.server.Shutdown()
	n.server.WaitForShutdown()
}

// setupBackend builds the shared counter/cache backend from configuration.
func setupBackend(
	ctx context.Context,
	log *slog.Logger,
) cache.Backend {
	if appConfig.Cache.Backend == "redis" {
		backend, err := cache.NewRedis(
			ctx,
			appConfig.Cache.Redis.Addr,
			appConfig.Cache.Redis.Password,
			appConfig.Cache.Redis.DB,
		)
		if err != nil {
			logFatal("failed to connect to redis", err)
		}
		log.Info("using redis cache backend", slog.String("addr", appConfig.Cache.Redis.Addr))
		return backend
	}

	log.Info("using in-memory cache backend")
	return cache.NewMemory()
}

// setupEmbeddedNATS starts an in-process NATS server with JetStream enabled
// and blocks until it accepts connections.
func setupEmbeddedNATS(
	log *slog.Logger,
) *server.Server {
	opts := &server.Options{
		JetStream: true,
		StoreDir:  appConfig.NATS.StoreDir,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		logFatal("failed to create embedded NATS server", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		logFatal("embedded NATS server not ready", context.DeadlineExceeded)
	}

	log.Info("embedded NATS server started", slog.String("url", ns.ClientURL()))

	return ns
}

// setupAuditSink builds the durable audit sink. When NATS is enabled the
// sink is a JetStream KV bucket; otherwise records go to the structured
// log. The returned cleanup closes the NATS connection.
func setupAuditSink(
	log *slog.Logger,
	url string,
) (audit.Sink, func()) {
	if !appConfig.NATS.Enabled {
		return audit.NewLogSink(log, appConfig.Audit.MaxRecordBytes), func() {}
	}

	nc, err := nats.Connect(url, nats.Name("shopapi-audit"))
	if err != nil {
		logFatal("failed to connect to NATS", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		logFatal("failed to get JetStream context", err)
	}

	bucket := appConfig.NATS.Audit.Bucket
	if bucket == "" {
		bucket = "audit"
	}

	kv, err := js.KeyValue(bucket)
	if err != nil {
		cfg := &nats.KeyValueConfig{
			Bucket: bucket,
		}
		if raw := appConfig.NATS.Audit.TTL; raw != "" {
			if ttl, parseErr := time.ParseDuration(raw); parseErr == nil {
				cfg.TTL = ttl
			}
		}
		if appConfig.NATS.Audit.Storage == "memory" {
			cfg.Storage = nats.MemoryStorage
		} else {
			cfg.Storage = nats.FileStorage
		}

		kv, err = js.CreateKeyValue(cfg)
		if err != nil {
			logFatal("failed to create audit KV bucket", err)
		}
	}

	log.Info("audit sink using NATS KV", slog.String("bucket", bucket))

	return audit.NewKVStore(log, kv, appConfig.Audit.MaxRecordBytes), func() { nc.Close() }
}

// auditMethodPatterns converts configured method+path pairs to the
// classifier's form.
func auditMethodPatterns() []audit.MethodPattern {
	patterns := make([]audit.MethodPattern, 0, len(appConfig.Audit.SensitiveMethodPaths))
	for _, p := range appConfig.Audit.SensitiveMethodPaths {
		patterns = append(patterns, audit.MethodPattern{
			Method:  p.Method,
			Pattern: p.Pattern,
		})
	}

	return patterns
}
