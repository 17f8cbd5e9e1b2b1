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

// Package config defines the typed configuration surface consumed by the
// request pipeline and API server.
package config

// Config represents the root structure of the YAML configuration file.
// This struct is used to unmarshal configuration data from Viper.
type Config struct {
	API       API       `mapstructure:"api"        mask:"struct"`
	Cache     Cache     `mapstructure:"cache"      mask:"struct"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
	Lockout   Lockout   `mapstructure:"lockout"`
	Audit     Audit     `mapstructure:"audit"`
	Perf      Perf      `mapstructure:"perf"`
	NATS      NATS      `mapstructure:"nats"`
	Telemetry Telemetry `mapstructure:"telemetry"`
	// Debug enable or disable debug option set from CLI.
	Debug bool `mapstructure:"debug"`
}

// API configuration settings.
type API struct {
	Server Server `mapstructure:"server" mask:"struct"`
}

// Server configuration settings.
type Server struct {
	// Port the server will bind to.
	Port int `mapstructure:"port"`
	// Security contains security-related configuration for the server.
	Security ServerSecurity `mapstructure:"security" mask:"struct"`
}

// CustomRole defines a named set of permissions that can be assigned to
// tokens.
type CustomRole struct {
	// Permissions granted to this role.
	Permissions []string `mapstructure:"permissions"`
}

// ServerSecurity represents security-related settings for the server.
type ServerSecurity struct {
	// CORS Cross-Origin Resource Sharing (CORS) settings for the server.
	CORS CORS `mapstructure:"cors"`
	// SigningKey is the key used for signing or validating tokens.
	SigningKey string `mapstructure:"signing_key" validate:"required" mask:"password"`
	// Roles defines custom roles with fine-grained permissions.
	Roles map[string]CustomRole `mapstructure:"roles"`
}

// CORS represents the CORS (Cross-Origin Resource Sharing) settings.
type CORS struct {
	// List of origins allowed to access the server (e.g., "foo").
	AllowOrigins []string `mapstructure:"allow_origins,omitempty"`
}

// Cache configuration settings.
type Cache struct {
	// Backend selects "redis" or "memory".
	Backend string `mapstructure:"backend" validate:"omitempty,oneof=redis memory"`
	// Redis connection settings, used when Backend is "redis".
	Redis Redis `mapstructure:"redis" mask:"struct"`
	// Tiers maps cache namespace to TTL in whole seconds.
	Tiers map[string]int `mapstructure:"tiers"`
	// MaxTTLSeconds is the oversized-TTL warning threshold; values above it
	// are logged but not rejected.
	MaxTTLSeconds int `mapstructure:"max_ttl_seconds"`
}

// Redis connection settings.
type Redis struct {
	// Addr is the host:port of the redis server.
	Addr string `mapstructure:"addr"`
	// Password for the redis server.
	Password string `mapstructure:"password" mask:"password"`
	// DB selects the redis logical database.
	DB int `mapstructure:"db"`
}

// RateLimitPolicy holds the window and per-audience ceilings for one policy.
type RateLimitPolicy struct {
	// Window is the fixed window length, e.g. "1m", "30s".
	Window string `mapstructure:"window"`
	// Limits maps audience to ceiling; the "default" entry applies to any
	// audience without an explicit ceiling.
	Limits map[string]int `mapstructure:"limits"`
}

// RateLimit configuration settings.
type RateLimit struct {
	// Policies maps policy name (login, standard, sensitive, batch, export)
	// to its window/ceiling configuration.
	Policies map[string]RateLimitPolicy `mapstructure:"policies"`
}

// Lockout configuration settings.
type Lockout struct {
	// MaxFailures is the consecutive-failure count that locks a principal
	// until the next day boundary.
	MaxFailures int `mapstructure:"max_failures"`
}

// AuditMethodPattern pairs an HTTP method with a path regex.
type AuditMethodPattern struct {
	Method  string `mapstructure:"method"`
	Pattern string `mapstructure:"pattern"`
}

// Audit configuration settings.
type Audit struct {
	// RetentionDays is how long audit records are kept.
	RetentionDays int `mapstructure:"retention_days"`
	// LedgerCapacity bounds the in-process ledger.
	LedgerCapacity int `mapstructure:"ledger_capacity"`
	// CaptureResponseBody permits response body capture.
	CaptureResponseBody bool `mapstructure:"capture_response_body"`
	// MaxRecordBytes flags (but does not reject) records above this size.
	MaxRecordBytes int `mapstructure:"max_record_bytes"`
	// SweepSchedule is the cron spec for the retention sweep.
	SweepSchedule string `mapstructure:"sweep_schedule"`
	// SensitiveOperations are declared operation types always classified
	// sensitive.
	SensitiveOperations []string `mapstructure:"sensitive_operations"`
	// SensitivePaths are path regexes always classified sensitive.
	SensitivePaths []string `mapstructure:"sensitive_paths"`
	// SensitiveMethodPaths are method+path combinations classified sensitive.
	SensitiveMethodPaths []AuditMethodPattern `mapstructure:"sensitive_method_paths"`
}

// Perf configuration settings.
type Perf struct {
	// SlowThresholdMs marks requests above this duration as slow.
	SlowThresholdMs int `mapstructure:"slow_threshold_ms"`
	// WindowSize bounds the recent-duration window used for percentiles.
	WindowSize int `mapstructure:"window_size"`
	// SlowCapacity bounds the slow-request list.
	SlowCapacity int `mapstructure:"slow_capacity"`
	// ErrorCapacity bounds the recent-error list.
	ErrorCapacity int `mapstructure:"error_capacity"`
	// SystemSampleSeconds is the minimum interval between process-level
	// memory/CPU samples.
	SystemSampleSeconds int `mapstructure:"system_sample_seconds"`
}

// NATS configuration settings for the durable audit sink.
type NATS struct {
	// Enabled turns the NATS-backed audit sink on.
	Enabled bool `mapstructure:"enabled"`
	// URL of the NATS server to connect to.
	URL string `mapstructure:"url"`
	// Embedded starts an in-process NATS server instead of connecting out.
	Embedded bool `mapstructure:"embedded"`
	// StoreDir is the JetStream storage directory for the embedded server.
	StoreDir string `mapstructure:"store_dir"`
	// Audit holds the audit bucket settings.
	Audit NATSAudit `mapstructure:"audit,omitempty"`
}

// NATSAudit configuration for the audit log KV bucket.
type NATSAudit struct {
	// Bucket is the KV bucket name for audit records.
	Bucket string `mapstructure:"bucket"`
	// TTL for bucket entries, e.g. "720h" (30 days).
	TTL string `mapstructure:"ttl"`
	// Storage is "file" or "memory".
	Storage string `mapstructure:"storage"`
}

// Telemetry configuration settings.
type Telemetry struct {
	Tracing TracingConfig `mapstructure:"tracing,omitempty"`
	Metrics MetricsConfig `mapstructure:"metrics,omitempty"`
}

// MetricsConfig configuration settings for Prometheus metrics.
type MetricsConfig struct {
	// Path is the HTTP path for the Prometheus scrape endpoint.
	// Defaults to "/metrics" when empty.
	Path string `mapstructure:"path"`
}

// TracingConfig configuration settings for distributed tracing.
type TracingConfig struct {
	// Enabled enables or disables tracing.
	Enabled bool `mapstructure:"enabled"`
	// Exporter selects the trace exporter: "stdout" or "otlp".
	Exporter string `mapstructure:"exporter"`
	// OTLPEndpoint is the gRPC endpoint for the OTLP exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}
