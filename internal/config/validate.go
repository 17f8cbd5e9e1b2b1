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

package config

import (
	"fmt"
	"time"

	"github.com/retr0h/shopapi/internal/validation"
)

// Defaults applied when the file omits a value.
const (
	DefaultPort             = 8080
	DefaultLedgerCapacity   = 1000
	DefaultRetentionDays    = 30
	DefaultSweepSchedule    = "@hourly"
	DefaultMaxFailures      = 10
	DefaultSlowThresholdMs  = 1000
	DefaultPerfWindowSize   = 256
	DefaultPerfSlowCap      = 100
	DefaultPerfErrorCap     = 100
	DefaultSystemSampleSecs = 30
	DefaultMaxTTLSeconds    = 86400
)

// Validate checks the unmarshalled configuration and fills in defaults.
func Validate(
	cfg *Config,
) error {
	if cfg.API.Server.Port == 0 {
		cfg.API.Server.Port = DefaultPort
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.MaxTTLSeconds == 0 {
		cfg.Cache.MaxTTLSeconds = DefaultMaxTTLSeconds
	}
	if cfg.Audit.LedgerCapacity == 0 {
		cfg.Audit.LedgerCapacity = DefaultLedgerCapacity
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = DefaultRetentionDays
	}
	if cfg.Audit.SweepSchedule == "" {
		cfg.Audit.SweepSchedule = DefaultSweepSchedule
	}
	if cfg.Lockout.MaxFailures == 0 {
		cfg.Lockout.MaxFailures = DefaultMaxFailures
	}
	if cfg.Perf.SlowThresholdMs == 0 {
		cfg.Perf.SlowThresholdMs = DefaultSlowThresholdMs
	}
	if cfg.Perf.WindowSize == 0 {
		cfg.Perf.WindowSize = DefaultPerfWindowSize
	}
	if cfg.Perf.SlowCapacity == 0 {
		cfg.Perf.SlowCapacity = DefaultPerfSlowCap
	}
	if cfg.Perf.ErrorCapacity == 0 {
		cfg.Perf.ErrorCapacity = DefaultPerfErrorCap
	}
	if cfg.Perf.SystemSampleSeconds == 0 {
		cfg.Perf.SystemSampleSeconds = DefaultSystemSampleSecs
	}

	for name, policy := range cfg.RateLimit.Policies {
		if policy.Window == "" {
			return fmt.Errorf("rate limit policy %q: window is required", name)
		}
		if _, err := time.ParseDuration(policy.Window); err != nil {
			return fmt.Errorf("rate limit policy %q: %w", name, err)
		}
	}

	if errMsg, ok := validation.Struct(cfg); !ok {
		return fmt.Errorf("invalid configuration: %s", errMsg)
	}

	return nil
}
