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

// Package perf records per-request timing samples and process-level
// indicators for reporting.
package perf

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Percentiles are estimated over the bounded recent-sample window.
type Percentiles struct {
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

// SlowRequest captures full context for a request exceeding the slow
// threshold.
type SlowRequest struct {
	Route     string        `json:"route"`
	Audience  string        `json:"audience"`
	Status    int           `json:"status"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// ErrorSample captures a recent failed request.
type ErrorSample struct {
	Route     string    `json:"route"`
	Audience  string    `json:"audience"`
	Status    int       `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RouteStats are running aggregates for one route+audience pair.
type RouteStats struct {
	Count    int64         `json:"count"`
	Failures int64         `json:"failures"`
	Min      time.Duration `json:"min"`
	Max      time.Duration `json:"max"`
	Avg      time.Duration `json:"avg"`
}

// Report is the sampler's externally visible snapshot.
type Report struct {
	TotalRequests int64                 `json:"total_requests"`
	TotalFailures int64                 `json:"total_failures"`
	Min           time.Duration         `json:"min"`
	Max           time.Duration         `json:"max"`
	Avg           time.Duration         `json:"avg"`
	Percentiles   Percentiles           `json:"percentiles"`
	Statuses      map[int]int64         `json:"statuses"`
	Routes        map[string]RouteStats `json:"routes"`
	SlowRequests  []SlowRequest         `json:"slow_requests"`
	RecentErrors  []ErrorSample         `json:"recent_errors"`
	System        SystemStats           `json:"system"`
}

// Sampler accumulates per-request samples. All mutation happens under one
// lock as plain in-memory arithmetic; nothing here blocks on I/O.
type Sampler struct {
	mu sync.Mutex

	total    int64
	failures int64
	min      time.Duration
	max      time.Duration
	sum      time.Duration
	statuses map[int]int64
	routes   map[string]*RouteStats

	// window holds the most recent durations, bounded with FIFO eviction.
	// Percentiles are recomputed with a full resort on every insertion; the
	// O(n log n) cost is acceptable at this window size.
	window     []time.Duration
	windowSize int
	pcts       Percentiles

	slowThreshold time.Duration
	slow          []SlowRequest
	slowCapacity  int
	errs          []ErrorSample
	errCapacity   int

	system *systemSampler

	requests metric.Int64Counter
	latency  metric.Float64Histogram
	logger   *slog.Logger

	nowFn func() time.Time
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithClock overrides the sampler's time source.
func WithClock(
	nowFn func() time.Time,
) Option {
	return func(s *Sampler) {
		s.nowFn = nowFn
	}
}

// New creates a Sampler.
func New(
	logger *slog.Logger,
	slowThreshold time.Duration,
	windowSize int,
	slowCapacity int,
	errCapacity int,
	systemInterval time.Duration,
	opts ...Option,
) *Sampler {
	meter := otel.Meter("github.com/retr0h/shopapi/internal/perf")
	requests, err := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Requests observed by the performance sampler."),
	)
	if err != nil {
		logger.Warn(
			"failed to create request counter",
			slog.String("error", err.Error()),
		)
	}

	latency, err := meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("Request duration observed by the performance sampler."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Warn(
			"failed to create duration histogram",
			slog.String("error", err.Error()),
		)
	}

	s := &Sampler{
		statuses:      make(map[int]int64),
		routes:        make(map[string]*RouteStats),
		window:        make([]time.Duration, 0, windowSize),
		windowSize:    windowSize,
		slowThreshold: slowThreshold,
		slowCapacity:  slowCapacity,
		errCapacity:   errCapacity,
		system:        newSystemSampler(logger, systemInterval),
		requests:      requests,
		latency:       latency,
		logger:        logger,
		nowFn:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Observe records one completed request.
func (s *Sampler) Observe(
	ctx context.Context,
	route string,
	audience string,
	status int,
	duration time.Duration,
	reqErr error,
) {
	now := s.nowFn()
	failed := reqErr != nil || status >= 500

	s.mu.Lock()

	s.total++
	if failed {
		s.failures++
	}
	s.sum += duration
	if s.min == 0 || duration < s.min {
		s.min = duration
	}
	if duration > s.max {
		s.max = duration
	}
	s.statuses[status]++

	routeKey := audience + " " + route
	rs, ok := s.routes[routeKey]
	if !ok {
		rs = &RouteStats{}
		s.routes[routeKey] = rs
	}
	rs.Count++
	if failed {
		rs.Failures++
	}
	if rs.Min == 0 || duration < rs.Min {
		rs.Min = duration
	}
	if duration > rs.Max {
		rs.Max = duration
	}
	rs.Avg = time.Duration((int64(rs.Avg)*(rs.Count-1) + int64(duration)) / rs.Count)

	if len(s.window) == s.windowSize {
		s.window = s.window[1:]
	}
	s.window = append(s.window, duration)
	s.pcts = computePercentiles(s.window)

	if s.slowThreshold > 0 && duration >= s.slowThreshold {
		if len(s.slow) == s.slowCapacity {
			s.slow = s.slow[1:]
		}
		s.slow = append(s.slow, SlowRequest{
			Route:     route,
			Audience:  audience,
			Status:    status,
			Duration:  duration,
			Timestamp: now,
		})
	}

	if failed {
		sample := ErrorSample{
			Route:     route,
			Audience:  audience,
			Status:    status,
			Timestamp: now,
		}
		if reqErr != nil {
			sample.Error = reqErr.Error()
		}
		if len(s.errs) == s.errCapacity {
			s.errs = s.errs[1:]
		}
		s.errs = append(s.errs, sample)
	}

	s.mu.Unlock()

	if s.requests != nil {
		s.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("route", route),
			attribute.String("audience", audience),
			attribute.Int("status", status),
		))
	}
	if s.latency != nil {
		s.latency.Record(ctx, float64(duration)/float64(time.Millisecond),
			metric.WithAttributes(
				attribute.String("route", route),
				attribute.String("audience", audience),
			))
	}

	// Process-level sampling is interval-gated, not per-request.
	s.system.maybeSample(now)
}

// computePercentiles sorts a copy of the window and reads the quantile
// indexes.
func computePercentiles(
	window []time.Duration,
) Percentiles {
	if len(window) == 0 {
		return Percentiles{}
	}

	sorted := make([]time.Duration, len(window))
	copy(sorted, window)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	at := func(q float64) time.Duration {
		idx := int(q*float64(len(sorted))+0.5) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}

	return Percentiles{
		P50: at(0.50),
		P90: at(0.90),
		P95: at(0.95),
		P99: at(0.99),
	}
}

// Report returns a snapshot of all aggregates.
func (s *Sampler) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := Report{
		TotalRequests: s.total,
		TotalFailures: s.failures,
		Min:           s.min,
		Max:           s.max,
		Percentiles:   s.pcts,
		Statuses:      make(map[int]int64, len(s.statuses)),
		Routes:        make(map[string]RouteStats, len(s.routes)),
		SlowRequests:  append([]SlowRequest(nil), s.slow...),
		RecentErrors:  append([]ErrorSample(nil), s.errs...),
		System:        s.system.snapshot(),
	}
	if s.total > 0 {
		report.Avg = time.Duration(int64(s.sum) / s.total)
	}
	for status, count := range s.statuses {
		report.Statuses[status] = count
	}
	for route, rs := range s.routes {
		report.Routes[route] = *rs
	}

	return report
}
