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

package perf

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// SystemStats are the most recent process-level indicators.
type SystemStats struct {
	// RSSBytes is the resident set size.
	RSSBytes uint64 `json:"rss_bytes"`
	// CPUPercent is the process CPU utilization.
	CPUPercent float64 `json:"cpu_percent"`
	// SampledAt is when the indicators were last refreshed.
	SampledAt time.Time `json:"sampled_at"`
}

// processFn is the function used to resolve the current process
// (injectable for testing).
var processFn = func() (*process.Process, error) {
	return process.NewProcess(int32(os.Getpid()))
}

// systemSampler refreshes process memory/CPU indicators, gated by a minimum
// interval since the last sample to bound overhead.
type systemSampler struct {
	mu       sync.Mutex
	logger   *slog.Logger
	interval time.Duration
	last     time.Time
	stats    SystemStats
	proc     *process.Process
}

func newSystemSampler(
	logger *slog.Logger,
	interval time.Duration,
) *systemSampler {
	return &systemSampler{
		logger:   logger,
		interval: interval,
	}
}

// maybeSample refreshes the indicators when the interval has elapsed.
func (s *systemSampler) maybeSample(
	now time.Time,
) {
	if s.interval <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.last) < s.interval {
		return
	}
	s.last = now

	if s.proc == nil {
		proc, err := processFn()
		if err != nil {
			s.logger.Warn(
				"failed to resolve process for sampling",
				slog.String("error", err.Error()),
			)
			return
		}
		s.proc = proc
	}

	stats := SystemStats{SampledAt: now}

	if mem, err := s.proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := s.proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}

	s.stats = stats
}

func (s *systemSampler) snapshot() SystemStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}
