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

package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Recorder classifies requests, appends finalized records to the bounded
// ledger, and forwards them to the durable sink. Sink writes are
// asynchronous so recording never adds latency, and a sink failure is
// logged, never propagated.
type Recorder struct {
	logger     *slog.Logger
	classifier *Classifier
	ledger     *Ledger
	sink       Sink

	// captureResponse permits capture of response bodies. Request bodies of
	// sensitive operations are always captured regardless of this flag.
	captureResponse bool

	// retention is how long records are kept before the sweep removes them.
	retention time.Duration

	cron *cron.Cron
}

// NewRecorder creates a Recorder.
func NewRecorder(
	logger *slog.Logger,
	classifier *Classifier,
	ledger *Ledger,
	sink Sink,
	captureResponse bool,
	retention time.Duration,
) *Recorder {
	return &Recorder{
		logger:          logger,
		classifier:      classifier,
		ledger:          ledger,
		sink:            sink,
		captureResponse: captureResponse,
		retention:       retention,
	}
}

// Classifier exposes the recorder's sensitivity classifier.
func (r *Recorder) Classifier() *Classifier {
	return r.classifier
}

// Ledger exposes the recorder's bounded ledger.
func (r *Recorder) Ledger() *Ledger {
	return r.ledger
}

// CaptureResponse reports whether response bodies may be captured.
func (r *Recorder) CaptureResponse() bool {
	return r.captureResponse
}

// Record finalizes one audit record: risk metadata is stamped, the record is
// appended to the ledger, and the durable write happens off the request
// path.
func (r *Recorder) Record(
	ctx context.Context,
	record Record,
) {
	record.Category = Category

	if record.RiskLevel == "" {
		record.RiskLevel = RiskRoutine
		if r.classifier.IsSensitive(
			record.OperationType,
			record.Method,
			record.Path,
		) {
			record.RiskLevel = RiskSensitive
		}
	}

	// Non-sensitive records never retain bodies; sensitive ones always keep
	// the request body, and the response body only when permitted.
	if record.RiskLevel != RiskSensitive {
		record.RequestBody = ""
	}
	if !r.captureResponse {
		record.ResponseBody = ""
	}

	r.ledger.Append(record)

	if r.sink == nil {
		return
	}

	go func() {
		writeCtx, cancel := context.WithTimeout(
			context.WithoutCancel(ctx),
			5*time.Second,
		)
		defer cancel()

		if err := r.sink.Write(writeCtx, record); err != nil {
			r.logger.Warn(
				"failed to write audit record",
				slog.String("error", err.Error()),
				slog.String("operation_id", record.OperationID),
			)
		}
	}()
}

// StartSweep schedules the retention sweep. Records older than the
// configured retention are purged from the ledger and, when the sink
// supports it, from durable storage.
func (r *Recorder) StartSweep(
	schedule string,
) error {
	r.cron = cron.New()

	_, err := r.cron.AddFunc(schedule, func() {
		cutoff := time.Now().Add(-r.retention)

		removed := r.ledger.PurgeOlderThan(cutoff)

		if purger, ok := r.sink.(Purger); ok {
			ctx, cancel := context.WithTimeout(
				context.Background(),
				time.Minute,
			)
			defer cancel()

			purged, err := purger.PurgeOlderThan(ctx, cutoff)
			if err != nil {
				r.logger.Warn(
					"audit retention sweep failed",
					slog.String("error", err.Error()),
				)
			}
			removed += purged
		}

		if removed > 0 {
			r.logger.Info(
				"audit retention sweep",
				slog.Int("removed", removed),
				slog.Time("cutoff", cutoff),
			)
		}
	})
	if err != nil {
		return err
	}

	r.cron.Start()

	return nil
}

// StopSweep stops the scheduled retention sweep.
func (r *Recorder) StopSweep() {
	if r.cron != nil {
		r.cron.Stop()
	}
}
