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
	"encoding/json"
	"log/slog"
)

// ensure LogSink implements Sink at compile time.
var _ Sink = (*LogSink)(nil)

// LogSink writes audit records to the structured log, routed by category.
// Records above the size threshold are still accepted but flagged.
type LogSink struct {
	logger *slog.Logger

	// maxRecordBytes is the size threshold above which a record is flagged.
	maxRecordBytes int
}

// NewLogSink creates a LogSink.
func NewLogSink(
	logger *slog.Logger,
	maxRecordBytes int,
) *LogSink {
	return &LogSink{
		logger:         logger,
		maxRecordBytes: maxRecordBytes,
	}
}

// Write emits one record as a structured log line.
func (s *LogSink) Write(
	_ context.Context,
	record Record,
) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	attrs := []any{
		slog.String("category", record.Category),
		slog.String("operation_id", record.OperationID),
		slog.String("operation_type", record.OperationType),
		slog.String("risk_level", record.RiskLevel),
		slog.String("record", string(data)),
	}
	if s.maxRecordBytes > 0 && len(data) > s.maxRecordBytes {
		attrs = append(attrs, slog.Bool("oversized", true))
	}

	if record.RiskLevel == RiskSensitive {
		s.logger.Warn("audit", attrs...)
	} else {
		s.logger.Info("audit", attrs...)
	}

	return nil
}
