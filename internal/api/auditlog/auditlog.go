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

// Package auditlog serves the console's view of the audit trail.
package auditlog

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/shopapi/internal/audit"
	"github.com/retr0h/shopapi/internal/audit/export"
)

const defaultBatchSize = 100

// AuditLog handles audit trail endpoints.
type AuditLog struct {
	logger   *slog.Logger
	recorder *audit.Recorder
}

// New creates an AuditLog handler.
func New(
	logger *slog.Logger,
	recorder *audit.Recorder,
) *AuditLog {
	return &AuditLog{
		logger:   logger,
		recorder: recorder,
	}
}

// List returns recent audit records, newest first.
func (a *AuditLog) List(
	c echo.Context,
) error {
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	records := a.recorder.Ledger().Snapshot()

	// Snapshot is oldest-first; serve newest-first.
	out := make([]audit.Record, 0, limit)
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, records[i])
	}

	return c.JSON(http.StatusOK, map[string]any{
		"total":   len(records),
		"records": out,
	})
}

// streamExporter writes records as JSON lines directly to the HTTP
// response.
type streamExporter struct {
	writer *bufio.Writer
}

var _ export.Exporter = (*streamExporter)(nil)

func (e *streamExporter) Open(
	_ context.Context,
) error {
	return nil
}

func (e *streamExporter) Write(
	_ context.Context,
	record audit.Record,
) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if _, err := e.writer.Write(data); err != nil {
		return err
	}
	return e.writer.WriteByte('\n')
}

func (e *streamExporter) Close(
	_ context.Context,
) error {
	return e.writer.Flush()
}

// Export streams the full audit trail as JSON lines.
func (a *AuditLog) Export(
	c echo.Context,
) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
	c.Response().WriteHeader(http.StatusOK)

	records := a.recorder.Ledger().Snapshot()

	fetcher := func(_ context.Context, limit int, offset int) ([]audit.Record, int, error) {
		if offset >= len(records) {
			return nil, len(records), nil
		}
		end := offset + limit
		if end > len(records) {
			end = len(records)
		}
		return records[offset:end], len(records), nil
	}

	exporter := &streamExporter{
		writer: bufio.NewWriter(c.Response()),
	}

	result, err := export.Run(
		c.Request().Context(),
		a.logger,
		fetcher,
		exporter,
		defaultBatchSize,
		nil,
	)
	if err != nil {
		a.logger.Error(
			"audit export failed",
			slog.String("error", err.Error()),
		)
		return nil
	}

	a.logger.Info(
		"audit export complete",
		slog.Int("exported", result.ExportedRecords),
		slog.Int("total", result.TotalRecords),
	)

	return nil
}
