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

package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// correlationKey is where WithCorrelationID stores the request correlation
// ID in a context.
type correlationKey struct{}

// WithCorrelationID returns a context carrying the request correlation ID,
// so log lines emitted below the handler tie back to the audit record for
// the same request.
func WithCorrelationID(
	ctx context.Context,
	id string,
) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// enrichHandler wraps a slog.Handler and stamps each record with the active
// span's trace_id and span_id plus the request correlation ID, when either
// is present on the context.
type enrichHandler struct {
	inner slog.Handler
}

// NewTraceHandler creates a slog.Handler that enriches records from the
// context before delegating to the inner handler.
func NewTraceHandler(
	inner slog.Handler,
) slog.Handler {
	return &enrichHandler{inner: inner}
}

// Enabled reports whether the inner handler handles records at the given level.
func (h *enrichHandler) Enabled(
	ctx context.Context,
	level slog.Level,
) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle stamps trace and correlation attributes, then delegates to the
// inner handler.
func (h *enrichHandler) Handle(
	ctx context.Context,
	record slog.Record,
) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	if id, ok := ctx.Value(correlationKey{}).(string); ok && id != "" {
		record.AddAttrs(slog.String("correlation_id", id))
	}

	return h.inner.Handle(ctx, record)
}

// WithAttrs returns a new handler with the given attributes.
func (h *enrichHandler) WithAttrs(
	attrs []slog.Attr,
) slog.Handler {
	return &enrichHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *enrichHandler) WithGroup(
	name string,
) slog.Handler {
	return &enrichHandler{inner: h.inner.WithGroup(name)}
}
