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

// Package audit provides request classification, recording, and retention
// for the audit trail.
package audit

import (
	"context"
	"time"
)

// Risk levels attached to audit records.
const (
	RiskRoutine   = "routine"
	RiskSensitive = "sensitive"
)

// Category carried by every audit record into the durable sink so the sink
// can route it to the security/audit destination.
const Category = "security/audit"

// Actor identifies who performed an operation.
type Actor struct {
	// ID is the principal identifier (JWT subject).
	ID string `json:"id"`
	// Roles are the principal's roles at request time.
	Roles []string `json:"roles,omitempty"`
	// Tenant is the tenant scope the principal acted under.
	Tenant string `json:"tenant,omitempty"`
}

// Record is a single audit trail entry. It is created at request start and
// finalized at response completion.
type Record struct {
	// OperationID is unique per request.
	OperationID string `json:"operation_id"`
	// OperationType is the declared operation tag, or inferred from
	// method+path when no tag was declared.
	OperationType string `json:"operation_type"`
	// Timestamp is when the request started.
	Timestamp time.Time `json:"timestamp"`
	// Audience is the API surface the request arrived on.
	Audience string `json:"audience"`
	// Actor is the authenticated principal, nil for anonymous requests.
	Actor *Actor `json:"actor,omitempty"`
	// Method is the HTTP method.
	Method string `json:"method"`
	// Path is the request URL path.
	Path string `json:"path"`
	// SourceIP is the client's IP address.
	SourceIP string `json:"source_ip"`
	// RequestBody is captured in full for sensitive operations regardless of
	// global logging configuration.
	RequestBody string `json:"request_body,omitempty"`
	// ResponseBody is captured only when the global flag permits it.
	ResponseBody string `json:"response_body,omitempty"`
	// ResponseCode is the HTTP status of the outcome.
	ResponseCode int `json:"response_code"`
	// DurationMs is the request processing time in milliseconds.
	DurationMs int64 `json:"duration_ms"`
	// Success reports whether the request completed without error.
	Success bool `json:"success"`
	// Error holds the error detail for failed outcomes.
	Error string `json:"error,omitempty"`
	// RiskLevel is "routine" or "sensitive".
	RiskLevel string `json:"risk_level"`
	// Category routes the record in the durable sink.
	Category string `json:"category"`
}

// Sink accepts finalized audit records for durable storage.
type Sink interface {
	// Write persists one record.
	Write(ctx context.Context, record Record) error
}

// Purger is implemented by sinks that support retention sweeps.
type Purger interface {
	// PurgeOlderThan removes records created before cutoff and returns how
	// many were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Lister is implemented by sinks that can enumerate stored records.
type Lister interface {
	// List retrieves records with pagination, newest first.
	List(ctx context.Context, limit int, offset int) ([]Record, int, error)
}
