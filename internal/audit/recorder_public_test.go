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

package audit_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/shopapi/internal/audit"
)

// captureSink records every write it receives.
type captureSink struct {
	mu      sync.Mutex
	records []audit.Record
}

var _ audit.Sink = (*captureSink)(nil)

func (s *captureSink) Write(
	_ context.Context,
	record audit.Record,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *captureSink) snapshot() []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Record, len(s.records))
	copy(out, s.records)
	return out
}

type RecorderPublicTestSuite struct {
	suite.Suite

	ctx      context.Context
	sink     *captureSink
	ledger   *audit.Ledger
	recorder *audit.Recorder
}

func (s *RecorderPublicTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.sink = &captureSink{}
	s.ledger = audit.NewLedger(10)
	s.recorder = audit.NewRecorder(
		slog.Default(),
		audit.NewClassifier(slog.Default(), []string{"user.delete"}, nil, nil),
		s.ledger,
		s.sink,
		false,
		30*24*time.Hour,
	)
}

func (s *RecorderPublicTestSuite) record(
	opType string,
	method string,
	path string,
) audit.Record {
	return audit.Record{
		OperationID:   "op-1",
		OperationType: opType,
		Timestamp:     time.Now(),
		Audience:      "admin",
		Method:        method,
		Path:          path,
		RequestBody:   `{"secret":"value"}`,
		ResponseBody:  `{"ok":true}`,
		ResponseCode:  200,
		Success:       true,
	}
}

func (s *RecorderPublicTestSuite) TestStampsRiskAndCategory() {
	s.recorder.Record(s.ctx, s.record("user.delete", "POST", "/api/admin/users/1/delete"))

	records := s.ledger.Snapshot()
	s.Len(records, 1)
	s.Equal(audit.RiskSensitive, records[0].RiskLevel)
	s.Equal(audit.Category, records[0].Category)
}

func (s *RecorderPublicTestSuite) TestRoutineDropsRequestBody() {
	s.recorder.Record(s.ctx, s.record("shop.view", "GET", "/api/user/shops/1"))

	records := s.ledger.Snapshot()
	s.Len(records, 1)
	s.Equal(audit.RiskRoutine, records[0].RiskLevel)
	s.Empty(records[0].RequestBody)
}

func (s *RecorderPublicTestSuite) TestSensitiveKeepsRequestBody() {
	s.recorder.Record(s.ctx, s.record("user.delete", "POST", "/api/admin/users/1/delete"))

	records := s.ledger.Snapshot()
	s.Equal(`{"secret":"value"}`, records[0].RequestBody)
}

func (s *RecorderPublicTestSuite) TestResponseBodyNeedsPermission() {
	s.recorder.Record(s.ctx, s.record("user.delete", "POST", "/api/admin/users/1/delete"))
	s.Empty(s.ledger.Snapshot()[0].ResponseBody)

	permitted := audit.NewRecorder(
		slog.Default(),
		audit.NewClassifier(slog.Default(), []string{"user.delete"}, nil, nil),
		audit.NewLedger(10),
		nil,
		true,
		30*24*time.Hour,
	)
	record := s.record("user.delete", "POST", "/api/admin/users/1/delete")
	permitted.Record(s.ctx, record)
	s.Equal(`{"ok":true}`, permitted.Ledger().Snapshot()[0].ResponseBody)
}

func (s *RecorderPublicTestSuite) TestSinkWriteIsAsync() {
	s.recorder.Record(s.ctx, s.record("user.delete", "POST", "/api/admin/users/1/delete"))

	s.Eventually(func() bool {
		return len(s.sink.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func (s *RecorderPublicTestSuite) TestCancelledContextStillRecords() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.recorder.Record(ctx, s.record("user.delete", "POST", "/api/admin/users/1/delete"))

	s.Equal(1, s.ledger.Len())
	s.Eventually(func() bool {
		return len(s.sink.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRecorderPublicTestSuite(t *testing.T) {
	suite.Run(t, new(RecorderPublicTestSuite))
}

type LedgerPublicTestSuite struct {
	suite.Suite
}

func (s *LedgerPublicTestSuite) TestEviction() {
	ledger := audit.NewLedger(3)

	for i := 0; i < 5; i++ {
		ledger.Append(audit.Record{OperationID: string(rune('a' + i))})
	}

	records := ledger.Snapshot()
	s.Len(records, 3)
	s.Equal("c", records[0].OperationID, "oldest entries evicted first")
	s.Equal("e", records[2].OperationID)
}

func (s *LedgerPublicTestSuite) TestPurgeOlderThan() {
	ledger := audit.NewLedger(10)
	now := time.Now()

	ledger.Append(audit.Record{OperationID: "old", Timestamp: now.Add(-48 * time.Hour)})
	ledger.Append(audit.Record{OperationID: "recent", Timestamp: now})

	removed := ledger.PurgeOlderThan(now.Add(-24 * time.Hour))
	s.Equal(1, removed)
	s.Equal(1, ledger.Len())
	s.Equal("recent", ledger.Snapshot()[0].OperationID)
}

func TestLedgerPublicTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerPublicTestSuite))
}
