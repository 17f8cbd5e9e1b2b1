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
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/nats-io/nats.go"
)

// ensure KVStore implements the sink contracts at compile time.
var (
	_ Sink   = (*KVStore)(nil)
	_ Lister = (*KVStore)(nil)
	_ Purger = (*KVStore)(nil)
)

// KVStore is the durable audit sink backed by a NATS KeyValue bucket.
type KVStore struct {
	kv     nats.KeyValue
	logger *slog.Logger

	// maxRecordBytes is the size threshold above which a record is flagged.
	// Oversized records are still written.
	maxRecordBytes int
}

// NewKVStore creates a new KVStore.
func NewKVStore(
	logger *slog.Logger,
	kv nats.KeyValue,
	maxRecordBytes int,
) *KVStore {
	return &KVStore{
		kv:             kv,
		logger:         logger,
		maxRecordBytes: maxRecordBytes,
	}
}

// entryKey builds a lexically sortable key so newest-first listing works
// without reading every value.
func entryKey(
	record Record,
) string {
	return fmt.Sprintf(
		"%020d.%s",
		record.Timestamp.UnixNano(),
		record.OperationID,
	)
}

// Write persists an audit record to the KV bucket.
func (s *KVStore) Write(
	_ context.Context,
	record Record,
) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	if s.maxRecordBytes > 0 && len(data) > s.maxRecordBytes {
		s.logger.Warn(
			"oversized audit record",
			slog.String("operation_id", record.OperationID),
			slog.Int("bytes", len(data)),
		)
	}

	if _, err := s.kv.Put(entryKey(record), data); err != nil {
		return fmt.Errorf("put audit record: %w", err)
	}

	return nil
}

// List retrieves audit records with pagination, newest first.
func (s *KVStore) List(
	_ context.Context,
	limit int,
	offset int,
) ([]Record, int, error) {
	keys, err := s.kv.Keys()
	if err != nil {
		// nats.ErrNoKeysFound means the bucket is empty
		if err == nats.ErrNoKeysFound {
			return []Record{}, 0, nil
		}
		return nil, 0, fmt.Errorf("list audit keys: %w", err)
	}

	total := len(keys)

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	if offset >= total {
		return []Record{}, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	records := make([]Record, 0, end-offset)
	for _, key := range keys[offset:end] {
		kve, err := s.kv.Get(key)
		if err != nil {
			s.logger.Warn(
				"failed to get audit record",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			continue
		}

		var record Record
		if err := json.Unmarshal(kve.Value(), &record); err != nil {
			s.logger.Warn(
				"failed to unmarshal audit record",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			continue
		}

		records = append(records, record)
	}

	return records, total, nil
}

// PurgeOlderThan removes records created before cutoff. The timestamp prefix
// on each key makes the comparison cheap.
func (s *KVStore) PurgeOlderThan(
	_ context.Context,
	cutoff time.Time,
) (int, error) {
	keys, err := s.kv.Keys()
	if err != nil {
		if err == nats.ErrNoKeysFound {
			return 0, nil
		}
		return 0, fmt.Errorf("list audit keys: %w", err)
	}

	boundary := fmt.Sprintf("%020d.", cutoff.UnixNano())

	removed := 0
	for _, key := range keys {
		if key >= boundary {
			continue
		}
		if err := s.kv.Delete(key); err != nil {
			s.logger.Warn(
				"failed to purge audit record",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	return removed, nil
}
