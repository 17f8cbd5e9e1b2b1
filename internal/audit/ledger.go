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
	"sync"
	"time"
)

// Ledger is the bounded in-process record of recent audit entries. Once the
// capacity is exceeded the oldest entry is evicted. Appends are single
// mutations under one lock so concurrent requests never lose updates.
type Ledger struct {
	mu       sync.Mutex
	records  []Record
	capacity int
}

// NewLedger creates a Ledger holding at most capacity records.
func NewLedger(
	capacity int,
) *Ledger {
	return &Ledger{
		records:  make([]Record, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a record, evicting the oldest entry past capacity.
func (l *Ledger) Append(
	record Record,
) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, record)
	if len(l.records) > l.capacity {
		l.records = l.records[1:]
	}
}

// Snapshot returns a copy of the current records, newest last.
func (l *Ledger) Snapshot() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)

	return out
}

// Len returns the current record count.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.records)
}

// PurgeOlderThan drops records with a timestamp before cutoff and returns
// how many were removed.
func (l *Ledger) PurgeOlderThan(
	cutoff time.Time,
) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.records[:0]
	for _, record := range l.records {
		if !record.Timestamp.Before(cutoff) {
			kept = append(kept, record)
		}
	}

	removed := len(l.records) - len(kept)
	l.records = kept

	return removed
}
