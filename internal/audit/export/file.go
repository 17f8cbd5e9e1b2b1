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

package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"

	"github.com/retr0h/shopapi/internal/audit"
)

// ensure FileExporter implements Exporter at compile time.
var _ Exporter = (*FileExporter)(nil)

// FileExporter writes audit records as JSON lines to a file.
type FileExporter struct {
	appFs afero.Fs
	path  string

	file   afero.File
	writer *bufio.Writer
}

// NewFileExporter creates a new FileExporter for the given path.
func NewFileExporter(
	appFs afero.Fs,
	path string,
) *FileExporter {
	return &FileExporter{
		appFs: appFs,
		path:  path,
	}
}

// Open creates the output file and prepares for writing.
func (e *FileExporter) Open(
	_ context.Context,
) error {
	f, err := e.appFs.Create(e.path)
	if err != nil {
		return fmt.Errorf("opening export file: %w", err)
	}

	e.file = f
	e.writer = bufio.NewWriter(f)

	return nil
}

// Write marshals an audit record to JSON and writes it as a single line.
func (e *FileExporter) Write(
	_ context.Context,
	record audit.Record,
) error {
	if e.writer == nil {
		return fmt.Errorf("exporter not opened")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	if _, err := e.writer.Write(data); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	if err := e.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing record separator: %w", err)
	}

	return nil
}

// Close flushes buffered records and closes the file.
func (e *FileExporter) Close(
	_ context.Context,
) error {
	if e.writer != nil {
		if err := e.writer.Flush(); err != nil {
			return fmt.Errorf("flushing export file: %w", err)
		}
	}
	if e.file != nil {
		if err := e.file.Close(); err != nil {
			return fmt.Errorf("closing export file: %w", err)
		}
	}

	return nil
}
