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

package cmd

import (
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/retr0h/shopapi/internal/audit"
	"github.com/retr0h/shopapi/internal/audit/export"
)

const exportBatchSize = 100

// auditExportCmd represents the auditExport command.
var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the durable audit trail to a file",
	Long: `Export the durable audit trail to a file.

Reads audit records from the NATS KV bucket and writes them to the given
path as JSON lines, newest first.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		output, _ := cmd.Flags().GetString("output")
		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			url = appConfig.NATS.URL
		}
		if url == "" {
			url = nats.DefaultURL
		}

		nc, err := nats.Connect(url, nats.Name("shopapi-audit-export"))
		if err != nil {
			logFatal("failed to connect to NATS", err)
		}
		defer nc.Close()

		js, err := nc.JetStream()
		if err != nil {
			logFatal("failed to get JetStream context", err)
		}

		bucket := appConfig.NATS.Audit.Bucket
		if bucket == "" {
			bucket = "audit"
		}

		kv, err := js.KeyValue(bucket)
		if err != nil {
			logFatal("failed to open audit bucket", err, "bucket", bucket)
		}

		kvStore := audit.NewKVStore(logger, kv, appConfig.Audit.MaxRecordBytes)
		exporter := export.NewFileExporter(appFs, output)

		result, err := export.Run(
			cmd.Context(),
			logger,
			kvStore.List,
			exporter,
			exportBatchSize,
			func(exported int, total int) {
				logger.Debug(
					"export progress",
					slog.Int("exported", exported),
					slog.Int("total", total),
				)
			},
		)
		if err != nil {
			logFatal("failed to export audit records", err)
		}

		logger.Info(
			"exported audit records",
			slog.Int("exported", result.ExportedRecords),
			slog.Int("total", result.TotalRecords),
			slog.String("output", output),
		)
	},
}

func init() {
	auditCmd.AddCommand(auditExportCmd)

	auditExportCmd.PersistentFlags().
		StringP("output", "o", "audit.jsonl", "File to write JSON lines records to")
	auditExportCmd.PersistentFlags().
		StringP("url", "u", "", "NATS server URL (defaults to the configured audit sink URL)")
}
