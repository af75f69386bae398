// Package main hosts the ingest entrypoint.
//
// Architecture overview:
//   - Source: internal/storage lists the archive files of one bucket (local directory, S3-compatible via
//     minio, GCS, or memory) and streams each one.
//   - Executor: internal/dispatcher runs one worker task per file on a conc pool, optionally bounded by
//     executor.max_parallel, and finishes the result bridge exactly once after every task returned.
//   - Worker: internal/worker decodes the file with internal/warc and runs every record through the
//     internal/filter chain (type, content type, charset, language, schema marker, domain quota).
//     Survivors are stripped of markup, labeled and pushed into the bridge.
//   - Driver: internal/driver drains the bridge, scores records in batches (internal/scoring) and exports
//     those above the threshold through internal/publisher (JSON lines, Pub/Sub, or memory).
//   - Plumbing: Viper loads config from file and INGEST_* env vars; zap provides structured logging;
//     counters are exposed through Prometheus at /metrics when metrics.addr is set.
//
// Quick checklist:
//   - List what a run would read: go run . list --config config.yaml
//   - Run once: go run . run --config config.yaml
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/JakeFAU/webarchive-ingest/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
