// Package worker implements the per-file processing task: stream one archive
// file, run every record through the filter chain and emit the survivors.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/webarchive-ingest/internal/filter"
	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
	"github.com/JakeFAU/webarchive-ingest/internal/warc"
)

// Evaluator decides the fate of a single record.
type Evaluator interface {
	Evaluate(rec *warc.Record) (ingest.AcceptedRecord, filter.Verdict)
}

// Task processes archive files. One Task may run many files concurrently; all
// mutable state lives in the shared Counters and Emitter.
type Task struct {
	store    ingest.ObjectStore
	chain    Evaluator
	emitter  ingest.Emitter
	counters ingest.Counters
	opts     warc.Options
	logger   *zap.Logger
	tracer   trace.Tracer
}

// New constructs a Task.
func New(
	store ingest.ObjectStore,
	chain Evaluator,
	emitter ingest.Emitter,
	counters ingest.Counters,
	opts warc.Options,
	logger *zap.Logger,
) *Task {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Task{
		store:    store,
		chain:    chain,
		emitter:  emitter,
		counters: counters,
		opts:     opts,
		logger:   logger,
		tracer:   otel.Tracer("webarchive-ingest/worker"),
	}
}

type fileStats struct {
	read     int64
	accepted int64
	failed   int64
}

// Run streams item to completion. Per-record failures are counted and
// skipped; the returned error means the file as a whole could not be
// processed. filesFinished is incremented only on success.
func (t *Task) Run(ctx context.Context, item ingest.WorkItem) (err error) {
	ctx, span := t.tracer.Start(ctx, "worker.file",
		trace.WithAttributes(
			attribute.String("warc.key", item.Key),
			attribute.Int64("warc.size", item.Size),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := t.store.Open(ctx, item.Key)
	if err != nil {
		return fmt.Errorf("open %s: %w", item.Key, err)
	}
	defer func() {
		if cerr := body.Close(); cerr != nil {
			t.logger.Warn("close archive stream", zap.String("file", item.Key), zap.Error(cerr))
		}
	}()

	rd, err := warc.NewReader(body, t.opts)
	if err != nil {
		return fmt.Errorf("decode %s: %w", item.Key, err)
	}
	defer func() {
		if cerr := rd.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("decode %s: %w", item.Key, cerr)
		}
	}()

	var stats fileStats
	for {
		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("process %s: %w", item.Key, cerr)
		}
		rec, nerr := rd.Next()
		if errors.Is(nerr, io.EOF) {
			break
		}
		if nerr != nil {
			if !warc.IsRecordError(nerr) {
				return fmt.Errorf("read %s: %w", item.Key, nerr)
			}
			stats.read++
			stats.failed++
			t.counters.Add(ingest.CounterRecordsRead, 1)
			t.countRecordError(item.Key, nerr)
			continue
		}
		stats.read++
		t.counters.Add(ingest.CounterRecordsRead, 1)
		if rec.Truncated {
			t.counters.Add(ingest.CounterRecordsOversized, 1)
		}

		out, verdict := t.chain.Evaluate(rec)
		t.counters.Add(verdict.Reason, 1)
		if verdict.Err != nil {
			stats.failed++
			t.logger.Debug("record failed",
				zap.String("file", item.Key),
				zap.String("uri", rec.TargetURI),
				zap.Error(verdict.Err),
			)
		}
		if !verdict.Accepted {
			continue
		}
		out.SourceFile = item.Key
		if perr := t.emitter.Push(ctx, out); perr != nil {
			return fmt.Errorf("emit record from %s: %w", item.Key, perr)
		}
		stats.accepted++
	}

	t.counters.Add(ingest.CounterFilesFinished, 1)
	span.SetAttributes(
		attribute.Int64("warc.records_read", stats.read),
		attribute.Int64("warc.records_accepted", stats.accepted),
	)
	t.logger.Info("file finished",
		zap.String("file", item.Key),
		zap.Int64("records_read", stats.read),
		zap.Int64("records_accepted", stats.accepted),
		zap.Int64("records_failed", stats.failed),
	)
	return nil
}

func (t *Task) countRecordError(key string, err error) {
	if errors.Is(err, warc.ErrRecordTooLarge) {
		t.counters.Add(ingest.CounterRecordsOversized, 1)
		return
	}
	t.counters.Add(ingest.CounterUnhandledExceptions, 1)
	t.logger.Debug("malformed record", zap.String("file", key), zap.Error(err))
}
