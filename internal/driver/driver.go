// Package driver coordinates a run: it starts the producer side in the
// background, drains the result bridge, scores records in batches and
// forwards those above the threshold to the exporter.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/webarchive-ingest/internal/counters"
	"github.com/JakeFAU/webarchive-ingest/internal/dispatcher"
	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
	"github.com/JakeFAU/webarchive-ingest/internal/queue/memory"
)

// Producer enumerates the store and feeds the bridge, publishing the
// sentinel when done.
type Producer interface {
	Feed(ctx context.Context, store ingest.ObjectStore) error
}

// Source is the consumer end of the bridge. Next returns memory.ErrDrained
// after the sentinel.
type Source interface {
	Next(ctx context.Context) (ingest.AcceptedRecord, error)
}

// Config tunes the consumer loop.
type Config struct {
	BatchSize int
	// Threshold is exclusive: a record is exported when its score is above it.
	Threshold      float64
	ReportInterval time.Duration
	// TopDomains bounds the per-domain detail in periodic reports.
	TopDomains int
}

// Deps are the collaborators of a run.
type Deps struct {
	Store    ingest.ObjectStore
	Producer Producer
	Source   Source
	Scorer   ingest.Scorer
	Exporter ingest.Exporter
	Counters ingest.Counters
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Exported int64
	Rejected int64
	Duration time.Duration
	Counters ingest.Snapshot
}

// Driver runs the consumer side of a pipeline.
type Driver struct {
	deps   Deps
	cfg    Config
	runID  string
	logger *zap.Logger
}

// New creates a Driver.
func New(deps Deps, cfg Config, runID string, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.TopDomains == 0 {
		cfg.TopDomains = 5
	}
	return &Driver{deps: deps, cfg: cfg, runID: runID, logger: logger.With(zap.String("run_id", runID))}
}

// Run blocks until the bridge is drained or a fatal collaborator error
// occurs. Records exported before a failure stay exported, and the summary
// is populated on every path.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	produced := make(chan error, 1)
	go func() {
		produced <- d.deps.Producer.Feed(ctx, d.deps.Store)
	}()

	stopReport := d.startReporter(ctx)
	exported, rejected, consumeErr := d.consume(ctx)
	if consumeErr != nil {
		cancel()
	}
	prodErr := <-produced
	stopReport()

	var runErr error
	switch {
	case consumeErr != nil:
		runErr = consumeErr
	case errors.Is(prodErr, dispatcher.ErrList):
		runErr = prodErr
	case prodErr != nil:
		d.logger.Warn("some archive files failed", zap.Error(prodErr))
	}

	summary := Summary{
		RunID:    d.runID,
		Exported: exported,
		Rejected: rejected,
		Duration: time.Since(start),
		Counters: d.deps.Counters.Snapshot(),
	}
	fields := append(counters.Fields(summary.Counters, d.cfg.TopDomains),
		zap.Int64("exported", exported),
		zap.Duration("duration", summary.Duration),
	)
	if runErr != nil {
		d.logger.Error("run failed", append(fields, zap.Error(runErr))...)
		return summary, runErr
	}
	d.logger.Info("run finished", fields...)
	return summary, nil
}

func (d *Driver) consume(ctx context.Context) (exported, rejected int64, err error) {
	batch := make([]ingest.AcceptedRecord, 0, d.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		p, r, ferr := d.flush(ctx, batch)
		exported += p
		rejected += r
		batch = batch[:0]
		return ferr
	}

	for {
		rec, nerr := d.deps.Source.Next(ctx)
		if errors.Is(nerr, memory.ErrDrained) {
			break
		}
		if nerr != nil {
			return exported, rejected, fmt.Errorf("next record: %w", nerr)
		}
		batch = append(batch, rec)
		if len(batch) >= d.cfg.BatchSize {
			if ferr := flush(); ferr != nil {
				return exported, rejected, ferr
			}
		}
	}
	if ferr := flush(); ferr != nil {
		return exported, rejected, ferr
	}
	return exported, rejected, nil
}

func (d *Driver) flush(ctx context.Context, batch []ingest.AcceptedRecord) (passed, rejected int64, err error) {
	docs := make([]string, len(batch))
	for i, rec := range batch {
		docs[i] = rec.HTML
	}
	scores, err := d.deps.Scorer.Score(ctx, docs)
	if err != nil {
		return 0, 0, fmt.Errorf("score batch: %w", err)
	}
	if len(scores) != len(batch) {
		return 0, 0, fmt.Errorf("score batch: got %d scores for %d records", len(scores), len(batch))
	}
	for i, rec := range batch {
		if scores[i] <= d.cfg.Threshold {
			rejected++
			d.deps.Counters.Add(ingest.CounterDriverFilterRejected, 1)
			continue
		}
		out := ingest.ScoredRecord{AcceptedRecord: rec, Score: scores[i], RunID: d.runID}
		if err := d.deps.Exporter.Export(ctx, out); err != nil {
			return passed, rejected, fmt.Errorf("export %s: %w", rec.URL, err)
		}
		passed++
		d.deps.Counters.Add(ingest.CounterDriverFilterPassed, 1)
	}
	return passed, rejected, nil
}

// startReporter logs a counter snapshot every ReportInterval until the
// returned stop function is called.
func (d *Driver) startReporter(ctx context.Context) func() {
	if d.cfg.ReportInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(d.cfg.ReportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				d.logger.Info("progress", counters.Fields(d.deps.Counters.Snapshot(), d.cfg.TopDomains)...)
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}
