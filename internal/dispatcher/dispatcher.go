// Package dispatcher runs one worker task per archive file and publishes the
// end-of-stream sentinel once every task has finished.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

// ErrList marks a failure to enumerate the source bucket. Unlike a file
// failure it leaves the run with nothing to process.
var ErrList = errors.New("list archive files")

// Task processes a single work item.
type Task interface {
	Run(ctx context.Context, item ingest.WorkItem) error
}

// Finisher receives the end-of-stream signal.
type Finisher interface {
	Finish()
}

// Observer is notified around every task. *metrics.Metrics implements it.
type Observer interface {
	FileStarted()
	FileDone(outcome string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) FileStarted() {}
func (nopObserver) FileDone(string, time.Duration) {}

// Config bounds executor concurrency.
type Config struct {
	// MaxParallel caps concurrent tasks; zero runs every item at once.
	MaxParallel int
	// FileTimeout bounds a single task; zero means no limit.
	FileTimeout time.Duration
}

// Executor fans work items out to tasks.
type Executor struct {
	task     Task
	sink     Finisher
	counters ingest.Counters
	cfg      Config
	observer Observer
	logger   *zap.Logger
}

// New creates an Executor.
func New(task Task, sink Finisher, counters ingest.Counters, cfg Config, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		task:     task,
		sink:     sink,
		counters: counters,
		cfg:      cfg,
		observer: nopObserver{},
		logger:   logger,
	}
}

// WithObserver attaches o and returns the executor.
func (e *Executor) WithObserver(o Observer) *Executor {
	if o != nil {
		e.observer = o
	}
	return e
}

// Run executes every item and blocks until all have finished. The sentinel
// is published on every exit path, including an empty item list, a canceled
// context and panics. File failures are counted and logged; the joined
// error is returned for callers that want it.
func (e *Executor) Run(ctx context.Context, items []ingest.WorkItem) error {
	defer e.sink.Finish()
	if len(items) == 0 {
		e.logger.Info("no archive files to process")
		return nil
	}

	limit := e.cfg.MaxParallel
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	p := pool.NewWithResults[error]().WithMaxGoroutines(limit)
	for _, item := range items {
		p.Go(func() error {
			return e.runOne(ctx, item)
		})
	}

	var failed []error
	for _, err := range p.Wait() {
		if err != nil {
			failed = append(failed, err)
		}
	}
	e.logger.Info("executor finished",
		zap.Int("files", len(items)),
		zap.Int("failed", len(failed)),
	)
	return errors.Join(failed...)
}

func (e *Executor) runOne(ctx context.Context, item ingest.WorkItem) error {
	if e.cfg.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.FileTimeout)
		defer cancel()
	}

	e.observer.FileStarted()
	start := time.Now()

	var err error
	var pc panics.Catcher
	pc.Try(func() {
		err = e.task.Run(ctx, item)
	})
	if recovered := pc.Recovered(); recovered != nil {
		err = fmt.Errorf("task panic: %v", recovered.Value)
	}
	if err != nil {
		e.observer.FileDone("failed", time.Since(start))
		e.counters.Add(ingest.CounterFilesFailed, 1)
		e.logger.Error("file failed", zap.String("file", item.Key), zap.Error(err))
		return fmt.Errorf("%s: %w", item.Key, err)
	}
	e.observer.FileDone("finished", time.Since(start))
	return nil
}

// Feed lists the store and runs the executor over the result. A listing
// failure still publishes the sentinel.
func (e *Executor) Feed(ctx context.Context, store ingest.ObjectStore) error {
	items, err := store.List(ctx)
	if err != nil {
		e.sink.Finish()
		return fmt.Errorf("%w: %w", ErrList, err)
	}
	e.logger.Info("listed archive files", zap.Int("files", len(items)))
	return e.Run(ctx, items)
}
