package ingest

import (
	"context"
	"io"
)

// ObjectStore lists and streams archive files from a bucket.
type ObjectStore interface {
	List(ctx context.Context) ([]WorkItem, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Counters is a grow-only, concurrency-safe counter map shared by all workers.
// Get and Snapshot may lag concurrent Add calls.
type Counters interface {
	Add(name string, delta int64)
	Get(name string) int64
	Snapshot() Snapshot
}

// Emitter accepts records produced by a worker.
type Emitter interface {
	Push(ctx context.Context, rec AcceptedRecord) error
}

// Scorer returns one score per input document, in input order.
type Scorer interface {
	Score(ctx context.Context, docs []string) ([]float64, error)
}

// Exporter durably appends scored records to an output sink.
type Exporter interface {
	Export(ctx context.Context, rec ScoredRecord) error
	Close(ctx context.Context) error
}
