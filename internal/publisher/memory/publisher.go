// Package memory contains an in-memory export sink for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

// Exporter stores exported records for inspection.
type Exporter struct {
	mu      sync.RWMutex
	records []ingest.ScoredRecord
	closed  bool
}

// New returns a memory Exporter.
func New() *Exporter {
	return &Exporter{}
}

// Export records the message.
func (e *Exporter) Export(_ context.Context, rec ingest.ScoredRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = append(e.records, rec)
	return nil
}

// Close marks the exporter closed. Records stay readable.
func (e *Exporter) Close(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Closed reports whether Close was called.
func (e *Exporter) Closed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

// Records returns a copy of the exported records.
func (e *Exporter) Records() []ingest.ScoredRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]ingest.ScoredRecord, len(e.records))
	copy(out, e.records)
	return out
}

var _ ingest.Exporter = (*Exporter)(nil)
