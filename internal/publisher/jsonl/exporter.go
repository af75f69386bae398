// Package jsonl appends exported documents to a newline-delimited JSON file.
package jsonl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
	"github.com/JakeFAU/webarchive-ingest/internal/publisher"
)

// ErrClosed is returned by Export after Close.
var ErrClosed = errors.New("jsonl exporter closed")

// Exporter appends one JSON document per line. Lines are flushed per record
// so a crash loses at most the record being written.
type Exporter struct {
	mu    sync.Mutex
	file  *os.File
	w     *bufio.Writer
	clock ingest.Clock
}

// New opens path for appending, creating parent directories as needed.
func New(path string, clock ingest.Clock) (*Exporter, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	// #nosec G304 -- output path comes from operator configuration.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Exporter{file: f, w: bufio.NewWriter(f), clock: clock}, nil
}

// Export implements ingest.Exporter.
func (e *Exporter) Export(_ context.Context, rec ingest.ScoredRecord) error {
	line, err := publisher.Marshal(publisher.NewDocument(rec, e.clock.Now()))
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return ErrClosed
	}
	if _, err := e.w.Write(line); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush document: %w", err)
	}
	return nil
}

// Close syncs and closes the file. Further calls are no-ops.
func (e *Exporter) Close(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return nil
	}
	f := e.file
	e.file = nil
	flushErr := e.w.Flush()
	syncErr := f.Sync()
	closeErr := f.Close()
	if err := errors.Join(flushErr, syncErr, closeErr); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

var _ ingest.Exporter = (*Exporter)(nil)
