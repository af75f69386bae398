// Package memory provides the in-process bridge that carries accepted
// records from workers to the driver.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

var (
	// ErrBridgeClosed is returned by Push once Finish has been called.
	ErrBridgeClosed = errors.New("bridge closed")
	// ErrDrained is returned by Next after the end-of-stream sentinel, once
	// every buffered record has been consumed.
	ErrDrained = errors.New("bridge drained")
)

// Bridge is a bounded multi-producer, single-consumer queue. Finish marks end
// of stream exactly once; Push never panics after it.
type Bridge struct {
	ch     chan ingest.AcceptedRecord
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// NewBridge constructs a bridge buffering up to capacity records. A
// non-positive capacity makes every Push a rendezvous with Next.
func NewBridge(capacity int) *Bridge {
	if capacity < 0 {
		capacity = 0
	}
	return &Bridge{
		ch:   make(chan ingest.AcceptedRecord, capacity),
		done: make(chan struct{}),
	}
}

// Push hands a record to the consumer, blocking while the buffer is full.
func (b *Bridge) Push(ctx context.Context, rec ingest.AcceptedRecord) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBridgeClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("push canceled: %w", ctx.Err())
	case <-b.done:
		return ErrBridgeClosed
	case b.ch <- rec:
		return nil
	}
}

// Finish publishes the end-of-stream sentinel. Only the first call has an
// effect.
func (b *Bridge) Finish() {
	b.once.Do(func() {
		close(b.done)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.closed = true
		close(b.ch)
	})
}

// Next returns the next record, or ErrDrained after the sentinel.
func (b *Bridge) Next(ctx context.Context) (ingest.AcceptedRecord, error) {
	select {
	case <-ctx.Done():
		return ingest.AcceptedRecord{}, fmt.Errorf("next canceled: %w", ctx.Err())
	case rec, ok := <-b.ch:
		if !ok {
			return ingest.AcceptedRecord{}, ErrDrained
		}
		return rec, nil
	}
}

// Len reports how many records are buffered.
func (b *Bridge) Len() int {
	return len(b.ch)
}

var _ ingest.Emitter = (*Bridge)(nil)
