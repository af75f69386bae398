package worker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/webarchive-ingest/internal/counters"
	"github.com/JakeFAU/webarchive-ingest/internal/filter"
	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
	"github.com/JakeFAU/webarchive-ingest/internal/storage/memory"
	"github.com/JakeFAU/webarchive-ingest/internal/warc"
	"github.com/JakeFAU/webarchive-ingest/internal/warc/warctest"
)

type markerDetector struct{}

func (markerDetector) Detect(html string) string {
	if strings.Contains(html, `lang="en"`) {
		return "en"
	}
	return "de"
}

type recordingEmitter struct {
	mu   sync.Mutex
	recs []ingest.AcceptedRecord
	err  error
}

func (e *recordingEmitter) Push(_ context.Context, rec ingest.AcceptedRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.recs = append(e.recs, rec)
	return nil
}

type fixture struct {
	store    *memory.ObjectStore
	counters *counters.Store
	emitter  *recordingEmitter
	task     *Task
}

func newFixture(opts warc.Options) *fixture {
	f := &fixture{
		store:    memory.NewObjectStore(),
		counters: counters.New(0),
		emitter:  &recordingEmitter{},
	}
	chain := filter.NewChain(filter.DefaultConfig(), f.counters, markerDetector{}, nil)
	f.task = New(f.store, chain, f.emitter, f.counters, opts, zap.NewNop())
	return f
}

func TestRunEmitsAcceptedRecords(t *testing.T) {
	t.Parallel()

	f := newFixture(warc.Options{})
	f.store.Put("a.warc.gz", warctest.Gzip(
		warctest.Response("https://Shop.example.com/widget", warctest.ProductPage("Widget")),
		warctest.Response("https://blog.example.de/post", warctest.GermanPage("Werkzeug")),
		warctest.Record("request", "https://shop.example.com/widget", "application/http; msgtype=request",
			"GET /widget HTTP/1.1\r\nHost: shop.example.com\r\n\r\n"),
	))

	require.NoError(t, f.task.Run(context.Background(), ingest.WorkItem{Key: "a.warc.gz"}))

	require.Len(t, f.emitter.recs, 1)
	rec := f.emitter.recs[0]
	assert.Equal(t, "shop.example.com", rec.Domain)
	assert.Equal(t, "a.warc.gz", rec.SourceFile)
	assert.Equal(t, ingest.LabelProduct, rec.Annotation)
	assert.NotContains(t, rec.HTML, "itemprop")

	assert.Equal(t, int64(3), f.counters.Get(ingest.CounterRecordsRead))
	assert.Equal(t, int64(1), f.counters.Get(ingest.CounterRecordsAccepted))
	assert.Equal(t, int64(1), f.counters.Get(ingest.CounterWrongLanguage))
	assert.Equal(t, int64(1), f.counters.Get(ingest.CounterHTTPHeadersMissing)+f.counters.Get(ingest.CounterWrongWarcType))
	assert.Equal(t, int64(1), f.counters.Get(ingest.CounterFilesFinished))
}

func TestRunCountsMalformedRecordAndContinues(t *testing.T) {
	t.Parallel()

	f := newFixture(warc.Options{})
	f.store.Put("c.warc", []byte(
		warctest.Malformed("https://broken.example.com/")+
			warctest.Response("https://shop.example.com/1", warctest.ProductPage("One")),
	))

	require.NoError(t, f.task.Run(context.Background(), ingest.WorkItem{Key: "c.warc"}))

	assert.Equal(t, int64(1), f.counters.Get(ingest.CounterUnhandledExceptions))
	assert.Equal(t, int64(2), f.counters.Get(ingest.CounterRecordsRead))
	assert.Equal(t, int64(1), f.counters.Get(ingest.CounterRecordsAccepted))
	assert.Equal(t, int64(1), f.counters.Get(ingest.CounterFilesFinished))
	assert.Len(t, f.emitter.recs, 1)
}

func TestRunOversizedRecords(t *testing.T) {
	t.Parallel()

	data := []byte(warctest.Response("https://shop.example.com/big", warctest.ProductPage("Big")))

	skip := newFixture(warc.Options{MaxContentLength: 64})
	skip.store.Put("big.warc", data)
	require.NoError(t, skip.task.Run(context.Background(), ingest.WorkItem{Key: "big.warc"}))
	assert.Equal(t, int64(1), skip.counters.Get(ingest.CounterRecordsOversized))
	assert.Zero(t, skip.counters.Get(ingest.CounterUnhandledExceptions))
	assert.Empty(t, skip.emitter.recs)

	trunc := newFixture(warc.Options{MaxContentLength: 64, Oversize: warc.OversizeTruncate})
	trunc.store.Put("big.warc", data)
	require.NoError(t, trunc.task.Run(context.Background(), ingest.WorkItem{Key: "big.warc"}))
	assert.Equal(t, int64(1), trunc.counters.Get(ingest.CounterRecordsOversized))
	assert.Equal(t, int64(1), trunc.counters.Get(ingest.CounterFilesFinished))
}

func TestRunFileFailures(t *testing.T) {
	t.Parallel()

	t.Run("open error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(warc.Options{})
		boom := errors.New("boom")
		f.store.Put("x.warc", nil)
		f.store.FailOpen("x.warc", boom)

		err := f.task.Run(context.Background(), ingest.WorkItem{Key: "x.warc"})
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, f.counters.Get(ingest.CounterFilesFinished))
	})

	t.Run("truncated stream", func(t *testing.T) {
		t.Parallel()
		f := newFixture(warc.Options{})
		full := warctest.Response("https://shop.example.com/1", warctest.ProductPage("One"))
		f.store.Put("t.warc", []byte(full[:len(full)/2]))

		err := f.task.Run(context.Background(), ingest.WorkItem{Key: "t.warc"})
		require.Error(t, err)
		assert.Zero(t, f.counters.Get(ingest.CounterFilesFinished))
	})

	t.Run("emit error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(warc.Options{})
		f.emitter.err = errors.New("bridge closed")
		f.store.Put("a.warc", []byte(warctest.Response("https://shop.example.com/1", warctest.ProductPage("One"))))

		err := f.task.Run(context.Background(), ingest.WorkItem{Key: "a.warc"})
		assert.ErrorContains(t, err, "bridge closed")
		assert.Zero(t, f.counters.Get(ingest.CounterFilesFinished))
	})

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()
		f := newFixture(warc.Options{})
		f.store.Put("a.warc", bytes.Repeat([]byte(warctest.Response("https://shop.example.com/1", warctest.ProductPage("One"))), 3))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := f.task.Run(ctx, ingest.WorkItem{Key: "a.warc"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
