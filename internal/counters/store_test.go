package counters

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

func TestStoreConcurrentAdds(t *testing.T) {
	t.Parallel()

	s := New(4)
	const workers, perWorker = 16, 500
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				s.Add(ingest.CounterRecordsRead, 1)
				s.Add(ingest.DomainCounterKey("example.com"), 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers*perWorker), s.Get(ingest.CounterRecordsRead))
	assert.Equal(t, int64(workers*perWorker), s.Get(ingest.DomainCounterKey("example.com")))
}

func TestStoreIgnoresNonPositiveDelta(t *testing.T) {
	t.Parallel()

	s := New(0)
	s.Add("x", 3)
	s.Add("x", 0)
	s.Add("x", -2)
	assert.Equal(t, int64(3), s.Get("x"))
	assert.Zero(t, s.Get("never"))
	_, ok := s.Snapshot()["never"]
	assert.False(t, ok)
}

func TestStoreSnapshotAndMerge(t *testing.T) {
	t.Parallel()

	s := New(2)
	s.Add(ingest.CounterRecordsAccepted, 2)
	s.Add(ingest.DomainCounterKey("a.com"), 1)

	snap := s.Snapshot()
	require.Equal(t, ingest.Snapshot{
		ingest.CounterRecordsAccepted:    2,
		ingest.DomainCounterKey("a.com"): 1,
	}, snap)

	s.Add(ingest.CounterRecordsAccepted, 1)
	assert.Equal(t, int64(2), snap[ingest.CounterRecordsAccepted], "snapshot is a copy")

	s.Merge(ingest.Snapshot{ingest.CounterRecordsAccepted: 4, "filesFinished": 1})
	assert.Equal(t, int64(7), s.Get(ingest.CounterRecordsAccepted))
	assert.Equal(t, int64(1), s.Get("filesFinished"))
}

func TestTopDomains(t *testing.T) {
	t.Parallel()

	snap := ingest.Snapshot{
		ingest.DomainCounterKey("b.com"): 5,
		ingest.DomainCounterKey("a.com"): 5,
		ingest.DomainCounterKey("c.com"): 9,
		ingest.CounterRecordsRead:        100,
	}
	top := TopDomains(snap, 2)
	assert.Equal(t, []DomainCount{{"c.com", 9}, {"a.com", 5}}, top)
	assert.Len(t, TopDomains(snap, -1), 3)
}

func TestFields(t *testing.T) {
	t.Parallel()

	snap := ingest.Snapshot{
		ingest.CounterRecordsRead:        10,
		ingest.CounterRecordsAccepted:    2,
		ingest.DomainCounterKey("a.com"): 2,
	}
	fields := Fields(snap, 3)
	require.Len(t, fields, 4)
	assert.Equal(t, zap.Int64(ingest.CounterRecordsAccepted, 2), fields[0])
	assert.Equal(t, zap.Int64(ingest.CounterRecordsRead, 10), fields[1])
	assert.Equal(t, zap.Int("domains", 1), fields[2])
	assert.Equal(t, zap.Strings("top_domains", []string{"a.com=2"}), fields[3])
}

func TestCollector(t *testing.T) {
	t.Parallel()

	s := New(0)
	s.Add(ingest.CounterFilesFinished, 3)
	s.Add(ingest.CounterRecordsAccepted, 2)
	s.Add(ingest.DomainCounterKey("a.com"), 2)
	s.Add(ingest.DomainCounterKey("b.com"), 1)

	c := NewCollector(s, 2)
	expected := `
# HELP ingest_events_total Pipeline events by counter name.
# TYPE ingest_events_total counter
ingest_events_total{name="filesFinished"} 3
ingest_events_total{name="recordsAccepted"} 2
# HELP ingest_domains_seen Distinct domains observed so far.
# TYPE ingest_domains_seen gauge
ingest_domains_seen 2
# HELP ingest_domains_saturated Domains whose occurrence count reached the quota.
# TYPE ingest_domains_saturated gauge
ingest_domains_saturated 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}
