package counters

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

// Collector exports a counter store to Prometheus. Per-domain counters are
// summarized rather than exported individually to bound label cardinality.
type Collector struct {
	counters  ingest.Counters
	quota     int64
	events    *prometheus.Desc
	domains   *prometheus.Desc
	saturated *prometheus.Desc
}

// NewCollector builds a Collector. quota is the configured per-domain cap;
// zero disables the saturation gauge.
func NewCollector(counters ingest.Counters, quota int64) *Collector {
	return &Collector{
		counters: counters,
		quota:    quota,
		events: prometheus.NewDesc(
			"ingest_events_total",
			"Pipeline events by counter name.",
			[]string{"name"}, nil,
		),
		domains: prometheus.NewDesc(
			"ingest_domains_seen",
			"Distinct domains observed so far.",
			nil, nil,
		),
		saturated: prometheus.NewDesc(
			"ingest_domains_saturated",
			"Domains whose occurrence count reached the quota.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.events
	ch <- c.domains
	if c.quota > 0 {
		ch <- c.saturated
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.counters.Snapshot()
	saturated := 0
	for name, v := range snap {
		if ingest.IsDomainCounter(name) {
			if c.quota > 0 && v >= c.quota {
				saturated++
			}
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue, float64(v), name)
	}
	ch <- prometheus.MustNewConstMetric(c.domains, prometheus.GaugeValue, float64(snap.DomainCount()))
	if c.quota > 0 {
		ch <- prometheus.MustNewConstMetric(c.saturated, prometheus.GaugeValue, float64(saturated))
	}
}
