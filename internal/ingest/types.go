// Package ingest defines core types shared across the ingestion subsystems.
package ingest

import (
	"strings"
	"time"
)

// WorkItem identifies one archive file in the source bucket.
type WorkItem struct {
	Key  string
	Size int64
}

// Label is the content type resolved from structured-data markers.
type Label string

// Known labels. LabelNone means no marker in the label table matched.
const (
	LabelNone    Label = ""
	LabelProduct Label = "product"
	LabelNews    Label = "news"
	LabelBlog    Label = "blog"
	LabelEvent   Label = "event"
	LabelUnknown Label = "unknown"
)

// AcceptedRecord is a document that passed every worker-side filter stage.
type AcceptedRecord struct {
	HTML       string
	Annotation Label
	Domain     string
	URL        string
	SourceFile string
}

// ScoredRecord is an AcceptedRecord after the scoring collaborator ran.
type ScoredRecord struct {
	AcceptedRecord
	Score float64
	RunID string
}

// Counter names shared by workers, the driver and reporting.
const (
	CounterRecordsRead          = "recordsRead"
	CounterHeadersMissing       = "headersMissing"
	CounterHTTPHeadersMissing   = "httpHeadersMissing"
	CounterWrongWarcType        = "wrongWarcType"
	CounterWrongContentType     = "wrongContentType"
	CounterWrongLanguage        = "wrongLanguage"
	CounterSchemaMarkerMissing  = "schemaMarkerMissing"
	CounterFilteredByQuota      = "filteredByQuota"
	CounterUnhandledExceptions  = "unhandledExceptions"
	CounterRecordsOversized     = "recordsOversized"
	CounterRecordsAccepted      = "recordsAccepted"
	CounterFilesFinished        = "filesFinished"
	CounterFilesFailed          = "filesFailed"
	CounterDriverFilterPassed   = "driverFilterPassed"
	CounterDriverFilterRejected = "driverFilterRejected"
)

// DomainCounterPrefix prefixes every per-domain quota counter.
const DomainCounterPrefix = "domain:"

// DomainCounterKey returns the counter name tracking occurrences of domain.
func DomainCounterKey(domain string) string {
	return DomainCounterPrefix + domain
}

// IsDomainCounter reports whether name is a per-domain quota counter.
func IsDomainCounter(name string) bool {
	return strings.HasPrefix(name, DomainCounterPrefix)
}

// Snapshot is a point-in-time read of the aggregated counters.
type Snapshot map[string]int64

// Diagnostics returns only the fixed-name counters.
func (s Snapshot) Diagnostics() map[string]int64 {
	out := make(map[string]int64, len(s))
	for name, v := range s {
		if !IsDomainCounter(name) {
			out[name] = v
		}
	}
	return out
}

// DomainCount returns how many distinct domains have been observed.
func (s Snapshot) DomainCount() int {
	n := 0
	for name := range s {
		if IsDomainCounter(name) {
			n++
		}
	}
	return n
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
