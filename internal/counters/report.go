package counters

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

// DomainCount pairs a domain with its occurrence count.
type DomainCount struct {
	Domain string
	Count  int64
}

// TopDomains returns the n most frequent domains in snap, ties broken by name.
func TopDomains(snap ingest.Snapshot, n int) []DomainCount {
	out := make([]DomainCount, 0, snap.DomainCount())
	for name, v := range snap {
		if ingest.IsDomainCounter(name) {
			out = append(out, DomainCount{Domain: strings.TrimPrefix(name, ingest.DomainCounterPrefix), Count: v})
		}
	}
	slices.SortFunc(out, func(a, b DomainCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Domain, b.Domain)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Fields renders a snapshot as structured log fields: every diagnostic
// counter, the number of domains seen and the busiest domains.
func Fields(snap ingest.Snapshot, topDomains int) []zap.Field {
	diag := snap.Diagnostics()
	names := make([]string, 0, len(diag))
	for name := range diag {
		names = append(names, name)
	}
	slices.Sort(names)

	fields := make([]zap.Field, 0, len(names)+2)
	for _, name := range names {
		fields = append(fields, zap.Int64(name, diag[name]))
	}
	fields = append(fields, zap.Int("domains", snap.DomainCount()))
	if top := TopDomains(snap, topDomains); len(top) > 0 {
		parts := make([]string, len(top))
		for i, d := range top {
			parts[i] = d.Domain + "=" + itoa(d.Count)
		}
		fields = append(fields, zap.Strings("top_domains", parts))
	}
	return fields
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
