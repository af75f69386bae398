// Package filter implements the per-record filter chain that decides whether
// an archived HTML response is exported, and extracts its annotation label.
package filter

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
	"github.com/JakeFAU/webarchive-ingest/internal/warc"
)

// Config holds the thresholds and markers used by the chain.
type Config struct {
	MinContentLength  int64
	ContentTypePrefix string
	TargetLanguage    string
	LanguageMarker    string
	SchemaMarker      string
	// DomainQuota caps accepted records per domain; zero disables the check.
	DomainQuota int64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinContentLength:  128,
		ContentTypePrefix: "text/html",
		TargetLanguage:    "en",
		LanguageMarker:    `lang="en"`,
		SchemaMarker:      "http://schema.org",
		DomainQuota:       2000,
	}
}

// Verdict is the outcome of evaluating one record. Reason is the counter
// name the outcome is tallied under.
type Verdict struct {
	Accepted bool
	Reason   string
	Domain   string
	Err      error
}

func reject(reason string) Verdict {
	return Verdict{Reason: reason}
}

func failure(err error) Verdict {
	return Verdict{Reason: ingest.CounterUnhandledExceptions, Err: err}
}

// Chain applies the ordered filter stages to decoded records. It is safe for
// concurrent use when its Counters and LanguageDetector are.
type Chain struct {
	cfg      Config
	counters ingest.Counters
	detector LanguageDetector
	labels   LabelTable
}

// NewChain builds a Chain. Nil detector and labels fall back to the defaults.
func NewChain(cfg Config, counters ingest.Counters, detector LanguageDetector, labels LabelTable) *Chain {
	if detector == nil {
		detector = NewTrigramDetector()
	}
	if len(labels) == 0 {
		labels = DefaultLabelTable()
	}
	if cfg.ContentTypePrefix == "" {
		cfg.ContentTypePrefix = "text/html"
	}
	cfg.ContentTypePrefix = strings.ToLower(cfg.ContentTypePrefix)
	return &Chain{cfg: cfg, counters: counters, detector: detector, labels: labels}
}

// Evaluate runs every stage against rec and short-circuits on the first
// rejection. A panic in any stage is reported as an unhandled exception.
// Evaluate increments the domain counter once the domain is known, whether
// or not the record is accepted.
func (c *Chain) Evaluate(rec *warc.Record) (out ingest.AcceptedRecord, v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			out = ingest.AcceptedRecord{}
			v = failure(fmt.Errorf("filter panic: %v", r))
		}
	}()

	if !rec.HasHeaders() {
		return out, reject(ingest.CounterHeadersMissing)
	}
	if !rec.HasHTTPHeaders() {
		return out, reject(ingest.CounterHTTPHeadersMissing)
	}
	if rec.Type != warc.TypeResponse || rec.ContentLength < c.cfg.MinContentLength {
		return out, reject(ingest.CounterWrongWarcType)
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(rec.HTTPContentType)), c.cfg.ContentTypePrefix) {
		return out, reject(ingest.CounterWrongContentType)
	}

	raw, err := io.ReadAll(rec.Payload())
	if err != nil {
		return out, failure(fmt.Errorf("read payload: %w", err))
	}
	html, err := DecodeHTML(raw, rec.HTTPContentType)
	if err != nil {
		return out, failure(err)
	}

	domain, err := Domain(rec.TargetURI)
	if err != nil {
		return out, failure(err)
	}
	key := ingest.DomainCounterKey(domain)
	c.counters.Add(key, 1)

	if reason, ok := c.languageCheck(html); !ok {
		v = reject(reason)
		v.Domain = domain
		return out, v
	}

	if c.cfg.DomainQuota > 0 && c.counters.Get(key) > c.cfg.DomainQuota {
		v = reject(ingest.CounterFilteredByQuota)
		v.Domain = domain
		return out, v
	}

	out = ingest.AcceptedRecord{
		HTML:       StripMarkup(html),
		Annotation: c.labels.Resolve(html),
		Domain:     domain,
		URL:        rec.TargetURI,
	}
	return out, Verdict{Accepted: true, Reason: ingest.CounterRecordsAccepted, Domain: domain}
}

func (c *Chain) languageCheck(html string) (string, bool) {
	if c.cfg.TargetLanguage != "" && c.detector.Detect(html) != c.cfg.TargetLanguage {
		return ingest.CounterWrongLanguage, false
	}
	if c.cfg.LanguageMarker != "" && !strings.Contains(html, c.cfg.LanguageMarker) {
		return ingest.CounterWrongLanguage, false
	}
	if c.cfg.SchemaMarker != "" && !strings.Contains(html, c.cfg.SchemaMarker) {
		return ingest.CounterSchemaMarkerMissing, false
	}
	return "", true
}

// Domain returns the lower-cased network location (host[:port]) of rawURL.
func Domain(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse target uri: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("target uri %q has no host", rawURL)
	}
	return strings.ToLower(u.Host), nil
}
