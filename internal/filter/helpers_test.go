package filter

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
	"github.com/JakeFAU/webarchive-ingest/internal/warc"
)

type fakeCounters struct {
	mu     sync.Mutex
	values map[string]int64
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{values: map[string]int64{}}
}

func (c *fakeCounters) Add(name string, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] += delta
}

func (c *fakeCounters) Get(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name]
}

func (c *fakeCounters) Snapshot() ingest.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := ingest.Snapshot{}
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

type detectorFunc func(string) string

func (f detectorFunc) Detect(html string) string { return f(html) }

func fixedLanguage(code string) LanguageDetector {
	return detectorFunc(func(string) string { return code })
}

type recordFixture struct {
	warcType    string
	uri         string
	httpCT      string
	body        string
	noHTTP      bool
	warcCTValue string
}

func buildRecord(t *testing.T, fx recordFixture) *warc.Record {
	t.Helper()
	block := fx.body
	warcCT := fx.warcCTValue
	if !fx.noHTTP {
		block = fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Type: %s\r\n\r\n%s", fx.httpCT, fx.body)
		if warcCT == "" {
			warcCT = "application/http; msgtype=response"
		}
	}
	var b strings.Builder
	b.WriteString("WARC/1.0\r\n")
	if fx.warcType != "" {
		b.WriteString("WARC-Type: " + fx.warcType + "\r\n")
	}
	b.WriteString("WARC-Target-URI: " + fx.uri + "\r\n")
	if warcCT != "" {
		b.WriteString("Content-Type: " + warcCT + "\r\n")
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n%s\r\n\r\n", len(block), block)

	r, err := warc.NewReader(strings.NewReader(b.String()), warc.Options{})
	require.NoError(t, err)
	rec, err := r.Next()
	require.NoError(t, err)
	return rec
}

func productPage(title string) string {
	return `<!DOCTYPE html><html lang="en"><head><title>` + title + `</title></head><body>` +
		`<div itemscope itemtype="http://schema.org/Product"><span itemprop="name">` + title + `</span>` +
		`<p>A sturdy widget for everyday use, shipped worldwide with free returns.</p></div></body></html>`
}

func htmlResponse(uri, body string) recordFixture {
	return recordFixture{warcType: "response", uri: uri, httpCT: "text/html; charset=utf-8", body: body}
}
