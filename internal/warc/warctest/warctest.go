// Package warctest builds archive fixtures for tests.
package warctest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Record serializes one record. An empty contentType omits the header.
func Record(warcType, uri, contentType, block string) string {
	var b strings.Builder
	b.WriteString("WARC/1.0\r\n")
	b.WriteString("WARC-Type: " + warcType + "\r\n")
	b.WriteString("WARC-Target-URI: " + uri + "\r\n")
	if contentType != "" {
		b.WriteString("Content-Type: " + contentType + "\r\n")
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n%s\r\n\r\n", len(block), block)
	return b.String()
}

// HTTPResponse renders a 200 response message carrying body.
func HTTPResponse(contentType, body string) string {
	return fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n%s",
		contentType, len(body), body)
}

// Response serializes a response record for an HTML page.
func Response(uri, body string) string {
	return Record("response", uri, "application/http; msgtype=response",
		HTTPResponse("text/html; charset=utf-8", body))
}

// Malformed serializes a record whose Content-Length cannot be parsed.
func Malformed(uri string) string {
	return "WARC/1.0\r\nWARC-Type: response\r\nWARC-Target-URI: " + uri +
		"\r\nContent-Length: not-a-number\r\n\r\nlost block\r\n\r\n"
}

// Gzip compresses each record as its own gzip member.
func Gzip(records ...string) []byte {
	var buf bytes.Buffer
	for _, rec := range records {
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write([]byte(rec)); err != nil {
			panic(err)
		}
		if err := zw.Close(); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

// ProductPage returns an English page annotated as a schema.org Product.
func ProductPage(title string) string {
	return `<!DOCTYPE html><html lang="en"><head><title>` + title + `</title></head><body>` +
		`<div itemscope itemtype="http://schema.org/Product"><span itemprop="name">` + title + `</span>` +
		`<p>A sturdy widget for everyday use, shipped worldwide with free returns.</p></div></body></html>`
}

// GermanPage returns a German page that still carries schema.org markup.
func GermanPage(title string) string {
	return `<!DOCTYPE html><html lang="de"><head><title>` + title + `</title></head><body>` +
		`<div itemscope itemtype="http://schema.org/Product"><span itemprop="name">` + title + `</span>` +
		`<p>Ein robustes Werkzeug für den täglichen Gebrauch, weltweit versandkostenfrei.</p></div></body></html>`
}
