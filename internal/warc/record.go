// Package warc decodes WARC archive files into a lazy, forward-only sequence
// of records. Gzip-compressed archives (one member per record or a single
// member) are detected from the stream's magic bytes.
package warc

import (
	"io"
	"net/http"
	"net/textproto"
)

// RecordType is the value of the WARC-Type header.
type RecordType string

// WARC 1.1 record types.
const (
	TypeWarcinfo     RecordType = "warcinfo"
	TypeResponse     RecordType = "response"
	TypeResource     RecordType = "resource"
	TypeRequest      RecordType = "request"
	TypeMetadata     RecordType = "metadata"
	TypeRevisit      RecordType = "revisit"
	TypeConversion   RecordType = "conversion"
	TypeContinuation RecordType = "continuation"
)

// Record is one decoded archive record. It is valid until the next call to
// Reader.Next, which discards whatever part of the payload was not read.
type Record struct {
	Type          RecordType
	TargetURI     string
	ContentLength int64
	Header        textproto.MIMEHeader

	// HTTP fields are populated for response records carrying an HTTP message.
	HTTPStatus      int
	HTTPContentType string
	HTTPHeader      http.Header

	// Truncated is set when the block exceeded the reader's maximum content
	// length and only a prefix is readable.
	Truncated bool

	payload io.Reader
}

// HasHeaders reports whether the WARC header block carried a WARC-Type.
func (r *Record) HasHeaders() bool {
	return r != nil && r.Header != nil && r.Header.Get("WARC-Type") != ""
}

// HasHTTPHeaders reports whether an HTTP status line and header block were parsed.
func (r *Record) HasHTTPHeaders() bool {
	return r != nil && r.HTTPHeader != nil
}

// Payload returns the record payload: the HTTP entity body for HTTP records,
// otherwise the raw block.
func (r *Record) Payload() io.Reader {
	if r == nil || r.payload == nil {
		return eofReader{}
	}
	return r.payload
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
