package warc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// OversizePolicy selects what happens to records larger than MaxContentLength.
type OversizePolicy string

// Supported oversize policies.
const (
	OversizeSkip     OversizePolicy = "skip"
	OversizeTruncate OversizePolicy = "truncate"
)

var (
	// ErrMalformedRecord marks a record that could not be framed or parsed.
	// The reader has already resynchronized; callers may call Next again.
	ErrMalformedRecord = errors.New("malformed warc record")
	// ErrRecordTooLarge marks a record skipped under OversizeSkip.
	ErrRecordTooLarge = errors.New("warc record exceeds max content length")
)

const (
	readerBufferSize = 64 << 10
	maxLineLength    = 8 << 10
	versionPrefix    = "WARC/"
)

// Options configures a Reader.
type Options struct {
	// MaxContentLength bounds the readable block size; zero disables the limit.
	MaxContentLength int64
	// Oversize selects the policy for records above MaxContentLength.
	Oversize OversizePolicy
}

// Reader iterates the records of one archive stream. It is not safe for
// concurrent use.
type Reader struct {
	br      *bufio.Reader
	gz      *gzip.Reader
	opts    Options
	block   *io.LimitedReader
	pending string
	resync  bool
	done    bool
}

// IsRecordError reports whether err only affects a single record, so that
// iteration can continue with Next.
func IsRecordError(err error) bool {
	return errors.Is(err, ErrMalformedRecord) || errors.Is(err, ErrRecordTooLarge)
}

// NewReader wraps r, transparently decompressing gzip input.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	if opts.Oversize == "" {
		opts.Oversize = OversizeSkip
	}
	br := bufio.NewReaderSize(r, readerBufferSize)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("peek archive header: %w", err)
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		gz.Multistream(true)
		return &Reader{br: bufio.NewReaderSize(gz, readerBufferSize), gz: gz, opts: opts}, nil
	}
	return &Reader{br: br, opts: opts}, nil
}

// Close releases the decompressor. The underlying stream is owned by the caller.
func (r *Reader) Close() error {
	if r.gz == nil {
		return nil
	}
	if err := r.gz.Close(); err != nil {
		return fmt.Errorf("close gzip stream: %w", err)
	}
	return nil
}

// Next returns the next record. It returns io.EOF after the last record.
// Errors satisfying IsRecordError are per-record; any other error means the
// stream cannot be decoded further.
func (r *Reader) Next() (*Record, error) {
	if r.done {
		return nil, io.EOF
	}
	if err := r.discardBlock(); err != nil {
		r.done = true
		return nil, err
	}

	garbage, err := r.seekVersionLine()
	if err != nil {
		r.done = true
		if errors.Is(err, io.EOF) {
			if garbage > 0 {
				return nil, fmt.Errorf("%w: %d trailing bytes without a record header", ErrMalformedRecord, garbage)
			}
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read version line: %w", err)
	}
	if garbage > 0 {
		return nil, fmt.Errorf("%w: skipped %d bytes before record header", ErrMalformedRecord, garbage)
	}
	r.pending = ""

	header, err := r.readHeader()
	if err != nil {
		if IsRecordError(err) {
			return nil, err
		}
		r.done = true
		return nil, fmt.Errorf("read record header: %w", err)
	}

	rawLength := strings.TrimSpace(header.Get("Content-Length"))
	length, err := strconv.ParseInt(rawLength, 10, 64)
	if err != nil || length < 0 {
		r.resync = true
		return nil, fmt.Errorf("%w: invalid Content-Length %q", ErrMalformedRecord, rawLength)
	}
	r.block = &io.LimitedReader{R: r.br, N: length}

	limit := r.opts.MaxContentLength
	oversized := limit > 0 && length > limit
	if oversized && r.opts.Oversize != OversizeTruncate {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrRecordTooLarge, length, limit)
	}

	rec := &Record{
		Type:          RecordType(strings.ToLower(strings.TrimSpace(header.Get("WARC-Type")))),
		TargetURI:     strings.TrimSpace(header.Get("WARC-Target-URI")),
		ContentLength: length,
		Header:        header,
		Truncated:     oversized,
	}
	var body io.Reader = r.block
	if oversized {
		body = io.LimitReader(r.block, limit)
	}
	rec.payload = body
	if carriesHTTP(rec) {
		parseHTTP(rec, body)
	}
	return rec, nil
}

// readHeader reads named fields up to the blank line that ends the record
// header. A version line inside the header means the header was cut short;
// it is kept as the start of the next record.
func (r *Reader) readHeader() (textproto.MIMEHeader, error) {
	header := make(textproto.MIMEHeader)
	lastKey := ""
	for {
		line, _, err := r.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				r.resync = true
				return nil, fmt.Errorf("%w: header: %v", ErrMalformedRecord, io.ErrUnexpectedEOF)
			}
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			return header, nil
		}
		if strings.HasPrefix(line, versionPrefix) {
			r.pending = line
			return nil, fmt.Errorf("%w: header cut short by %q", ErrMalformedRecord, line)
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastKey == "" {
				r.resync = true
				return nil, fmt.Errorf("%w: header: continuation line without a field", ErrMalformedRecord)
			}
			values := header[lastKey]
			values[len(values)-1] += " " + strings.TrimSpace(line)
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			r.resync = true
			return nil, fmt.Errorf("%w: header: missing colon in %q", ErrMalformedRecord, line)
		}
		lastKey = textproto.CanonicalMIMEHeaderKey(key)
		header.Add(lastKey, strings.TrimSpace(value))
	}
}

// discardBlock skips the unread remainder of the previous record.
func (r *Reader) discardBlock() error {
	if r.block == nil {
		return nil
	}
	block := r.block
	r.block = nil
	if _, err := io.Copy(io.Discard, block); err != nil {
		return fmt.Errorf("discard record block: %w", err)
	}
	if block.N > 0 {
		return fmt.Errorf("record block truncated by %d bytes: %w", block.N, io.ErrUnexpectedEOF)
	}
	return nil
}

// seekVersionLine advances to the next "WARC/x.y" line and returns how many
// non-blank bytes were skipped on the way. Bytes skipped while recovering
// from an already reported malformed record are not counted again.
func (r *Reader) seekVersionLine() (int, error) {
	if r.pending != "" {
		return 0, nil
	}
	garbage := 0
	for {
		line, n, err := r.readLine()
		if err != nil {
			if r.resync {
				garbage = 0
			}
			return garbage, err
		}
		if strings.HasPrefix(line, versionPrefix) {
			if r.resync {
				r.resync = false
				garbage = 0
			}
			if garbage > 0 {
				r.pending = line
			}
			return garbage, nil
		}
		if strings.TrimSpace(line) != "" {
			garbage += n
		}
	}
}

// readLine reads one line, keeping at most maxLineLength bytes of it.
func (r *Reader) readLine() (string, int, error) {
	var buf []byte
	n := 0
	for {
		chunk, err := r.br.ReadSlice('\n')
		n += len(chunk)
		if room := maxLineLength - len(buf); room > 0 {
			buf = append(buf, chunk[:min(len(chunk), room)]...)
		}
		switch {
		case err == nil:
			return string(bytes.TrimRight(buf, "\r\n")), n, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && n > 0:
			return string(bytes.TrimRight(buf, "\r\n")), n, nil
		default:
			return "", n, err
		}
	}
}

func carriesHTTP(rec *Record) bool {
	if rec.Type != TypeResponse && rec.Type != TypeRevisit {
		return false
	}
	ct := strings.ToLower(rec.Header.Get("Content-Type"))
	return ct == "" || strings.HasPrefix(ct, "application/http")
}

// parseHTTP reads the HTTP status line and headers from the block. On failure
// the record keeps a nil HTTPHeader. A block that does not start with a
// status line stays readable in full.
func parseHTTP(rec *Record, body io.Reader) {
	br := bufio.NewReader(body)
	rec.payload = br
	if prefix, err := br.Peek(len("HTTP/")); err != nil || string(prefix) != "HTTP/" {
		return
	}
	tp := textproto.NewReader(br)
	status, err := tp.ReadLine()
	if err != nil || !strings.HasPrefix(status, "HTTP/") {
		return
	}
	fields := strings.Fields(status)
	if len(fields) < 2 {
		return
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return
	}
	hdr, err := tp.ReadMIMEHeader()
	if err != nil {
		return
	}
	rec.HTTPStatus = code
	rec.HTTPHeader = http.Header(hdr)
	rec.HTTPContentType = rec.HTTPHeader.Get("Content-Type")
	var payload io.Reader = tp.R
	if strings.EqualFold(rec.HTTPHeader.Get("Transfer-Encoding"), "chunked") {
		payload = httputil.NewChunkedReader(tp.R)
	}
	rec.payload = payload
}
