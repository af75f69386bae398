// Package publisher defines the exported document shape shared by every
// export sink. Sinks live in subpackages.
package publisher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JakeFAU/webarchive-ingest/internal/hash/sha256"
	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

// Document is one exported record.
type Document struct {
	Domain        string    `json:"domain"`
	URL           string    `json:"url"`
	Annotation    *string   `json:"annotation"`
	HTML          string    `json:"html"`
	Score         float64   `json:"score"`
	SourceFile    string    `json:"source_file"`
	ContentSHA256 string    `json:"content_sha256"`
	RunID         string    `json:"run_id"`
	ExportedAt    time.Time `json:"exported_at"`
}

var hasher = sha256.New()

// NewDocument converts a scored record. An empty annotation is exported as
// null.
func NewDocument(rec ingest.ScoredRecord, now time.Time) Document {
	doc := Document{
		Domain:        rec.Domain,
		URL:           rec.URL,
		HTML:          rec.HTML,
		Score:         rec.Score,
		SourceFile:    rec.SourceFile,
		ContentSHA256: hasher.HashString(rec.HTML),
		RunID:         rec.RunID,
		ExportedAt:    now.UTC(),
	}
	if rec.Annotation != ingest.LabelNone {
		label := string(rec.Annotation)
		doc.Annotation = &label
	}
	return doc
}

// Marshal encodes doc as a single JSON line without HTML escaping and
// without the trailing newline.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
