package filter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

// markerPattern captures the type name of a schema.org reference.
var markerPattern = regexp.MustCompile(`https?://schema\.org/([A-Za-z0-9_]+)`)

// LabelTable maps schema.org type names (e.g. "NewsArticle") to labels.
type LabelTable map[string]ingest.Label

// DefaultLabelTable returns the built-in marker table.
func DefaultLabelTable() LabelTable {
	return LabelTable{
		"Product":     ingest.LabelProduct,
		"NewsArticle": ingest.LabelNews,
		"Article":     ingest.LabelNews,
		"Blog":        ingest.LabelBlog,
		"BlogPosting": ingest.LabelBlog,
		"Event":       ingest.LabelEvent,
	}
}

// Resolve scans html for schema.org markers and returns the label of the
// last marker found in the table. It returns ingest.LabelNone if none match.
func (t LabelTable) Resolve(html string) ingest.Label {
	label := ingest.LabelNone
	for _, m := range markerPattern.FindAllStringSubmatch(html, -1) {
		if l, ok := t[m[1]]; ok {
			label = l
		}
	}
	return label
}

// LoadLabelTable reads a two-column CSV ("schema,label"). A header row is
// skipped when present. Schema values may be bare type names or full
// schema.org URLs.
func LoadLabelTable(r io.Reader) (LabelTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	table := LabelTable{}
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read label table: %w", err)
		}
		schema := strings.TrimSpace(row[0])
		label := strings.TrimSpace(row[1])
		if line == 1 && strings.EqualFold(schema, "schema") && strings.EqualFold(label, "label") {
			continue
		}
		if m := markerPattern.FindStringSubmatch(schema); m != nil {
			schema = m[1]
		}
		if schema == "" || label == "" {
			return nil, fmt.Errorf("label table line %d: empty field", line)
		}
		table[schema] = ingest.Label(label)
	}
	if len(table) == 0 {
		return nil, errors.New("label table is empty")
	}
	return table, nil
}

// LoadLabelTableFile loads a label table from path.
func LoadLabelTableFile(path string) (LabelTable, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator configuration.
	if err != nil {
		return nil, fmt.Errorf("open label table: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file
	return LoadLabelTable(f)
}
