package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webarchive-ingest/internal/publisher"
	"github.com/JakeFAU/webarchive-ingest/internal/warc/warctest"
)

const englishCopy = `The city council met on Tuesday evening to discuss the new budget for public
schools and libraries. Several residents spoke about the importance of keeping the reading rooms
open during the summer, while others asked the members to invest more money in the parks.`

const germanCopy = `Der Stadtrat hat sich am Dienstagabend getroffen, um über den neuen Haushalt für
die öffentlichen Schulen und Bibliotheken zu sprechen. Mehrere Bürger wünschten sich, dass die
Lesesäle auch im Sommer geöffnet bleiben, und andere forderten mehr Geld für die Parks.`

func page(lang, itemType, text string) string {
	return `<!DOCTYPE html><html lang="` + lang + `"><head><title>t</title></head><body>` +
		`<div itemscope itemtype="http://schema.org/` + itemType + `"><p>` + text + `</p></div></body></html>`
}

// writeFixture lays out an archive directory and a config file under a temp
// root and returns the config path and the export path.
func writeFixture(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "warc")
	require.NoError(t, os.MkdirAll(dataDir, 0o750))

	gz := warctest.Gzip(
		warctest.Response("https://Shop.example/widget", page("en", "Product", englishCopy)),
		warctest.Response("https://shop.example.de/werkzeug", page("de", "Product", germanCopy)),
	)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "a.warc.gz"), gz, 0o600))

	plain := warctest.Response("https://news.example/story", page("en", "NewsArticle", englishCopy)) +
		warctest.Malformed("https://news.example/broken")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "b.warc"), []byte(plain), 0o600))

	outPath := filepath.Join(root, "out", "records.jsonl")
	cfgPath := filepath.Join(root, "config.yaml")
	cfgYAML := "source:\n  backend: local\n  local_dir: " + dataDir + "\n" +
		"export:\n  backend: jsonl\n  path: " + outPath + "\n" +
		"report:\n  interval: 1h\n" +
		"logging:\n  development: false\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o600))
	return cfgPath, outPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommandExportsFilteredRecords(t *testing.T) {
	cfgPath, outPath := writeFixture(t)

	out, err := execute(t, "run", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 2, rejected 0, files 2 finished / 0 failed")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	var docs []publisher.Document
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		var doc publisher.Document
		require.NoError(t, json.Unmarshal(sc.Bytes(), &doc))
		docs = append(docs, doc)
	}
	require.NoError(t, sc.Err())
	require.Len(t, docs, 2)

	sort.Slice(docs, func(i, j int) bool { return docs[i].Domain < docs[j].Domain })
	assert.Equal(t, "news.example", docs[0].Domain)
	require.NotNil(t, docs[0].Annotation)
	assert.Equal(t, "news", *docs[0].Annotation)
	assert.Equal(t, "b.warc", docs[0].SourceFile)
	assert.Equal(t, "shop.example", docs[1].Domain)
	require.NotNil(t, docs[1].Annotation)
	assert.Equal(t, "product", *docs[1].Annotation)
	assert.Equal(t, docs[0].RunID, docs[1].RunID)
	assert.NotEmpty(t, docs[0].RunID)
}

func TestListCommand(t *testing.T) {
	cfgPath, _ := writeFixture(t)

	out, err := execute(t, "list", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "a.warc.gz\t")
	assert.Contains(t, out, "b.warc\t")
}

func TestRunCommandMissingSource(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, "config.yaml")
	cfgYAML := "source:\n  local_dir: " + filepath.Join(root, "missing") + "\n" +
		"export:\n  backend: memory\n" +
		"logging:\n  development: false\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o600))

	_, err := execute(t, "run", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open source")
}

func TestRunCommandBadConfig(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
