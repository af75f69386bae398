package s3

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

const listBody = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
<Name>warc-bucket</Name><Prefix>crawl/</Prefix><KeyCount>3</KeyCount><MaxKeys>1000</MaxKeys>
<IsTruncated>false</IsTruncated>
<Contents><Key>crawl/</Key><Size>0</Size><ETag>"d41d8cd98f00b204e9800998ecf8427e"</ETag><LastModified>2024-01-01T00:00:00.000Z</LastModified><StorageClass>STANDARD</StorageClass></Contents>
<Contents><Key>crawl/a.warc.gz</Key><Size>10</Size><ETag>"0cc175b9c0f1b6a831c399e269772661"</ETag><LastModified>2024-01-01T00:00:00.000Z</LastModified><StorageClass>STANDARD</StorageClass></Contents>
<Contents><Key>crawl/b.warc.gz</Key><Size>20</Size><ETag>"92eb5ffee6ae2fec3ad71c777531578f"</ETag><LastModified>2024-01-01T00:00:00.000Z</LastModified><StorageClass>STANDARD</StorageClass></Contents>
</ListBucketResult>`

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Bucket: "b"})
	assert.ErrorContains(t, err, "endpoint")
	_, err = New(Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "bucket")
	store, err := New(Config{Endpoint: "localhost:9000", Bucket: "b"})
	require.NoError(t, err)
	_, err = store.Open(context.Background(), "")
	assert.ErrorContains(t, err, "key is required")
}

func TestList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Query().Get("list-type") != "2" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(listBody))
	}))
	t.Cleanup(srv.Close)

	store, err := New(Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "us-east-1",
		Bucket:    "warc-bucket",
		Prefix:    "crawl/",
	})
	require.NoError(t, err)

	items, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ingest.WorkItem{
		{Key: "crawl/a.warc.gz", Size: 10},
		{Key: "crawl/b.warc.gz", Size: 20},
	}, items)
}
