package gcs

import (
	"context"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	assert.ErrorContains(t, err, "client")

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	if err != nil {
		t.Skipf("storage client unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	_, err = New(client, Config{})
	assert.ErrorContains(t, err, "bucket")

	store, err := New(client, Config{Bucket: "b", Prefix: "crawl/"})
	require.NoError(t, err)
	_, err = store.Open(context.Background(), " ")
	assert.ErrorContains(t, err, "key is required")
}
