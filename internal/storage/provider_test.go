package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webarchive-ingest/internal/storage/local"
	"github.com/JakeFAU/webarchive-ingest/internal/storage/memory"
	"github.com/JakeFAU/webarchive-ingest/internal/storage/s3"
)

func TestOpenBackends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store, closer, err := Open(ctx, Config{Backend: BackendLocal, LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &local.ObjectStore{}, store)
	assert.NoError(t, closer.Close())

	store, _, err = Open(ctx, Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.ObjectStore{}, store)

	store, _, err = Open(ctx, Config{Backend: BackendS3, Endpoint: "localhost:9000", Bucket: "warc"})
	require.NoError(t, err)
	assert.IsType(t, &s3.ObjectStore{}, store)
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	_, _, err := Open(context.Background(), Config{Backend: "ftp"})
	assert.ErrorContains(t, err, "unknown storage backend")

	_, _, err = Open(context.Background(), Config{Backend: BackendLocal})
	assert.Error(t, err)

	_, _, err = Open(context.Background(), Config{Backend: BackendS3})
	assert.Error(t, err)
}
