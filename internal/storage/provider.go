// Package storage selects the object store backend that lists and streams
// archive files. Each backend lives in its own subpackage.
package storage

import (
	"context"
	"fmt"
	"io"

	gcsclient "cloud.google.com/go/storage"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
	"github.com/JakeFAU/webarchive-ingest/internal/storage/gcs"
	"github.com/JakeFAU/webarchive-ingest/internal/storage/local"
	"github.com/JakeFAU/webarchive-ingest/internal/storage/memory"
	"github.com/JakeFAU/webarchive-ingest/internal/storage/s3"
)

// Supported backends.
const (
	BackendLocal  = "local"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// Config selects and parameterizes a backend.
type Config struct {
	Backend   string
	Bucket    string
	Prefix    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	LocalDir  string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the configured backend. The returned Closer releases any
// client connections and must be closed by the caller.
func Open(ctx context.Context, cfg Config) (ingest.ObjectStore, io.Closer, error) {
	switch cfg.Backend {
	case BackendLocal, "":
		store, err := local.New(local.Config{BaseDir: cfg.LocalDir, Prefix: cfg.Prefix})
		if err != nil {
			return nil, nil, fmt.Errorf("local store: %w", err)
		}
		return store, nopCloser{}, nil
	case BackendS3:
		store, err := s3.New(s3.Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Region:    cfg.Region,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("s3 store: %w", err)
		}
		return store, nopCloser{}, nil
	case BackendGCS:
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create GCS client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("gcs store: %w", err)
		}
		return store, client, nil
	case BackendMemory:
		return memory.NewObjectStore(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
