// Package gcs reads archive files from a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

// Config captures the parameters required to read from GCS.
type Config struct {
	Bucket string
	Prefix string
}

// ObjectStore lists and streams objects from a configured bucket.
type ObjectStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed object store.
func New(client *storage.Client, cfg Config) (*ObjectStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &ObjectStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// List returns every object under the configured prefix.
func (s *ObjectStore) List(ctx context.Context) ([]ingest.WorkItem, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	var items []ingest.WorkItem
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", s.bucket, s.prefix, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		items = append(items, ingest.WorkItem{Key: attrs.Name, Size: attrs.Size})
	}
	return items, nil
}

// Open streams the object stored under key.
func (s *ObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("key is required")
	}
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", s.bucket, key, err)
	}
	return r, nil
}

var _ ingest.ObjectStore = (*ObjectStore)(nil)
