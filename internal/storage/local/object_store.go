// Package local reads archive files from a directory tree.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

// Config captures the parameters for the local filesystem store.
type Config struct {
	// BaseDir is the root directory scanned for archive files.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
	// Prefix restricts listing to keys under this relative path.
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// ObjectStore serves files below BaseDir, keyed by slash-separated
// relative paths.
type ObjectStore struct {
	baseDir string
	prefix  string
}

// New creates a store rooted at cfg.BaseDir, which must exist.
func New(cfg Config) (*ObjectStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}
	baseDir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}
	return &ObjectStore{
		baseDir: baseDir,
		prefix:  strings.TrimPrefix(filepath.ToSlash(cfg.Prefix), "/"),
	}, nil
}

// List walks the tree and returns every regular, non-hidden file.
func (s *ObjectStore) List(ctx context.Context) ([]ingest.WorkItem, error) {
	var items []ingest.WorkItem
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if strings.HasPrefix(d.Name(), ".") && path != s.baseDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return fmt.Errorf("relative path: %w", err)
		}
		key := filepath.ToSlash(rel)
		if s.prefix != "" && !strings.HasPrefix(key, s.prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", key, err)
		}
		items = append(items, ingest.WorkItem{Key: key, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.baseDir, err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

// Open opens the file for key.
func (s *ObjectStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("key is required")
	}
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("path traversal detected")
	}
	fullPath := filepath.Join(s.baseDir, rel)
	// #nosec G304 -- path is confined to baseDir above.
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

var _ ingest.ObjectStore = (*ObjectStore)(nil)
