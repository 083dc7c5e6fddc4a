// Package local implements storage.ObjectStore on a directory tree. Keys map
// to file paths under the root, so "year=2023/iptu_2023.parquet" lands at
// <root>/year=2023/iptu_2023.parquet. Useful for development and tests.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type Store struct {
	root string
}

// New returns a Store rooted at dir. The directory is created on first Put,
// not here, so constructing a store is side-effect free.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Put writes data to the file named by key, creating parent directories as
// needed. The contentType is ignored; the filesystem has no use for it.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("local: mkdir for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("local: write %s: %w", key, err)
	}
	return nil
}
