// Package storage contains storage-agnostic contracts for the pipeline's
// three object layers (raw, quality, processed) plus the encoders that turn
// tables into storable artifacts. Concrete backends (S3, local directory)
// live in subpackages so the pipeline depends only on the ObjectStore
// interface.
package storage

import "context"

// ObjectStore persists opaque artifacts under hierarchical keys
// (e.g. "year=2023/iptu_2023.parquet").
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Content types for the artifacts the pipeline emits.
const (
	ContentTypeZip     = "application/zip"
	ContentTypeParquet = "application/vnd.apache.parquet"
	ContentTypeCSV     = "text/csv"
	ContentTypeJSON    = "application/json"
)
