// Package config defines the canonical, JSON-serializable configuration model
// for the IPTU pipeline. It is intentionally small, explicit, and dependency-
// free so that runs can be loaded from disk and passed through the program
// without additional glue code.
//
// Design goals:
//
//  1. Stability: changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: field names in Go mirror the JSON structure of run files.
//  3. Minimalism: no third-party config libraries; decoding is performed by
//     the standard library, with environment overrides for secrets.
//
// Example (trimmed):
//
//	{
//	  "job": "iptu-recife",
//	  "years": [
//	    { "year": 2023, "url": "https://.../iptu_2023.zip", "format": "csv" }
//	  ],
//	  "buckets": { "raw": "iptu-recife-raw", "processed": "iptu-recife-processed", "quality": "iptu-recife-quality" },
//	  "storage": { "kind": "s3", "s3": { "endpoint": "http://localhost:9000" } },
//	  "warehouse": { "kind": "postgres", "dsn": "postgresql://...", "table": "public.iptu" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Run describes one full pipeline execution: which years to fetch, where the
// three object layers live, and the optional warehouse and metrics sinks.
type Run struct {
	// Job names the run for metrics grouping (Pushgateway job, Datadog tags).
	Job string `json:"job"`

	// Years lists the datasets to process. Years are processed sequentially;
	// order here is the consolidation order.
	Years []YearSource `json:"years"`

	// Buckets names the raw / processed / quality object layers.
	Buckets Buckets `json:"buckets"`

	// Storage selects the object store backend.
	Storage Storage `json:"storage"`

	// Warehouse optionally loads the consolidated table into a SQL warehouse.
	Warehouse Warehouse `json:"warehouse"`

	// Metrics optionally selects a metrics backend.
	Metrics Metrics `json:"metrics"`

	// HTTP tunes the download client.
	HTTP HTTP `json:"http"`
}

// YearSource is one yearly dataset: where to download it and how to read it.
type YearSource struct {
	Year int `json:"year"`

	// URL points at the ZIP archive for the year.
	URL string `json:"url"`

	// Format is the table format inside the archive: "csv" or "json".
	Format string `json:"format"`

	// EntryHint optionally names (a substring of) the archive entry to read.
	// Empty means the first entry with the right extension.
	EntryHint string `json:"entry_hint"`
}

// Buckets names the three object-storage layers.
type Buckets struct {
	Raw       string `json:"raw"`
	Processed string `json:"processed"`
	Quality   string `json:"quality"`
}

// Storage selects the object store backend.
type Storage struct {
	// Kind selects the implementation: "s3" or "local".
	Kind string `json:"kind"`

	// S3 carries options for the "s3" kind.
	S3 S3 `json:"s3"`

	// Local carries options for the "local" kind.
	Local Local `json:"local"`
}

// S3 configures S3-compatible object storage. KeyID and Secret are normally
// supplied through the environment, not the run file.
type S3 struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	KeyID     string `json:"key_id"`
	Secret    string `json:"secret"`
	PathStyle bool   `json:"path_style"`

	// CreateBuckets creates missing buckets before the first upload. Useful
	// against a fresh MinIO; leave false against managed object storage.
	CreateBuckets bool `json:"create_buckets"`
}

// Local configures the directory-backed object store. Bucket names become
// subdirectories of Dir.
type Local struct {
	Dir string `json:"dir"`
}

// Warehouse configures the optional SQL load of the consolidated table.
type Warehouse struct {
	// Kind selects the backend: "postgres", "sqlite", or "" to skip the load.
	Kind string `json:"kind"`

	// DSN is the connection string, passed to the backend driver as-is.
	DSN string `json:"dsn"`

	// Table is the target table name (may be schema-qualified for Postgres).
	Table string `json:"table"`

	// BatchSize is the bulk-insert flush threshold; 0 means the default.
	BatchSize int `json:"batch_size"`
}

// Metrics selects and configures a metrics backend.
type Metrics struct {
	// Kind selects the backend: "prometheus", "datadog", or "" for none.
	Kind string `json:"kind"`

	// GatewayURL is the Pushgateway base URL for the "prometheus" kind.
	GatewayURL string `json:"gateway_url"`

	// StatsdAddr is the DogStatsD address for the "datadog" kind.
	StatsdAddr string `json:"statsd_addr"`
}

// HTTP tunes the download client.
type HTTP struct {
	// TimeoutSeconds is the per-request timeout; 0 means the client default.
	TimeoutSeconds int `json:"timeout_seconds"`

	// MaxRetries caps retry attempts on transient failures; 0 means default.
	MaxRetries int `json:"max_retries"`
}

// Timeout returns the configured per-request timeout as a duration.
func (h HTTP) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// Load reads a run file and applies environment overrides.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	r.applyEnv()
	return &r, nil
}

// Default returns the built-in run configuration: the five published Recife
// IPTU years, the standard bucket names, and a local MinIO endpoint. Secrets
// still come from the environment.
func Default() *Run {
	const base = "https://github.com/Neurolake/challenge-data-engineer/raw/40c5c92c624c3b333fe670eceedb7ca6a0213f25"
	r := &Run{
		Job: "iptu-recife",
		Years: []YearSource{
			{Year: 2020, URL: base + "/iptu_20_23/iptu_2020.zip", Format: "csv", EntryHint: "iptu_2020.csv"},
			{Year: 2021, URL: base + "/iptu_20_23/iptu_2021.zip", Format: "csv", EntryHint: "iptu_2021.csv"},
			{Year: 2022, URL: base + "/iptu_20_23/iptu_2022.zip", Format: "csv", EntryHint: "iptu_2022.csv"},
			{Year: 2023, URL: base + "/iptu_20_23/iptu_2023.zip", Format: "csv", EntryHint: "iptu_2023.csv"},
			{Year: 2024, URL: base + "/iptu_24/iptu_2024_json.zip", Format: "json", EntryHint: "iptu_2024.json"},
		},
		Buckets: Buckets{
			Raw:       "iptu-recife-raw",
			Processed: "iptu-recife-processed",
			Quality:   "iptu-recife-quality",
		},
		Storage: Storage{
			Kind: "s3",
			S3: S3{
				Endpoint:      "http://localhost:9000",
				Region:        "us-east-1",
				PathStyle:     true,
				CreateBuckets: true,
			},
		},
	}
	r.applyEnv()
	return r
}

// applyEnv overlays environment variables onto the run. Secrets and
// deployment-specific endpoints are expected to arrive this way so run files
// stay committable.
func (r *Run) applyEnv() {
	setenv(&r.Storage.S3.Endpoint, "IPTU_S3_ENDPOINT")
	setenv(&r.Storage.S3.Region, "IPTU_S3_REGION")
	setenv(&r.Storage.S3.KeyID, "IPTU_S3_KEY_ID")
	setenv(&r.Storage.S3.Secret, "IPTU_S3_SECRET")
	setenv(&r.Buckets.Raw, "IPTU_RAW_BUCKET")
	setenv(&r.Buckets.Processed, "IPTU_PROCESSED_BUCKET")
	setenv(&r.Buckets.Quality, "IPTU_QUALITY_BUCKET")
	setenv(&r.Warehouse.DSN, "IPTU_WAREHOUSE_DSN")
	setenv(&r.Metrics.GatewayURL, "IPTU_PUSHGATEWAY_URL")
	setenv(&r.Metrics.StatsdAddr, "IPTU_STATSD_ADDR")
}

func setenv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
