package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// -----------------------------------------------------------------------------
// Run decoding tests
// -----------------------------------------------------------------------------
//
// These tests validate that the top-level Run JSON structure decodes into the
// intended Go struct graph. The goal is to ensure the JSON schema used in run
// files maps cleanly to the Go types. We parse JSON strings here to keep the
// tests hermetic and focused on the API surface rather than filesystem wiring.

func TestRun_DecodeRoundTrip(t *testing.T) {
	t.Parallel()

	const js = `{
	  "job": "iptu-recife",
	  "years": [
	    { "year": 2023, "url": "https://example.com/iptu_2023.zip", "format": "csv", "entry_hint": "iptu_2023.csv" },
	    { "year": 2024, "url": "https://example.com/iptu_2024_json.zip", "format": "json" }
	  ],
	  "buckets": { "raw": "raw-b", "processed": "proc-b", "quality": "qual-b" },
	  "storage": {
	    "kind": "s3",
	    "s3": { "endpoint": "http://localhost:9000", "region": "us-east-1", "path_style": true, "create_buckets": true }
	  },
	  "warehouse": { "kind": "postgres", "dsn": "postgresql://u:p@h:5432/db", "table": "public.iptu", "batch_size": 5000 },
	  "metrics": { "kind": "prometheus", "gateway_url": "http://pushgateway:9091" },
	  "http": { "timeout_seconds": 120, "max_retries": 5 }
	}`

	var r Run
	if err := json.Unmarshal([]byte(js), &r); err != nil {
		t.Fatalf("json.Unmarshal(Run): %v", err)
	}

	if r.Job != "iptu-recife" {
		t.Fatalf("job = %q, want iptu-recife", r.Job)
	}

	if len(r.Years) != 2 {
		t.Fatalf("len(years) = %d, want 2", len(r.Years))
	}
	y0 := r.Years[0]
	if y0.Year != 2023 || y0.Format != "csv" || y0.EntryHint != "iptu_2023.csv" {
		t.Fatalf("years[0] = %#v, want year=2023 format=csv hint=iptu_2023.csv", y0)
	}
	if r.Years[1].Format != "json" || r.Years[1].EntryHint != "" {
		t.Fatalf("years[1] = %#v, want format=json empty hint", r.Years[1])
	}

	if r.Buckets.Raw != "raw-b" || r.Buckets.Processed != "proc-b" || r.Buckets.Quality != "qual-b" {
		t.Fatalf("buckets = %#v", r.Buckets)
	}

	if r.Storage.Kind != "s3" {
		t.Fatalf("storage.kind = %q, want s3", r.Storage.Kind)
	}
	if !r.Storage.S3.PathStyle || !r.Storage.S3.CreateBuckets {
		t.Fatalf("storage.s3 = %#v, want path_style and create_buckets true", r.Storage.S3)
	}
	if r.Storage.S3.Endpoint != "http://localhost:9000" {
		t.Fatalf("storage.s3.endpoint = %q", r.Storage.S3.Endpoint)
	}

	if r.Warehouse.Kind != "postgres" || r.Warehouse.Table != "public.iptu" || r.Warehouse.BatchSize != 5000 {
		t.Fatalf("warehouse = %#v", r.Warehouse)
	}

	if r.Metrics.Kind != "prometheus" || r.Metrics.GatewayURL != "http://pushgateway:9091" {
		t.Fatalf("metrics = %#v", r.Metrics)
	}

	if r.HTTP.TimeoutSeconds != 120 || r.HTTP.MaxRetries != 5 {
		t.Fatalf("http = %#v", r.HTTP)
	}
	if got := r.HTTP.Timeout().Seconds(); got != 120 {
		t.Fatalf("HTTP.Timeout() = %vs, want 120s", got)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	// Not parallel: mutates process environment.

	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	const js = `{
	  "job": "iptu-recife",
	  "years": [ { "year": 2023, "url": "https://example.com/x.zip", "format": "csv" } ],
	  "buckets": { "raw": "file-raw", "processed": "file-proc", "quality": "file-qual" },
	  "storage": { "kind": "s3", "s3": { "endpoint": "http://file-endpoint:9000" } }
	}`
	if err := os.WriteFile(path, []byte(js), 0o644); err != nil {
		t.Fatalf("write run file: %v", err)
	}

	t.Setenv("IPTU_S3_ENDPOINT", "http://env-endpoint:9000")
	t.Setenv("IPTU_S3_KEY_ID", "env-key")
	t.Setenv("IPTU_S3_SECRET", "env-secret")
	t.Setenv("IPTU_RAW_BUCKET", "env-raw")
	t.Setenv("IPTU_WAREHOUSE_DSN", "postgresql://env")

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if r.Storage.S3.Endpoint != "http://env-endpoint:9000" {
		t.Fatalf("endpoint = %q, want env override", r.Storage.S3.Endpoint)
	}
	if r.Storage.S3.KeyID != "env-key" || r.Storage.S3.Secret != "env-secret" {
		t.Fatalf("s3 credentials = %q/%q, want env values", r.Storage.S3.KeyID, r.Storage.S3.Secret)
	}
	if r.Buckets.Raw != "env-raw" {
		t.Fatalf("buckets.raw = %q, want env-raw", r.Buckets.Raw)
	}
	// Buckets without overrides keep the file values.
	if r.Buckets.Processed != "file-proc" || r.Buckets.Quality != "file-qual" {
		t.Fatalf("buckets = %#v, want file values for processed/quality", r.Buckets)
	}
	if r.Warehouse.DSN != "postgresql://env" {
		t.Fatalf("warehouse.dsn = %q, want env override", r.Warehouse.DSN)
	}
}

func TestLoad_Errors(t *testing.T) {
	// Not parallel: Load reads the environment.

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
			t.Fatal("Load() of missing file returned nil error")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatal("Load() of malformed file returned nil error")
		}
	})
}

func TestDefault(t *testing.T) {
	// Not parallel: Default reads the environment.

	r := Default()

	if r.Job == "" {
		t.Fatal("Default().Job is empty")
	}
	if len(r.Years) != 5 {
		t.Fatalf("Default() has %d years, want 5", len(r.Years))
	}

	wantFormats := map[int]string{
		2020: "csv", 2021: "csv", 2022: "csv", 2023: "csv", 2024: "json",
	}
	for _, y := range r.Years {
		want, ok := wantFormats[y.Year]
		if !ok {
			t.Fatalf("unexpected default year %d", y.Year)
		}
		if y.Format != want {
			t.Fatalf("year %d format = %q, want %q", y.Year, y.Format, want)
		}
		if y.URL == "" {
			t.Fatalf("year %d has empty URL", y.Year)
		}
	}

	if r.Buckets.Raw == "" || r.Buckets.Processed == "" || r.Buckets.Quality == "" {
		t.Fatalf("Default() buckets incomplete: %#v", r.Buckets)
	}
	if r.Storage.Kind != "s3" {
		t.Fatalf("Default() storage kind = %q, want s3", r.Storage.Kind)
	}
}
