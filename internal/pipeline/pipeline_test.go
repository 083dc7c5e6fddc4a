package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"iptu/internal/config"
	"iptu/internal/datasource/httpds"
	"iptu/internal/storage"
)

// memStore is an in-memory ObjectStore capturing every Put.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	return nil
}

func (m *memStore) get(t *testing.T, key string) []byte {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		keys := make([]string, 0, len(m.objects))
		for k := range m.objects {
			keys = append(keys, k)
		}
		t.Fatalf("object %q not stored; have %v", key, keys)
	}
	return data
}

// memRepo is an in-memory warehouse backend.
type memRepo struct {
	mu   sync.Mutex
	ddl  []string
	rows [][]any
}

func (m *memRepo) Exec(ctx context.Context, sql string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ddl = append(m.ddl, sql)
	return nil
}

func (m *memRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
	return int64(len(rows)), nil
}

func zipOf(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := w.Write(content); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func csvArchive(t *testing.T) []byte {
	content := "Número do Contribuinte;Ano do Exercício;Logradouro;Bairro;Cidade;Valor Total do Imóvel Estimado;Valor IPTU\n" +
		"0001;2023;RUA DA AURORA;BOA VISTA;RECIFE;R$ 150.000,00;1200.50\n" +
		"0002;2031;RUA DO SOL;SANTO AMARO;RECIFE;200000;800\n" // bad year, must be rejected
	return zipOf(t, "iptu_2023.csv", []byte(content))
}

func jsonArchive(t *testing.T) []byte {
	doc := `[{
		"numero_do_contribuinte": "0003",
		"ano_do_exercicio": 2024,
		"logradouro": "AV BOA VIAGEM",
		"bairro": "BOA VIAGEM",
		"cidade": "RECIFE",
		"valor_total_do_imovel_estimado": 300000,
		"valor_iptu": 2500.75
	}]`
	return zipOf(t, "iptu_2024.json", []byte(doc))
}

// testServer serves one archive per URL path.
func testServer(t *testing.T, archives map[string][]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := archives[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runConfig(baseURL string) *config.Run {
	return &config.Run{
		Job: "iptu-test",
		Years: []config.YearSource{
			{Year: 2023, URL: baseURL + "/2023.zip", Format: "csv", EntryHint: "iptu"},
			{Year: 2024, URL: baseURL + "/2024.zip", Format: "json"},
		},
		Buckets: config.Buckets{Raw: "raw", Processed: "processed", Quality: "quality"},
		Warehouse: config.Warehouse{
			Kind: "sqlite", DSN: "unused", Table: "iptu", BatchSize: 2,
		},
	}
}

/*
TestRun_EndToEnd drives a two-year run (one CSV, one JSON year) against a
fake HTTP source, in-memory stores and an in-memory warehouse, and checks
every artifact the run must leave behind.
*/
func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	csvZip := csvArchive(t)
	srv := testServer(t, map[string][]byte{
		"/2023.zip": csvZip,
		"/2024.zip": jsonArchive(t),
	})

	cfg := runConfig(srv.URL)
	raw, processed, quality := newMemStore(), newMemStore(), newMemStore()
	repo := &memRepo{}

	client := httpds.NewClient(httpds.Config{Timeout: 10 * time.Second})
	p := New(cfg, client, Stores{Raw: raw, Processed: processed, Quality: quality}, repo, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// Raw layer: archives exactly as served.
	if got := raw.get(t, "year=2023/iptu_2023.zip"); !bytes.Equal(got, csvZip) {
		t.Fatal("raw 2023 archive differs from the served bytes")
	}
	raw.get(t, "year=2024/iptu_2024.zip")

	// Processed layer: one parquet per year plus the consolidation.
	for _, key := range []string{
		"year=2023/iptu_2023.parquet",
		"year=2024/iptu_2024.parquet",
		"iptu_unificado.parquet",
	} {
		if ct := processedType(processed, key); ct != storage.ContentTypeParquet {
			t.Fatalf("%s content type = %q", key, ct)
		}
	}

	unified := processed.get(t, "iptu_unificado.parquet")
	rows, err := parquet.Read[storage.Row](bytes.NewReader(unified), int64(len(unified)))
	if err != nil {
		t.Fatalf("read unified parquet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("unified rows = %d, want 2 (one valid per year)", len(rows))
	}
	years := map[int64]bool{}
	for _, r := range rows {
		if r.Ano == nil {
			t.Fatal("unified row without ano")
		}
		years[*r.Ano] = true
	}
	if !years[2023] || !years[2024] {
		t.Fatalf("unified years = %v, want 2023 and 2024", years)
	}

	// Quality layer: the rejected 2023 row and the consolidated report.
	invalidCSV := string(quality.get(t, "year=2023/iptu_invalid_2023.csv"))
	if !strings.Contains(invalidCSV, "0002") || !strings.Contains(invalidCSV, "ano_invalido;") {
		t.Fatalf("invalid artifact missing the rejected row:\n%s", invalidCSV)
	}
	if !strings.Contains(invalidCSV, "validation_errors") {
		t.Fatal("invalid artifact missing the diagnostic column")
	}

	var report struct {
		TotalRecords int                        `json:"total_records_processed"`
		TotalValid   int                        `json:"total_valid_records"`
		TotalInvalid int                        `json:"total_invalid_records"`
		ByYear       map[string]json.RawMessage `json:"by_year"`
	}
	if err := json.Unmarshal(quality.get(t, "quality_report.json"), &report); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if report.TotalRecords != 3 || report.TotalValid != 2 || report.TotalInvalid != 1 {
		t.Fatalf("report totals = %+v", report)
	}
	for _, year := range []string{"2023", "2024"} {
		if _, ok := report.ByYear[year]; !ok {
			t.Fatalf("report missing year %s", year)
		}
	}

	// Warehouse: both valid rows loaded, table ensured once.
	if len(repo.ddl) != 1 || !strings.Contains(repo.ddl[0], "CREATE TABLE IF NOT EXISTS iptu") {
		t.Fatalf("ddl = %v", repo.ddl)
	}
	if len(repo.rows) != 2 {
		t.Fatalf("warehouse rows = %d, want 2", len(repo.rows))
	}
}

/*
TestRun_NilRepoSkipsWarehouse verifies the load step is skipped entirely when
no warehouse is configured.
*/
func TestRun_NilRepoSkipsWarehouse(t *testing.T) {
	t.Parallel()

	srv := testServer(t, map[string][]byte{"/2023.zip": csvArchive(t)})

	cfg := runConfig(srv.URL)
	cfg.Years = cfg.Years[:1]
	cfg.Warehouse = config.Warehouse{}

	client := httpds.NewClient(httpds.Config{Timeout: 10 * time.Second})
	p := New(cfg, client, Stores{Raw: newMemStore(), Processed: newMemStore(), Quality: newMemStore()}, nil, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

/*
TestRun_FirstFailureAborts verifies that a failing year stops the run before
any later year or final artifact is produced.
*/
func TestRun_FirstFailureAborts(t *testing.T) {
	t.Parallel()

	// Only 2024 is served; 2023 404s first.
	srv := testServer(t, map[string][]byte{"/2024.zip": jsonArchive(t)})

	cfg := runConfig(srv.URL)
	raw, processed, quality := newMemStore(), newMemStore(), newMemStore()

	client := httpds.NewClient(httpds.Config{Timeout: 10 * time.Second})
	p := New(cfg, client, Stores{Raw: raw, Processed: processed, Quality: quality}, nil, nil)

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run() = nil error, want download failure")
	}
	if !strings.Contains(err.Error(), "2023") || !strings.Contains(err.Error(), "download") {
		t.Fatalf("err = %v, want year 2023 download failure", err)
	}

	raw.mu.Lock()
	rawCount := len(raw.objects)
	raw.mu.Unlock()
	processed.mu.Lock()
	processedCount := len(processed.objects)
	processed.mu.Unlock()
	if rawCount != 0 || processedCount != 0 {
		t.Fatalf("artifacts written despite aborted run: raw=%d processed=%d", rawCount, processedCount)
	}
}

/*
TestRun_CorruptArchive verifies an unreadable archive fails the ingest step
after the raw bytes were already preserved.
*/
func TestRun_CorruptArchive(t *testing.T) {
	t.Parallel()

	srv := testServer(t, map[string][]byte{"/2023.zip": []byte("not a zip at all")})

	cfg := runConfig(srv.URL)
	cfg.Years = cfg.Years[:1]
	raw := newMemStore()

	client := httpds.NewClient(httpds.Config{Timeout: 10 * time.Second})
	p := New(cfg, client, Stores{Raw: raw, Processed: newMemStore(), Quality: newMemStore()}, nil, nil)

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run() = nil error, want ingest failure")
	}
	if !strings.Contains(err.Error(), "ingest") {
		t.Fatalf("err = %v, want ingest failure", err)
	}
	// The raw artifact must already be there: upload_raw precedes ingest.
	raw.get(t, "year=2023/iptu_2023.zip")
}

func processedType(m *memStore, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types[key]
}
