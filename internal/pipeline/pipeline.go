// Package pipeline orchestrates a full run: download each yearly archive,
// validate, map and harmonize it, persist every artifact to the three object
// layers, consolidate across years, and optionally load the result into a
// SQL warehouse.
//
// Years are processed strictly in configuration order; only the final,
// independent uploads (unified parquet, quality report) run concurrently.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"iptu/internal/config"
	"iptu/internal/datasource/httpds"
	"iptu/internal/diag"
	"iptu/internal/harmonizer"
	"iptu/internal/ingest"
	"iptu/internal/mapper"
	"iptu/internal/metrics"
	"iptu/internal/quality"
	"iptu/internal/storage"
	"iptu/internal/storage/warehouse"
	"iptu/pkg/records"
)

// Stores groups the three object layers a run writes to.
type Stores struct {
	Raw       storage.ObjectStore
	Processed storage.ObjectStore
	Quality   storage.ObjectStore
}

// ingestor is the shape both archive readers share.
type ingestor interface {
	Load(archive []byte, nameHint string) (*records.Table, error)
}

// Pipeline wires the run configuration to its collaborators. Construct with
// New; the zero value is not usable.
type Pipeline struct {
	cfg    *config.Run
	client *httpds.Client
	stores Stores

	// repo is nil when the warehouse load is disabled.
	repo warehouse.Repository

	checker    *quality.Checker
	mapper     *mapper.Mapper
	harmonizer *harmonizer.Harmonizer
	csv        *ingest.CSVIngestor
	json       *ingest.JSONIngestor

	log diag.Logger
}

// New assembles a Pipeline. client, stores and cfg are required; repo may be
// nil to skip the warehouse load.
func New(cfg *config.Run, client *httpds.Client, stores Stores, repo warehouse.Repository, log diag.Logger) *Pipeline {
	if log == nil {
		log = diag.Nop()
	}
	return &Pipeline{
		cfg:        cfg,
		client:     client,
		stores:     stores,
		repo:       repo,
		checker:    quality.NewChecker(log),
		mapper:     mapper.New(log),
		harmonizer: harmonizer.New(log),
		csv:        ingest.NewCSV(log),
		json:       ingest.NewJSON(log),
		log:        log,
	}
}

// Run executes the whole pipeline. The first failing year aborts the run:
// a partial consolidation would silently misrepresent the dataset.
func (p *Pipeline) Run(ctx context.Context) error {
	stats := quality.NewStats()
	unified := records.New(storage.WarehouseColumns()...)

	for _, src := range p.cfg.Years {
		harmonized, err := p.processYear(ctx, src, stats)
		if err != nil {
			return fmt.Errorf("pipeline: year %d: %w", src.Year, err)
		}
		unified.Rows = append(unified.Rows, harmonized.Rows...)
	}

	p.log.Infof("consolidation complete: %d records across %d years", unified.Len(), len(p.cfg.Years))
	metrics.RecordRows("all", "consolidated", int64(unified.Len()))

	if err := p.finish(ctx, unified, stats); err != nil {
		return err
	}

	p.log.Infof("run complete: %d valid, %d invalid, overall quality %.2f%%",
		stats.TotalValid, stats.TotalInvalid, quality.Rate(stats.TotalValid, stats.TotalValid+stats.TotalInvalid))
	return nil
}

// processYear runs one year end to end and returns its harmonized table
// (already carrying the ano partition column).
func (p *Pipeline) processYear(ctx context.Context, src config.YearSource, stats *quality.Stats) (*records.Table, error) {
	year := strconv.Itoa(src.Year)
	p.log.Infof("processing year %s (%s)", year, src.Format)

	// Download the archive fully into memory.
	var archive []byte
	err := p.step(year, "download", func() error {
		var err error
		archive, err = p.client.DownloadArchive(ctx, src.URL)
		return err
	})
	if err != nil {
		return nil, err
	}
	checksum := fmt.Sprintf("%016x", xxh3.Hash(archive))
	p.log.Infof("downloaded %d bytes (xxh3 %s)", len(archive), checksum)

	// Raw layer: the archive exactly as fetched.
	rawKey := fmt.Sprintf("year=%s/iptu_%s.zip", year, year)
	err = p.step(year, "upload_raw", func() error {
		return p.stores.Raw.Put(ctx, rawKey, archive, storage.ContentTypeZip)
	})
	if err != nil {
		return nil, err
	}

	// Read the table out of the archive.
	var raw *records.Table
	err = p.step(year, "ingest", func() error {
		var err error
		raw, err = p.ingestorFor(src.Format).Load(archive, src.EntryHint)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Validate the raw rows before any transformation touches them.
	var valid, invalid *records.Table
	err = p.step(year, "validate", func() error {
		valid, invalid = p.checker.Validate(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	stats.Add(year, valid.Len(), invalid.Len(), checksum)
	metrics.RecordRows(year, "valid", int64(valid.Len()))
	metrics.RecordRows(year, "invalid", int64(invalid.Len()))
	metrics.RecordQualityRate(year, quality.Rate(valid.Len(), valid.Len()+invalid.Len()))
	p.log.Infof("year %s: %d valid, %d invalid", year, valid.Len(), invalid.Len())

	// Quality layer: rejected rows with their diagnostics, raw schema intact.
	if !invalid.Empty() {
		invalid.SetColumn("ano", int64(src.Year))
		invalidKey := fmt.Sprintf("year=%s/iptu_invalid_%s.csv", year, year)
		err = p.step(year, "upload_invalid", func() error {
			data, err := storage.EncodeCSV(invalid)
			if err != nil {
				return err
			}
			return p.stores.Quality.Put(ctx, invalidKey, data, storage.ContentTypeCSV)
		})
		if err != nil {
			return nil, err
		}
	}

	// Map and harmonize only the valid rows.
	var harmonized *records.Table
	err = p.step(year, "map", func() error {
		harmonized = p.mapper.MapColumns(valid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = p.step(year, "harmonize", func() error {
		harmonized = p.harmonizer.Run(harmonized)
		return nil
	})
	if err != nil {
		return nil, err
	}
	harmonized.SetColumn("ano", int64(src.Year))

	// Processed layer: the harmonized year as parquet.
	processedKey := fmt.Sprintf("year=%s/iptu_%s.parquet", year, year)
	err = p.step(year, "upload_processed", func() error {
		data, err := storage.EncodeParquet(harmonized)
		if err != nil {
			return err
		}
		return p.stores.Processed.Put(ctx, processedKey, data, storage.ContentTypeParquet)
	})
	if err != nil {
		return nil, err
	}

	return harmonized, nil
}

// finish uploads the cross-year artifacts and runs the optional warehouse
// load. The two uploads are independent, so they run concurrently.
func (p *Pipeline) finish(ctx context.Context, unified *records.Table, stats *quality.Stats) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.step("all", "upload_unified", func() error {
			data, err := storage.EncodeParquet(unified)
			if err != nil {
				return err
			}
			return p.stores.Processed.Put(gctx, "iptu_unificado.parquet", data, storage.ContentTypeParquet)
		})
	})

	g.Go(func() error {
		return p.step("all", "upload_report", func() error {
			data, err := stats.BuildReport(time.Now()).Marshal()
			if err != nil {
				return err
			}
			return p.stores.Quality.Put(gctx, "quality_report.json", data, storage.ContentTypeJSON)
		})
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("pipeline: final uploads: %w", err)
	}

	if p.repo == nil {
		return nil
	}
	return p.step("all", "warehouse_load", func() error {
		n, err := warehouse.Load(ctx, p.repo, p.cfg.Warehouse.Table, unified, p.cfg.Warehouse.BatchSize, p.log)
		metrics.RecordRows("all", "loaded", n)
		return err
	})
}

// ingestorFor picks the archive reader for a configured format. Validate has
// already rejected unknown formats, so default to CSV rather than panic.
func (p *Pipeline) ingestorFor(format string) ingestor {
	if format == "json" {
		return p.json
	}
	return p.csv
}

// step times fn and records the outcome as a metric under the given year and
// step name. The error is passed through untouched.
func (p *Pipeline) step(year, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(year, name, err, time.Since(start))
	if err != nil {
		p.log.Errorf("%s failed for year %s: %v", name, year, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
