package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"iptu/internal/config"
	"iptu/internal/datasource/httpds"
	"iptu/internal/diag"
	"iptu/internal/metrics"
	"iptu/internal/metrics/datadog"
	"iptu/internal/metrics/prompush"
	"iptu/internal/pipeline"
	"iptu/internal/storage/local"
	"iptu/internal/storage/s3"
	"iptu/internal/storage/warehouse"
	"iptu/internal/storage/warehouse/postgres"
	"iptu/internal/storage/warehouse/sqlite"
)

// main is the entry point for the pipeline binary. It loads the run config,
// optionally initializes a metrics backend, wires the object stores and the
// optional warehouse, and executes the run.
func main() {
	var (
		cfgPath  string
		validate bool
	)

	flag.StringVar(&cfgPath, "config", "", "run config JSON path (empty uses the built-in default run)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	var (
		cfg *config.Run
		err error
	)
	if cfgPath == "" {
		cfg = config.Default()
	} else {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			fatalf("load config: %v", err)
		}
	}

	issues := config.Validate(cfg)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	setupMetrics(cfg, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	logger := diag.Std("iptu")

	stores, err := buildStores(ctx, cfg)
	if err != nil {
		fatalf("storage: %v", err)
	}

	repo, closeRepo, err := buildWarehouse(ctx, cfg)
	if err != nil {
		fatalf("warehouse: %v", err)
	}
	if closeRepo != nil {
		defer closeRepo()
	}

	client := httpds.NewClient(httpds.Config{
		Timeout:    cfg.HTTP.Timeout(),
		MaxRetries: cfg.HTTP.MaxRetries,
	})

	start := time.Now()
	if *verbose {
		log.Printf("run: job=%s years=%d storage=%s warehouse=%s",
			cfg.Job, len(cfg.Years), cfg.Storage.Kind, cfg.Warehouse.Kind)
	}

	p := pipeline.New(cfg, client, stores, repo, logger)
	if err := p.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
}

// setupMetrics installs the configured metrics backend, if any. Failure to
// reach a backend downgrades to the nop backend instead of aborting the run.
func setupMetrics(cfg *config.Run, verbose bool) {
	switch cfg.Metrics.Kind {
	case "prometheus":
		b, err := prompush.NewBackend(cfg.Job, cfg.Metrics.GatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=prometheus url=%s job=%s", cfg.Metrics.GatewayURL, cfg.Job)
		metrics.SetBackend(b)

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.StatsdAddr,
			Namespace:  "iptu.",
			GlobalTags: []string{"job:" + cfg.Job},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%s", cfg.Metrics.StatsdAddr)
		metrics.SetBackend(b)

	case "":
		if verbose {
			log.Printf("metrics: disabled")
		}
	}
}

// buildStores constructs the three object layers from the storage config.
func buildStores(ctx context.Context, cfg *config.Run) (pipeline.Stores, error) {
	switch cfg.Storage.Kind {
	case "local":
		dir := cfg.Storage.Local.Dir
		return pipeline.Stores{
			Raw:       local.New(filepath.Join(dir, cfg.Buckets.Raw)),
			Processed: local.New(filepath.Join(dir, cfg.Buckets.Processed)),
			Quality:   local.New(filepath.Join(dir, cfg.Buckets.Quality)),
		}, nil

	case "s3":
		opts := s3.Options{
			Endpoint:  cfg.Storage.S3.Endpoint,
			Region:    cfg.Storage.S3.Region,
			KeyID:     cfg.Storage.S3.KeyID,
			Secret:    cfg.Storage.S3.Secret,
			PathStyle: cfg.Storage.S3.PathStyle,
		}
		raw := s3.New(cfg.Buckets.Raw, opts)
		processed := s3.New(cfg.Buckets.Processed, opts)
		quality := s3.New(cfg.Buckets.Quality, opts)

		if cfg.Storage.S3.CreateBuckets {
			for _, s := range []*s3.Store{raw, processed, quality} {
				if err := s.EnsureBucket(ctx); err != nil {
					return pipeline.Stores{}, err
				}
			}
		}
		return pipeline.Stores{Raw: raw, Processed: processed, Quality: quality}, nil

	default:
		return pipeline.Stores{}, fmt.Errorf("unknown storage kind %q", cfg.Storage.Kind)
	}
}

// buildWarehouse constructs the optional warehouse backend. A nil repository
// means the load step is skipped.
func buildWarehouse(ctx context.Context, cfg *config.Run) (warehouse.Repository, func(), error) {
	switch cfg.Warehouse.Kind {
	case "":
		return nil, nil, nil
	case "postgres":
		return postgres.New(ctx, cfg.Warehouse.DSN, cfg.Warehouse.Table)
	case "sqlite":
		return sqlite.New(ctx, cfg.Warehouse.DSN, cfg.Warehouse.Table)
	default:
		return nil, nil, fmt.Errorf("unknown warehouse kind %q", cfg.Warehouse.Kind)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
