// Package config provides configuration models and helpers for pipeline runs.
//
// This file adds a lightweight linter/validator for Run values. It performs
// static checks over a decoded Run and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Run.
//
// Path is a dotted path into the config (e.g. "storage.kind", "years[1].url").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation / linting of a Run.
//
// It does not mutate the run. Instead it returns a slice of Issue values;
// callers decide whether to treat warnings as fatal.
func Validate(r *Run) []Issue {
	var issues []Issue

	if strings.TrimSpace(r.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}

	issues = append(issues, validateYears(r.Years)...)
	issues = append(issues, validateBuckets(r.Buckets)...)
	issues = append(issues, validateStorage(r.Storage)...)
	issues = append(issues, validateWarehouse(r.Warehouse)...)
	issues = append(issues, validateMetrics(r.Metrics)...)

	if r.HTTP.TimeoutSeconds < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "http.timeout_seconds",
			Message:  "timeout_seconds must not be negative",
		})
	}
	if r.HTTP.MaxRetries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "http.max_retries",
			Message:  "max_retries must not be negative",
		})
	}

	return issues
}

// validateYears validates the year source list.
func validateYears(years []YearSource) []Issue {
	var issues []Issue

	if len(years) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "years",
			Message:  "no year sources configured; nothing to process",
		})
		return issues
	}

	seen := map[int]struct{}{}
	for i, y := range years {
		path := fmt.Sprintf("years[%d]", i)

		if y.Year == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".year",
				Message:  "year must be set",
			})
		}
		if _, dup := seen[y.Year]; dup {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".year",
				Message:  fmt.Sprintf("year %d appears more than once; later entries overwrite earlier artifacts", y.Year),
			})
		}
		seen[y.Year] = struct{}{}

		if strings.TrimSpace(y.URL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".url",
				Message:  "url must not be empty",
			})
		}

		switch y.Format {
		case "csv", "json":
		case "":
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".format",
				Message:  `format must be "csv" or "json"`,
			})
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".format",
				Message:  fmt.Sprintf(`unknown format %q; want "csv" or "json"`, y.Format),
			})
		}
	}

	return issues
}

// validateBuckets ensures all three layers are named.
func validateBuckets(b Buckets) []Issue {
	var issues []Issue
	for _, probe := range []struct{ path, name string }{
		{"buckets.raw", b.Raw},
		{"buckets.processed", b.Processed},
		{"buckets.quality", b.Quality},
	} {
		if strings.TrimSpace(probe.name) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     probe.path,
				Message:  "bucket name must not be empty",
			})
		}
	}
	return issues
}

// validateStorage validates object store configuration.
func validateStorage(s Storage) []Issue {
	var issues []Issue

	switch s.Kind {
	case "s3":
		if strings.TrimSpace(s.S3.KeyID) == "" || strings.TrimSpace(s.S3.Secret) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "storage.s3",
				Message:  "key_id/secret are empty; set IPTU_S3_KEY_ID and IPTU_S3_SECRET or fill them in the run file",
			})
		}
	case "local":
		if strings.TrimSpace(s.Local.Dir) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.local.dir",
				Message:  "local storage requires a non-empty dir",
			})
		}
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf(`unknown storage kind %q; want "s3" or "local"`, s.Kind),
		})
	}

	return issues
}

// validateWarehouse validates the optional warehouse load settings.
func validateWarehouse(w Warehouse) []Issue {
	var issues []Issue

	if w.Kind == "" {
		return nil // warehouse load disabled
	}

	known := map[string]struct{}{
		"postgres": {},
		"sqlite":   {},
	}
	if _, ok := known[w.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.kind",
			Message:  fmt.Sprintf(`unknown warehouse kind %q; want "postgres" or "sqlite"`, w.Kind),
		})
	}

	if strings.TrimSpace(w.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.dsn",
			Message:  "warehouse.dsn must not be empty when a warehouse kind is set",
		})
	}
	if strings.TrimSpace(w.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.table",
			Message:  "warehouse.table must not be empty when a warehouse kind is set",
		})
	}
	if w.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.batch_size",
			Message:  "batch_size must not be negative",
		})
	}

	return issues
}

// validateMetrics validates the metrics backend selection.
func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Kind {
	case "":
		// metrics disabled
	case "prometheus":
		if strings.TrimSpace(m.GatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.gateway_url",
				Message:  "prometheus metrics require a Pushgateway URL",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.StatsdAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.statsd_addr",
				Message:  "datadog metrics require a DogStatsD address",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.kind",
			Message:  fmt.Sprintf(`unknown metrics kind %q; want "prometheus" or "datadog"`, m.Kind),
		})
	}

	return issues
}
