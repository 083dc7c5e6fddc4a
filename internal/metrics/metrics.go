// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the IPTU pipeline.
//
// The package is intentionally minimal and opinionated:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data.
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - Concrete metric systems (Prometheus Pushgateway, Datadog) stay isolated
//     in subpackages; the pipeline stages depend only on this interface.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
// It is intentionally generic so we can plug in Prometheus, Datadog, etc.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures one pipeline stage execution: latency plus a
// success/failure counter. year is the dataset year the stage ran for, or
// "all" for cross-year stages like consolidation.
func RecordStep(year, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"year":   year,
		"step":   step,
		"status": status,
	}

	backend.IncCounter("iptu_step_total", 1, lbls)
	backend.ObserveHistogram("iptu_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a record-level counter for the given year and kind.
//
// Typical kinds mirror the quality report fields:
//   - "valid"
//   - "invalid"
//   - "consolidated"
//   - "loaded"
func RecordRows(year, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("iptu_records_total", float64(delta), Labels{
		"year": year,
		"kind": kind,
	})
}

// RecordQualityRate records the per-year quality rate (percent of valid
// records) as a gauge-style observation.
func RecordQualityRate(year string, rate float64) {
	backend.ObserveHistogram("iptu_quality_rate_percent", rate, Labels{
		"year": year,
	})
}
