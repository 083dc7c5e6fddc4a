// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Pipeline runs are batch jobs, so metrics are collected in a private
// registry and pushed to a Pushgateway at the end of the run instead of
// being exposed on a scrape endpoint. All Prometheus-specific dependencies
// stay in this package; the pipeline depends only on metrics.Backend.
package prompush

import (
	"fmt"

	"iptu/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // "iptu_step_total"
	stepDuration *prometheus.SummaryVec // "iptu_step_duration_seconds"

	recordCounter *prometheus.CounterVec // "iptu_records_total"
	qualityRate   *prometheus.GaugeVec   // "iptu_quality_rate_percent"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName is the Pushgateway "job" grouping key; gatewayURL is the base URL
// of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "iptu"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iptu_step_total",
			Help: "Total pipeline stage executions, partitioned by year, step, and status.",
		},
		[]string{"year", "step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "iptu_step_duration_seconds",
			Help:       "Duration of pipeline stages in seconds, partitioned by year, step, and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"year", "step", "status"},
	)

	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iptu_records_total",
			Help: "Record-level counts per year and kind (valid, invalid, consolidated, loaded).",
		},
		[]string{"year", "kind"},
	)

	qualityRate := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "iptu_quality_rate_percent",
			Help: "Percentage of records per year that passed validation.",
		},
		[]string{"year"},
	)

	if err := reg.Register(stepCounter); err != nil {
		return nil, fmt.Errorf("prompush: register step counter: %w", err)
	}
	if err := reg.Register(stepDuration); err != nil {
		return nil, fmt.Errorf("prompush: register step summary: %w", err)
	}
	if err := reg.Register(recordCounter); err != nil {
		return nil, fmt.Errorf("prompush: register record counter: %w", err)
	}
	if err := reg.Register(qualityRate); err != nil {
		return nil, fmt.Errorf("prompush: register quality gauge: %w", err)
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stepCounter:   stepCounter,
		stepDuration:  stepDuration,
		recordCounter: recordCounter,
		qualityRate:   qualityRate,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "iptu_step_total":
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["year"], labels["step"], labels["status"]).Add(delta)

	case "iptu_records_total":
		if b.recordCounter == nil {
			return
		}
		b.recordCounter.WithLabelValues(labels["year"], labels["kind"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case "iptu_step_duration_seconds":
		if b.stepDuration == nil {
			return
		}
		b.stepDuration.WithLabelValues(labels["year"], labels["step"], labels["status"]).Observe(value)

	case "iptu_quality_rate_percent":
		if b.qualityRate == nil {
			return
		}
		b.qualityRate.WithLabelValues(labels["year"]).Set(value)
	}
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
