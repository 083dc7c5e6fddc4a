package quality

import (
	"encoding/json"
	"math"
	"time"
)

// YearStats aggregates validation results for one processing unit (a year).
type YearStats struct {
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
	// QualityRate is the valid share in percent, rounded to 2 decimals.
	QualityRate float64 `json:"quality_rate"`
	// RawChecksum is the xxh3 hex digest of the raw archive bytes, tying the
	// stats to the exact artifact that produced them.
	RawChecksum string `json:"raw_checksum,omitempty"`
}

// Stats accumulates per-year and overall validation counts across a run.
type Stats struct {
	TotalValid   int
	TotalInvalid int
	Years        []string // insertion order, for a stable report
	ByYear       map[string]YearStats
}

// NewStats returns an empty accumulator.
func NewStats() *Stats {
	return &Stats{ByYear: map[string]YearStats{}}
}

// Add records the outcome of one year.
func (s *Stats) Add(year string, valid, invalid int, rawChecksum string) {
	s.TotalValid += valid
	s.TotalInvalid += invalid
	if _, seen := s.ByYear[year]; !seen {
		s.Years = append(s.Years, year)
	}
	s.ByYear[year] = YearStats{
		Valid:       valid,
		Invalid:     invalid,
		QualityRate: Rate(valid, valid+invalid),
		RawChecksum: rawChecksum,
	}
}

// Rate is the quality rate in percent, rounded to 2 decimals. A zero total
// yields 0.
func Rate(valid, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(valid)/float64(total)*100*100) / 100
}

// Report is the consolidated quality report persisted at the end of a run.
type Report struct {
	ExecutionDate      string               `json:"execution_date"`
	TotalRecords       int                  `json:"total_records_processed"`
	TotalValid         int                  `json:"total_valid_records"`
	TotalInvalid       int                  `json:"total_invalid_records"`
	OverallQualityRate float64              `json:"overall_quality_rate"`
	ByYear             map[string]YearStats `json:"by_year"`
}

// BuildReport snapshots the accumulator into a Report stamped with now.
func (s *Stats) BuildReport(now time.Time) Report {
	return Report{
		ExecutionDate:      now.Format(time.RFC3339),
		TotalRecords:       s.TotalValid + s.TotalInvalid,
		TotalValid:         s.TotalValid,
		TotalInvalid:       s.TotalInvalid,
		OverallQualityRate: Rate(s.TotalValid, s.TotalValid+s.TotalInvalid),
		ByYear:             s.ByYear,
	}
}

// Marshal renders the report with indentation for the audit bucket.
func (r Report) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
