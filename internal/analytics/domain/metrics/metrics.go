// Package metrics derives production KPIs for a line from summed readings.
package metrics

import (
	"time"

	"plant-monitor/internal/apperrors"
)

// DefaultQualityThreshold is the minimum reading counted as good quality.
const DefaultQualityThreshold = 0.95

// ErrInvalidWindow is returned when a window is missing a bound or inverted.
var ErrInvalidWindow = apperrors.Invalid("metrics: start_date must be before end_date")

// Sums are the category totals over a window.
type Sums struct {
	Production         float64
	Downtime           float64
	QualityNumerator   float64
	QualityDenominator float64
}

// Window is an inclusive time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Hours is the window length in hours.
func (w Window) Hours() float64 {
	return w.End.Sub(w.Start).Hours()
}

// Validate requires both bounds with Start strictly before End.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() || !w.Start.Before(w.End) {
		return ErrInvalidWindow
	}
	return nil
}

// Result holds the derived indicators.
type Result struct {
	TotalTimeHours float64 `json:"total_time_hours"`
	Production     float64 `json:"production"`
	Downtime       float64 `json:"downtime"`
	ProductionRate float64 `json:"production_rate"`
	Availability   float64 `json:"availability"`
	Efficiency     float64 `json:"efficiency"`
	Quality        float64 `json:"quality"`
}

// Compute derives the indicators. Every ratio with a zero denominator is 0.
// Downtime is taken to be in hours.
func Compute(sums Sums, targetProduction int, window Window) Result {
	hours := window.Hours()
	result := Result{
		TotalTimeHours: hours,
		Production:     sums.Production,
		Downtime:       sums.Downtime,
	}
	if hours != 0 {
		result.ProductionRate = sums.Production / hours
		result.Availability = (hours - sums.Downtime) / hours
	}
	if capacity := float64(targetProduction) * hours; capacity != 0 {
		result.Efficiency = sums.Production / capacity
	}
	if sums.QualityDenominator != 0 {
		result.Quality = sums.QualityNumerator / sums.QualityDenominator
	}
	return result
}

// Classification controls how readings are assigned to categories.
type Classification struct {
	LegacyTagMatching bool    `yaml:"legacy_tag_matching"`
	QualityThreshold  float64 `yaml:"quality_threshold"`
}

// DefaultClassification enables legacy name matching at the default threshold.
func DefaultClassification() Classification {
	return Classification{LegacyTagMatching: true, QualityThreshold: DefaultQualityThreshold}
}

// Report is the production metrics of one line over a window.
type Report struct {
	LineID    int64     `json:"line_id"`
	LineName  string    `json:"line_name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Result
}

// LinePerformance summarizes production and downtime for one line.
type LinePerformance struct {
	LineID     int64   `json:"line_id"`
	LineName   string  `json:"line_name"`
	Production float64 `json:"production"`
	Downtime   float64 `json:"downtime"`
}
