package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"plant-monitor/internal/apperrors"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeEightHourShift(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	window := Window{Start: start, End: start.Add(8 * time.Hour)}
	sums := Sums{
		Production:         800,
		Downtime:           2,
		QualityNumerator:   1.94,
		QualityDenominator: 2.84,
	}

	got := Compute(sums, 125, window)

	if got.TotalTimeHours != 8 {
		t.Fatalf("expected 8 hours, got %v", got.TotalTimeHours)
	}
	if got.ProductionRate != 100 {
		t.Fatalf("expected rate 100, got %v", got.ProductionRate)
	}
	if got.Availability != 0.75 {
		t.Fatalf("expected availability 0.75, got %v", got.Availability)
	}
	if got.Efficiency != 0.8 {
		t.Fatalf("expected efficiency 0.8, got %v", got.Efficiency)
	}
	if !approx(got.Quality, 1.94/2.84) {
		t.Fatalf("unexpected quality %v", got.Quality)
	}
}

func TestComputeZeroDurationGuards(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got := Compute(Sums{Production: 10, Downtime: 1}, 100, Window{Start: at, End: at})
	if got.ProductionRate != 0 || got.Availability != 0 || got.Efficiency != 0 {
		t.Fatalf("expected zeroed ratios, got %+v", got)
	}
	if got.Production != 10 {
		t.Fatalf("raw sums should pass through, got %v", got.Production)
	}
}

func TestComputeZeroTargetAndNoQualityReadings(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got := Compute(Sums{Production: 50}, 0, Window{Start: start, End: start.Add(time.Hour)})
	if got.Efficiency != 0 {
		t.Fatalf("expected efficiency 0 with no target, got %v", got.Efficiency)
	}
	if got.Quality != 0 {
		t.Fatalf("expected quality 0 without readings, got %v", got.Quality)
	}
	if got.Availability != 1 {
		t.Fatalf("expected full availability, got %v", got.Availability)
	}
}

func TestWindowValidate(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []Window{
		{},
		{Start: start},
		{Start: start, End: start},
		{Start: start, End: start.Add(-time.Hour)},
	}
	for _, w := range cases {
		if err := w.Validate(); !errors.Is(err, apperrors.ErrValidation) {
			t.Fatalf("window %+v: expected validation error, got %v", w, err)
		}
	}
	if err := (Window{Start: start, End: start.Add(time.Minute)}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
