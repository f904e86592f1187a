package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plant-monitor/internal/analytics/domain/metrics"
	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/lifecycle"
	masterdata "plant-monitor/internal/masterdata/domain"
	obsmetrics "plant-monitor/internal/observability/metrics"
)

// ErrLineNotFound is returned when the requested line is unknown or inactive.
var ErrLineNotFound = apperrors.NotFound("analytics: line")

// SumsQuery aggregates categorized readings for a line.
type SumsQuery interface {
	LineSums(ctx context.Context, lineID int64, window metrics.Window, class metrics.Classification) (metrics.Sums, error)
}

// LineSource loads lines.
type LineSource interface {
	Get(ctx context.Context, id int64) (*masterdata.Line, error)
	List(ctx context.Context, filter lifecycle.ListFilter) ([]masterdata.Line, error)
}

// MetricsService answers production metric queries.
type MetricsService struct {
	lines LineSource
	sums  SumsQuery
	class metrics.Classification
}

// MetricsOption configures the service.
type MetricsOption func(*MetricsService)

// WithClassification overrides category selection.
func WithClassification(class metrics.Classification) MetricsOption {
	return func(s *MetricsService) {
		if class.QualityThreshold <= 0 {
			class.QualityThreshold = metrics.DefaultQualityThreshold
		}
		s.class = class
	}
}

// NewMetricsService constructs a metrics service.
func NewMetricsService(lines LineSource, sums SumsQuery, opts ...MetricsOption) (*MetricsService, error) {
	if lines == nil {
		return nil, errors.New("metrics service: nil line source")
	}
	if sums == nil {
		return nil, errors.New("metrics service: nil sums query")
	}
	svc := &MetricsService{lines: lines, sums: sums, class: metrics.DefaultClassification()}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Classification returns the active classification settings.
func (s *MetricsService) Classification() metrics.Classification {
	return s.class
}

// ProductionMetrics computes the KPIs for one line over [start, end].
func (s *MetricsService) ProductionMetrics(ctx context.Context, lineID int64, start, end time.Time) (report metrics.Report, err error) {
	began := time.Now()
	defer func() {
		result := obsmetrics.ResultSuccess
		if err != nil {
			result = obsmetrics.ResultError
		}
		obsmetrics.ObserveProductionMetrics(result, time.Since(began))
	}()

	window := metrics.Window{Start: start, End: end}
	if err := window.Validate(); err != nil {
		return metrics.Report{}, err
	}
	line, err := s.line(ctx, lineID)
	if err != nil {
		return metrics.Report{}, err
	}
	sums, err := s.sums.LineSums(ctx, line.ID, window, s.class)
	if err != nil {
		return metrics.Report{}, fmt.Errorf("metrics: line %d sums: %w", line.ID, err)
	}
	return metrics.Report{
		LineID:    line.ID,
		LineName:  line.Name,
		StartDate: start,
		EndDate:   end,
		Result:    metrics.Compute(sums, line.TargetProduction, window),
	}, nil
}

// LinePerformance returns production and downtime for every active line.
func (s *MetricsService) LinePerformance(ctx context.Context, start, end time.Time) ([]metrics.LinePerformance, error) {
	window := metrics.Window{Start: start, End: end}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	lines, err := s.lines.List(ctx, lifecycle.ListFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]metrics.LinePerformance, 0, len(lines))
	for _, line := range lines {
		if line.Inactive {
			continue
		}
		sums, err := s.sums.LineSums(ctx, line.ID, window, s.class)
		if err != nil {
			return nil, fmt.Errorf("metrics: line %d sums: %w", line.ID, err)
		}
		out = append(out, metrics.LinePerformance{
			LineID:     line.ID,
			LineName:   line.Name,
			Production: sums.Production,
			Downtime:   sums.Downtime,
		})
	}
	return out, nil
}

func (s *MetricsService) line(ctx context.Context, lineID int64) (*masterdata.Line, error) {
	if lineID <= 0 {
		return nil, apperrors.Invalidf("metrics: invalid line_id %d", lineID)
	}
	line, err := s.lines.Get(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line == nil || line.Inactive {
		return nil, fmt.Errorf("line %d: %w", lineID, ErrLineNotFound)
	}
	return line, nil
}
