package analyticshttp

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"plant-monitor/internal/analytics/domain/metrics"
	apihttp "plant-monitor/internal/api/http"
	"plant-monitor/internal/apperrors"
)

// MetricsReader answers production metric queries.
type MetricsReader interface {
	ProductionMetrics(ctx context.Context, lineID int64, start, end time.Time) (metrics.Report, error)
	LinePerformance(ctx context.Context, start, end time.Time) ([]metrics.LinePerformance, error)
}

// ProductionMetricsHandler serves GET /production-metrics/.
type ProductionMetricsHandler struct {
	svc    MetricsReader
	logger *log.Logger
}

// NewProductionMetricsHandler constructs the handler.
func NewProductionMetricsHandler(svc MetricsReader, logger *log.Logger) (*ProductionMetricsHandler, error) {
	if svc == nil {
		return nil, errors.New("production metrics handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ProductionMetricsHandler{svc: svc, logger: logger}, nil
}

// ServeHTTP returns the line KPIs as JSON.
func (h *ProductionMetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	report, err := loadReport(r, h.svc)
	if err != nil {
		apihttp.RespondError(w, h.logger, "production metrics", err)
		return
	}
	apihttp.WriteJSON(w, http.StatusOK, report)
}

// MachinePerformanceHandler serves GET /machine-performance/.
type MachinePerformanceHandler struct {
	svc    MetricsReader
	logger *log.Logger
}

// NewMachinePerformanceHandler constructs the handler.
func NewMachinePerformanceHandler(svc MetricsReader, logger *log.Logger) (*MachinePerformanceHandler, error) {
	if svc == nil {
		return nil, errors.New("machine performance handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &MachinePerformanceHandler{svc: svc, logger: logger}, nil
}

// ServeHTTP returns production and downtime per active line.
func (h *MachinePerformanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start, end, err := parseWindow(r, "StartDate", "EndDate")
	if err != nil {
		apihttp.RespondError(w, h.logger, "machine performance", err)
		return
	}
	rows, err := h.svc.LinePerformance(r.Context(), start, end)
	if err != nil {
		apihttp.RespondError(w, h.logger, "machine performance", err)
		return
	}
	if rows == nil {
		rows = []metrics.LinePerformance{}
	}
	apihttp.WriteJSON(w, http.StatusOK, rows)
}

func loadReport(r *http.Request, svc MetricsReader) (metrics.Report, error) {
	lineID, err := apihttp.ParseIDQuery(r, "line_id")
	if err != nil {
		return metrics.Report{}, err
	}
	start, end, err := parseWindow(r, "start_date", "end_date")
	if err != nil {
		return metrics.Report{}, err
	}
	return svc.ProductionMetrics(r.Context(), lineID, start, end)
}

// parseWindow requires start strictly before end.
func parseWindow(r *http.Request, startKey, endKey string) (time.Time, time.Time, error) {
	start, end, err := apihttp.ParseRange(r, startKey, endKey)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, apperrors.Invalidf("%s must be before %s", startKey, endKey)
	}
	return start, end, nil
}
