package metrics

import (
	"database/sql"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "plant_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestRows     *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	productionMetricsTotal   *prometheus.CounterVec
	productionMetricsLatency *prometheus.HistogramVec

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec

	alertEventsTotal *prometheus.CounterVec

	httpRequestsTotal *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total control panel captures by scope and result",
			},
			[]string{"scope", "result"},
		)
		ingestRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_rows_total",
				Help: "Total readings written by scope",
			},
			[]string{"scope"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Control panel capture latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scope", "result"},
		)

		productionMetricsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "production_metrics_total",
				Help: "Total production metric aggregations by result",
			},
			[]string{"result"},
		)
		productionMetricsLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "production_metrics_latency_seconds",
				Help:    "Production metric aggregation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		alertEventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_events_total",
				Help: "Total alert lifecycle events by type",
			},
			[]string{"event"},
		)

		httpRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestRows,
			ingestLatency,
			productionMetricsTotal,
			productionMetricsLatency,
			reportExportTotal,
			reportExportLatency,
			alertEventsTotal,
			httpRequestsTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records a capture's duration, result and row count.
func ObserveIngest(scope, result string, rows int, duration time.Duration) {
	if scope == "" {
		scope = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(scope, result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(scope, result).Observe(duration.Seconds())
	}
	if ingestRows != nil && rows > 0 {
		ingestRows.WithLabelValues(scope).Add(float64(rows))
	}
}

// ObserveProductionMetrics records aggregation latency and result.
func ObserveProductionMetrics(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if productionMetricsTotal != nil {
		productionMetricsTotal.WithLabelValues(result).Inc()
	}
	if productionMetricsLatency != nil {
		productionMetricsLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveReportExport records export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncAlertEvent increments alert lifecycle counters.
func IncAlertEvent(event string) {
	if event == "" {
		event = "unknown"
	}
	if alertEventsTotal != nil {
		alertEventsTotal.WithLabelValues(event).Inc()
	}
}

// IncHTTPRequest counts a served request.
func IncHTTPRequest(route, method string, status int) {
	if route == "" {
		route = "other"
	}
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
