package analyticshttp

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jung-kurt/gofpdf"

	"plant-monitor/internal/analytics/domain/metrics"
	apihttp "plant-monitor/internal/api/http"
	obsmetrics "plant-monitor/internal/observability/metrics"
)

// ReportPDFHandler serves GET /production-metrics/report.pdf.
type ReportPDFHandler struct {
	svc    MetricsReader
	logger *log.Logger
}

// NewReportPDFHandler constructs the handler.
func NewReportPDFHandler(svc MetricsReader, logger *log.Logger) (*ReportPDFHandler, error) {
	if svc == nil {
		return nil, errors.New("metrics report handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReportPDFHandler{svc: svc, logger: logger}, nil
}

// ServeHTTP renders the line KPIs as a PDF.
func (h *ReportPDFHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	started := time.Now()
	report, err := loadReport(r, h.svc)
	if err != nil {
		obsmetrics.ObserveReportExport("pdf", obsmetrics.ResultError, time.Since(started))
		apihttp.RespondError(w, h.logger, "metrics report", err)
		return
	}
	data, err := BuildMetricsPDF(report, time.Now())
	if err != nil {
		obsmetrics.ObserveReportExport("pdf", obsmetrics.ResultError, time.Since(started))
		apihttp.RespondError(w, h.logger, "metrics report: render", err)
		return
	}
	obsmetrics.ObserveReportExport("pdf", obsmetrics.ResultSuccess, time.Since(started))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="production-metrics-line-%d.pdf"`, report.LineID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// BuildMetricsPDF renders a one-page production report.
func BuildMetricsPDF(report metrics.Report, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Production Metrics")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Line: %s (#%d)", report.LineName, report.LineID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("From: %s", report.StartDate.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("To: %s", report.EndDate.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generated.Format(time.RFC3339)))
	pdf.Ln(8)

	rows := []struct {
		label string
		value string
	}{
		{"Total time (h)", fmt.Sprintf("%.2f", report.TotalTimeHours)},
		{"Production", fmt.Sprintf("%.2f", report.Production)},
		{"Downtime (h)", fmt.Sprintf("%.2f", report.Downtime)},
		{"Production rate (/h)", fmt.Sprintf("%.3f", report.ProductionRate)},
		{"Availability", percent(report.Availability)},
		{"Efficiency", percent(report.Efficiency)},
		{"Quality", percent(report.Quality)},
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Indicator", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.CellFormat(70, 6, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, row.value, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
