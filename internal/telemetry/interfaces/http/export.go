package telemetryhttp

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	apihttp "plant-monitor/internal/api/http"
	"plant-monitor/internal/observability/metrics"
	telemetry "plant-monitor/internal/telemetry/domain"
)

// DaqLogExportHandler serves GET /daqlogs/export.xlsx.
type DaqLogExportHandler struct {
	repo   telemetry.DaqLogRepository
	logger *log.Logger
}

// NewDaqLogExportHandler constructs an export handler.
func NewDaqLogExportHandler(repo telemetry.DaqLogRepository, logger *log.Logger) (*DaqLogExportHandler, error) {
	if repo == nil {
		return nil, errors.New("daqlog export: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &DaqLogExportHandler{repo: repo, logger: logger}, nil
}

// ServeHTTP writes matching readings as a spreadsheet.
func (h *DaqLogExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	started := time.Now()
	filter, err := parseDaqLogFilter(r, false)
	if err != nil {
		apihttp.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.repo.QueryDaqLogs(r.Context(), filter)
	if err != nil {
		metrics.ObserveReportExport("xlsx", metrics.ResultError, time.Since(started))
		apihttp.RespondError(w, h.logger, "daqlog export: query", err)
		return
	}
	data, err := BuildDaqLogXLSX(filter, rows)
	if err != nil {
		metrics.ObserveReportExport("xlsx", metrics.ResultError, time.Since(started))
		apihttp.RespondError(w, h.logger, "daqlog export: render", err)
		return
	}
	metrics.ObserveReportExport("xlsx", metrics.ResultSuccess, time.Since(started))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="daqlogs-line-%d.xlsx"`, filter.LineID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// BuildDaqLogXLSX renders readings with a summary sheet.
func BuildDaqLogXLSX(filter telemetry.DaqLogFilter, rows []telemetry.DaqLogRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	readingsSheet := "readings"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(readingsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "DAQ Log Export")
	_ = f.SetCellValue(summarySheet, "A3", "Line")
	_ = f.SetCellValue(summarySheet, "B3", filter.LineID)
	_ = f.SetCellValue(summarySheet, "A4", "Machine")
	_ = f.SetCellValue(summarySheet, "B4", idOrAll(filter.MachineID))
	_ = f.SetCellValue(summarySheet, "A5", "Tag")
	_ = f.SetCellValue(summarySheet, "B5", idOrAll(filter.TagID))
	_ = f.SetCellValue(summarySheet, "A6", "From")
	_ = f.SetCellValue(summarySheet, "B6", filter.Start.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A7", "To")
	_ = f.SetCellValue(summarySheet, "B7", filter.End.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A8", "Readings")
	_ = f.SetCellValue(summarySheet, "B8", len(rows))

	headers := []string{"Timestamp", "Machine", "Tag", "Value"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(readingsSheet, cell, header)
	}
	for i, row := range rows {
		line := i + 2
		_ = f.SetCellValue(readingsSheet, fmt.Sprintf("A%d", line), row.Timestamp.Format(time.RFC3339))
		_ = f.SetCellValue(readingsSheet, fmt.Sprintf("B%d", line), row.MachineName)
		_ = f.SetCellValue(readingsSheet, fmt.Sprintf("C%d", line), row.TagName)
		_ = f.SetCellValue(readingsSheet, fmt.Sprintf("D%d", line), row.Value)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func idOrAll(id int64) any {
	if id <= 0 {
		return "all"
	}
	return id
}
