package telemetryhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	apihttp "plant-monitor/internal/api/http"
	"plant-monitor/internal/apperrors"
	telemetry "plant-monitor/internal/telemetry/domain"
)

// LogsHandler serves /logs/.
type LogsHandler struct {
	repo   telemetry.LogRepository
	logger *log.Logger
}

// NewLogsHandler constructs a logs handler.
func NewLogsHandler(repo telemetry.LogRepository, logger *log.Logger) (*LogsHandler, error) {
	if repo == nil {
		return nil, errors.New("logs handler: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LogsHandler{repo: repo, logger: logger}, nil
}

// ServeHTTP handles GET/POST /logs/ and DELETE /logs/{id}.
func (h *LogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := apihttp.SplitPath(r.URL.Path, "/logs/")
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		h.query(w, r)
	case len(parts) == 0 && r.Method == http.MethodPost:
		var entry telemetry.Log
		if err := decodeJSON(r, &entry); err != nil {
			apihttp.RespondError(w, h.logger, "logs: create", err)
			return
		}
		if err := h.repo.Create(r.Context(), &entry); err != nil {
			apihttp.RespondError(w, h.logger, "logs: create", err)
			return
		}
		apihttp.WriteJSON(w, http.StatusCreated, entry)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		deleteReading(w, r, parts[0], h.repo.Delete, h.logger, "logs")
	case len(parts) <= 1:
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		apihttp.WriteError(w, http.StatusNotFound, "not found")
	}
}

func (h *LogsHandler) query(w http.ResponseWriter, r *http.Request) {
	lineID, err := apihttp.ParseIDQuery(r, "LineId")
	if err != nil {
		apihttp.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	tagID, err := apihttp.ParseIDQuery(r, "TagId")
	if err != nil {
		apihttp.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := apihttp.ParseStrictRange(r, "StartDate", "EndDate")
	if err != nil {
		apihttp.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	logs, err := h.repo.QueryLogs(r.Context(), telemetry.LogFilter{LineID: lineID, TagID: tagID, Start: start, End: end})
	if err != nil {
		apihttp.RespondError(w, h.logger, "logs: query", err)
		return
	}
	if logs == nil {
		logs = []telemetry.Log{}
	}
	apihttp.WriteJSON(w, http.StatusOK, logs)
}

// DaqLogsHandler serves /daqlogs/.
type DaqLogsHandler struct {
	repo   telemetry.DaqLogRepository
	logger *log.Logger
}

// NewDaqLogsHandler constructs a daq logs handler.
func NewDaqLogsHandler(repo telemetry.DaqLogRepository, logger *log.Logger) (*DaqLogsHandler, error) {
	if repo == nil {
		return nil, errors.New("daq logs handler: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &DaqLogsHandler{repo: repo, logger: logger}, nil
}

// ServeHTTP handles GET/POST /daqlogs/ and DELETE /daqlogs/{id}.
func (h *DaqLogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := apihttp.SplitPath(r.URL.Path, "/daqlogs/")
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		filter, err := parseDaqLogFilter(r, true)
		if err != nil {
			apihttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		rows, err := h.repo.QueryDaqLogs(r.Context(), filter)
		if err != nil {
			apihttp.RespondError(w, h.logger, "daqlogs: query", err)
			return
		}
		if rows == nil {
			rows = []telemetry.DaqLogRow{}
		}
		apihttp.WriteJSON(w, http.StatusOK, rows)
	case len(parts) == 0 && r.Method == http.MethodPost:
		var entry telemetry.DaqLog
		if err := decodeJSON(r, &entry); err != nil {
			apihttp.RespondError(w, h.logger, "daqlogs: create", err)
			return
		}
		if err := h.repo.Create(r.Context(), &entry); err != nil {
			apihttp.RespondError(w, h.logger, "daqlogs: create", err)
			return
		}
		apihttp.WriteJSON(w, http.StatusCreated, entry)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		deleteReading(w, r, parts[0], h.repo.Delete, h.logger, "daqlogs")
	case len(parts) <= 1:
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		apihttp.WriteError(w, http.StatusNotFound, "not found")
	}
}

// parseDaqLogFilter reads LineId and the date window; MachineId and TagId are
// required only when strict is set.
func parseDaqLogFilter(r *http.Request, strict bool) (telemetry.DaqLogFilter, error) {
	var filter telemetry.DaqLogFilter
	var err error
	if filter.LineID, err = apihttp.ParseIDQuery(r, "LineId"); err != nil {
		return filter, err
	}
	parseOptional := apihttp.ParseOptionalIDQuery
	if strict {
		parseOptional = apihttp.ParseIDQuery
	}
	if filter.MachineID, err = parseOptional(r, "MachineId"); err != nil {
		return filter, err
	}
	if filter.TagID, err = parseOptional(r, "TagId"); err != nil {
		return filter, err
	}
	filter.Start, filter.End, err = apihttp.ParseStrictRange(r, "StartDate", "EndDate")
	return filter, err
}

func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return apperrors.Invalid("read body error")
	}
	defer r.Body.Close()
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.Invalidf("invalid json: %v", err)
	}
	return nil
}

func deleteReading(w http.ResponseWriter, r *http.Request, rawID string, del func(ctx context.Context, id int64) error, logger *log.Logger, name string) {
	id, err := apihttp.ParseID(rawID)
	if err != nil {
		apihttp.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := del(r.Context(), id); err != nil {
		apihttp.RespondError(w, logger, name+": delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
