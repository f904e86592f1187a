package apihttp

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"plant-monitor/internal/audit"
)

// AuditHandler serves GET /audit-logs/.
type AuditHandler struct {
	reader audit.Reader
	logger *log.Logger
}

// NewAuditHandler constructs an audit trail handler.
func NewAuditHandler(reader audit.Reader, logger *log.Logger) (*AuditHandler, error) {
	if reader == nil {
		return nil, errors.New("audit handler: nil reader")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AuditHandler{reader: reader, logger: logger}, nil
}

// ServeHTTP lists audit entries filtered by ResourceType, ResourceId,
// StartDate, EndDate and Limit.
func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query()
	filter := audit.Filter{
		ResourceType: strings.TrimSpace(query.Get("ResourceType")),
		ResourceID:   strings.TrimSpace(query.Get("ResourceId")),
	}
	if query.Get("StartDate") != "" || query.Get("EndDate") != "" {
		start, end, err := ParseRange(r, "StartDate", "EndDate")
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Start, filter.End = start, end
	}
	if value := strings.TrimSpace(query.Get("Limit")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit <= 0 || limit > 1000 {
			WriteError(w, http.StatusBadRequest, "Limit must be between 1 and 1000")
			return
		}
		filter.Limit = limit
	}

	entries, err := h.reader.List(r.Context(), filter)
	if err != nil {
		RespondError(w, h.logger, "audit: list", err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	WriteJSON(w, http.StatusOK, entries)
}
