package alertshttp

import (
	"context"
	"errors"
	"log"
	"net/http"

	alerts "plant-monitor/internal/alerts/domain"
	apihttp "plant-monitor/internal/api/http"
)

// AlertQuery answers alert list queries.
type AlertQuery interface {
	Recent(ctx context.Context) ([]alerts.Alert, error)
	Range(ctx context.Context, filter alerts.RangeFilter) ([]alerts.Alert, error)
}

// Handler serves /alerts/. Collection GETs return recent alerts or a window;
// every other request goes to the CRUD resource.
type Handler struct {
	query    AlertQuery
	resource http.Handler
	logger   *log.Logger
}

// NewHandler constructs an alerts handler.
func NewHandler(query AlertQuery, resource http.Handler, logger *log.Logger) (*Handler, error) {
	if query == nil {
		return nil, errors.New("alerts handler: nil query")
	}
	if resource == nil {
		return nil, errors.New("alerts handler: nil resource")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{query: query, resource: resource, logger: logger}, nil
}

// ServeHTTP handles /alerts/ and /alerts/{id}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || len(apihttp.SplitPath(r.URL.Path, "/alerts/")) > 0 {
		h.resource.ServeHTTP(w, r)
		return
	}

	q := r.URL.Query()
	var (
		items []alerts.Alert
		err   error
	)
	if q.Get("StartDate") == "" && q.Get("EndDate") == "" {
		items, err = h.query.Recent(r.Context())
	} else {
		var filter alerts.RangeFilter
		filter, err = parseRangeFilter(r)
		if err == nil {
			items, err = h.query.Range(r.Context(), filter)
		}
	}
	if err != nil {
		apihttp.RespondError(w, h.logger, "alerts: list", err)
		return
	}
	if items == nil {
		items = []alerts.Alert{}
	}
	apihttp.WriteJSON(w, http.StatusOK, items)
}

func parseRangeFilter(r *http.Request) (alerts.RangeFilter, error) {
	start, end, err := apihttp.ParseRange(r, "StartDate", "EndDate")
	if err != nil {
		return alerts.RangeFilter{}, err
	}
	lineID, err := apihttp.ParseOptionalIDQuery(r, "Line")
	if err != nil {
		return alerts.RangeFilter{}, err
	}
	return alerts.RangeFilter{Start: start, End: end, LineID: lineID}, nil
}
