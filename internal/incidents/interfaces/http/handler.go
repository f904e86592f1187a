package incidentshttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	apihttp "plant-monitor/internal/api/http"
	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/incidents/application"
	incidents "plant-monitor/internal/incidents/domain"
)

const maxBodyBytes = 1 << 20

// Escalator opens incidents from alerts.
type Escalator interface {
	Escalate(ctx context.Context, req application.EscalateRequest) (*application.Escalation, error)
}

// EscalateHandler serves POST /incidents/escalate.
type EscalateHandler struct {
	svc    Escalator
	logger *log.Logger
}

// NewEscalateHandler constructs the handler.
func NewEscalateHandler(svc Escalator, logger *log.Logger) (*EscalateHandler, error) {
	if svc == nil {
		return nil, errors.New("escalate handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &EscalateHandler{svc: svc, logger: logger}, nil
}

// ServeHTTP opens an incident and returns it with its first transaction.
func (h *EscalateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req application.EscalateRequest
	if err := decodeJSON(r, &req); err != nil {
		apihttp.RespondError(w, h.logger, "incidents: escalate", err)
		return
	}
	result, err := h.svc.Escalate(r.Context(), req)
	if err != nil {
		apihttp.RespondError(w, h.logger, "incidents: escalate", err)
		return
	}
	apihttp.WriteJSON(w, http.StatusCreated, result)
}

// IncidentGetter loads incidents.
type IncidentGetter interface {
	Get(ctx context.Context, id int64) (*incidents.Incident, error)
}

// TransactionLog reads and appends incident transactions.
type TransactionLog interface {
	incidents.TransactionLister
	incidents.TransactionWriter
}

// TransactionsSubresource serves /incidents/{id}/transactions: GET lists the
// log oldest first, POST appends an entry.
func TransactionsSubresource(incidentRepo IncidentGetter, txns TransactionLog, clock application.Clock, logger *log.Logger) apihttp.SubresourceFunc {
	if logger == nil {
		logger = log.Default()
	}
	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	return func(w http.ResponseWriter, r *http.Request, id int64) {
		incident, err := incidentRepo.Get(r.Context(), id)
		if err != nil {
			apihttp.RespondError(w, logger, "incidents: transactions", err)
			return
		}
		if incident == nil || incident.Inactive {
			apihttp.WriteError(w, http.StatusNotFound, "incident not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			items, err := txns.ListByIncident(r.Context(), id)
			if err != nil {
				apihttp.RespondError(w, logger, "incidents: transactions", err)
				return
			}
			if items == nil {
				items = []incidents.Transaction{}
			}
			apihttp.WriteJSON(w, http.StatusOK, items)
		case http.MethodPost:
			var txn incidents.Transaction
			if err := decodeJSON(r, &txn); err != nil {
				apihttp.RespondError(w, logger, "incidents: append transaction", err)
				return
			}
			txn.ID = 0
			txn.IncidentID = id
			if txn.Timestamp.IsZero() {
				txn.Timestamp = now()
			}
			if err := txns.Create(r.Context(), &txn); err != nil {
				apihttp.RespondError(w, logger, "incidents: append transaction", err)
				return
			}
			apihttp.WriteJSON(w, http.StatusCreated, txn)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func decodeJSON(r *http.Request, dest any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.Invalid("read body error")
	}
	defer r.Body.Close()
	if err := json.Unmarshal(body, dest); err != nil {
		return apperrors.Invalidf("invalid json: %v", err)
	}
	return nil
}
