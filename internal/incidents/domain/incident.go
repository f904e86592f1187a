package incidents

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/lifecycle"
)

var (
	// ErrNotFound indicates a missing incident.
	ErrNotFound = apperrors.NotFound("incidents")
	// ErrTransactionNotFound indicates a missing incident transaction.
	ErrTransactionNotFound = apperrors.NotFound("incident transactions")
)

// Incident tracks follow-up work raised from an alert.
type Incident struct {
	ID         int64  `json:"id"`
	AlertID    int64  `json:"alert"`
	Title      string `json:"title"`
	LocationID int64  `json:"location"`
	LineID     int64  `json:"line"`
	TagID      int64  `json:"tag"`
	Date       Date   `json:"date"`
	Open       bool   `json:"open"`
	lifecycle.Lifecycle
}

// UnmarshalJSON defaults Open to true for new incidents that omit it.
func (i *Incident) UnmarshalJSON(data []byte) error {
	type plain Incident
	aux := struct {
		*plain
		Open *bool `json:"open"`
	}{plain: (*plain)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Open != nil:
		i.Open = *aux.Open
	case i.ID == 0 && i.Modified.IsZero():
		i.Open = true
	}
	return nil
}

// Validate checks incident invariants.
func (i Incident) Validate() error {
	if i.AlertID <= 0 {
		return apperrors.Invalid("incident: alert is required")
	}
	if strings.TrimSpace(i.Title) == "" {
		return apperrors.Invalid("incident: empty title")
	}
	if len(i.Title) > 100 {
		return apperrors.Invalid("incident: title longer than 100 characters")
	}
	if i.LocationID <= 0 {
		return apperrors.Invalid("incident: location is required")
	}
	if i.LineID <= 0 {
		return apperrors.Invalid("incident: line is required")
	}
	if i.TagID <= 0 {
		return apperrors.Invalid("incident: tag is required")
	}
	if i.Date.IsZero() {
		return apperrors.Invalid("incident: date is required")
	}
	return nil
}

// Transaction is one entry in an incident's append-only log.
type Transaction struct {
	ID         int64     `json:"id"`
	IncidentID int64     `json:"incident"`
	Timestamp  time.Time `json:"timestamp"`
	IssuedBy   int64     `json:"issued_by"`
	Msg        *string   `json:"msg"`
	lifecycle.Lifecycle
}

// Validate checks transaction invariants.
func (t Transaction) Validate() error {
	if t.IncidentID <= 0 {
		return apperrors.Invalid("incident transaction: incident is required")
	}
	if t.IssuedBy <= 0 {
		return apperrors.Invalid("incident transaction: issued_by is required")
	}
	if t.Timestamp.IsZero() {
		return apperrors.Invalid("incident transaction: timestamp is required")
	}
	return nil
}

// IncidentWriter creates incidents.
type IncidentWriter interface {
	Create(ctx context.Context, incident *Incident) error
}

// TransactionWriter appends incident transactions.
type TransactionWriter interface {
	Create(ctx context.Context, txn *Transaction) error
}

// TransactionLister reads an incident's log.
type TransactionLister interface {
	ListByIncident(ctx context.Context, incidentID int64) ([]Transaction, error)
}
