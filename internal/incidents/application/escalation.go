package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	alerts "plant-monitor/internal/alerts/domain"
	"plant-monitor/internal/apperrors"
	incidents "plant-monitor/internal/incidents/domain"
)

// AlertReader loads alerts.
type AlertReader interface {
	Get(ctx context.Context, id int64) (*alerts.Alert, error)
}

// BlockResolver maps a line to its block.
type BlockResolver interface {
	BlockOfLine(ctx context.Context, lineID int64) (int64, error)
}

// TxStore runs incident writes atomically.
type TxStore interface {
	WithinTx(ctx context.Context, fn func(incidents.IncidentWriter, incidents.TransactionWriter) error) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// EscalateRequest asks for an incident to be opened from an alert.
type EscalateRequest struct {
	AlertID  int64   `json:"alert_id"`
	Title    string  `json:"title"`
	IssuedBy int64   `json:"issued_by"`
	Msg      *string `json:"msg"`
}

// Escalation is the opened incident with its first log entry.
type Escalation struct {
	Incident    incidents.Incident    `json:"incident"`
	Transaction incidents.Transaction `json:"transaction"`
}

// EscalationService opens incidents from alerts.
type EscalationService struct {
	alerts AlertReader
	blocks BlockResolver
	store  TxStore
	clock  Clock
}

// EscalationOption configures the service.
type EscalationOption func(*EscalationService)

// WithClock overrides the transaction timestamp source.
func WithClock(clock Clock) EscalationOption {
	return func(s *EscalationService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewEscalationService constructs the service.
func NewEscalationService(alertReader AlertReader, blocks BlockResolver, store TxStore, opts ...EscalationOption) (*EscalationService, error) {
	if alertReader == nil {
		return nil, errors.New("escalation: nil alert reader")
	}
	if blocks == nil {
		return nil, errors.New("escalation: nil block resolver")
	}
	if store == nil {
		return nil, errors.New("escalation: nil tx store")
	}
	svc := &EscalationService{alerts: alertReader, blocks: blocks, store: store, clock: systemClock{}}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Escalate opens an incident for the alert's line, tag and block, dated on the
// alert's day, and records the first transaction in the same database transaction.
func (s *EscalationService) Escalate(ctx context.Context, req EscalateRequest) (*Escalation, error) {
	if req.AlertID <= 0 {
		return nil, apperrors.Invalid("escalate: alert_id is required")
	}
	if req.IssuedBy <= 0 {
		return nil, apperrors.Invalid("escalate: issued_by is required")
	}

	alert, err := s.alerts.Get(ctx, req.AlertID)
	if err != nil {
		return nil, err
	}
	if alert == nil || alert.Inactive {
		return nil, fmt.Errorf("alert %d: %w", req.AlertID, alerts.ErrNotFound)
	}
	blockID, err := s.blocks.BlockOfLine(ctx, alert.LineID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = alert.Name
	}
	result := &Escalation{
		Incident: incidents.Incident{
			AlertID:    alert.ID,
			Title:      title,
			LocationID: blockID,
			LineID:     alert.LineID,
			TagID:      alert.TagID,
			Date:       incidents.DateOf(alert.Timestamp),
			Open:       true,
		},
		Transaction: incidents.Transaction{
			Timestamp: s.clock.Now(),
			IssuedBy:  req.IssuedBy,
			Msg:       req.Msg,
		},
	}

	err = s.store.WithinTx(ctx, func(incidentRepo incidents.IncidentWriter, txnRepo incidents.TransactionWriter) error {
		if err := incidentRepo.Create(ctx, &result.Incident); err != nil {
			return err
		}
		result.Transaction.IncidentID = result.Incident.ID
		return txnRepo.Create(ctx, &result.Transaction)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
