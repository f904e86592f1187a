package alerts

import (
	"context"
	"strings"
	"time"

	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/lifecycle"
)

// ErrNotFound indicates a missing alert.
var ErrNotFound = apperrors.NotFound("alerts")

// DefaultType is the severity assigned when none is given.
const DefaultType = "info"

// Alert is a recorded alert against a line and tag. Alerts are never raised
// automatically; operators or external systems create them.
type Alert struct {
	ID             int64      `json:"id"`
	LineID         int64      `json:"line"`
	TagID          int64      `json:"tag"`
	Timestamp      time.Time  `json:"timestamp"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	ReportTitle    string     `json:"report_title"`
	ReportType     string     `json:"report_type"`
	ReportCategory string     `json:"report_category"`
	ReportSubCat   string     `json:"report_sub_cat"`
	Location       string     `json:"location"`
	IncidentDtls   string     `json:"incident_dtls"`
	Issued         string     `json:"issued"`
	Role           string     `json:"role"`
	ResolvedAt     *time.Time `json:"resolved_at"`
	lifecycle.Lifecycle
}

// Normalize fills defaults.
func (a *Alert) Normalize() {
	a.Name = strings.TrimSpace(a.Name)
	a.Type = strings.TrimSpace(a.Type)
	if a.Type == "" {
		a.Type = DefaultType
	}
}

// Validate checks alert invariants.
func (a Alert) Validate() error {
	if a.LineID <= 0 {
		return apperrors.Invalid("alert: line is required")
	}
	if a.TagID <= 0 {
		return apperrors.Invalid("alert: tag is required")
	}
	if a.Timestamp.IsZero() {
		return apperrors.Invalid("alert: timestamp is required")
	}
	if a.Name == "" {
		return apperrors.Invalid("alert: empty name")
	}
	if len(a.Name) > 100 {
		return apperrors.Invalid("alert: name longer than 100 characters")
	}
	if a.ResolvedAt != nil && a.ResolvedAt.Before(a.Timestamp) {
		return apperrors.Invalid("alert: resolved_at before timestamp")
	}
	return nil
}

// Resolved reports whether the alert carries a resolution date.
func (a Alert) Resolved() bool {
	return a.ResolvedAt != nil
}

// RangeFilter selects alerts in an inclusive window, optionally for one line.
type RangeFilter struct {
	Start  time.Time
	End    time.Time
	LineID int64
}

// Repository persists alerts.
type Repository interface {
	List(ctx context.Context, filter lifecycle.ListFilter) ([]Alert, error)
	Get(ctx context.Context, id int64) (*Alert, error)
	Create(ctx context.Context, alert *Alert) error
	Update(ctx context.Context, id int64, alert *Alert) error
	Delete(ctx context.Context, id int64) error
	Recent(ctx context.Context, limit int) ([]Alert, error)
	Range(ctx context.Context, filter RangeFilter) ([]Alert, error)
}
