package application

import (
	"context"
	"errors"

	alerts "plant-monitor/internal/alerts/domain"
	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/lifecycle"
	"plant-monitor/internal/observability/metrics"
)

// Event types published on alert changes.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// DefaultRecentLimit is the number of alerts returned without a range.
const DefaultRecentLimit = 25

// AlertEvent represents a change to an alert.
type AlertEvent struct {
	Type  string       `json:"type"`
	Alert alerts.Alert `json:"alert"`
}

// AlertNotifier publishes alert events.
type AlertNotifier interface {
	Notify(ctx context.Context, event AlertEvent)
}

// Service wraps the alert repository and fans out change events.
type Service struct {
	repo        alerts.Repository
	notifier    AlertNotifier
	recentLimit int
}

// ServiceOption customizes the alert service.
type ServiceOption func(*Service)

// WithNotifier assigns a notifier.
func WithNotifier(notifier AlertNotifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithRecentLimit overrides how many alerts Recent returns.
func WithRecentLimit(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.recentLimit = limit
		}
	}
}

// NewService constructs an alert service.
func NewService(repo alerts.Repository, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("alerts: nil repository")
	}
	svc := &Service{repo: repo, recentLimit: DefaultRecentLimit}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// List returns alerts ordered by id.
func (s *Service) List(ctx context.Context, filter lifecycle.ListFilter) ([]alerts.Alert, error) {
	return s.repo.List(ctx, filter)
}

// Get loads one alert; nil when missing.
func (s *Service) Get(ctx context.Context, id int64) (*alerts.Alert, error) {
	return s.repo.Get(ctx, id)
}

// Recent returns the newest alerts.
func (s *Service) Recent(ctx context.Context) ([]alerts.Alert, error) {
	return s.repo.Recent(ctx, s.recentLimit)
}

// Range returns alerts within the filter window.
func (s *Service) Range(ctx context.Context, filter alerts.RangeFilter) ([]alerts.Alert, error) {
	if filter.End.Before(filter.Start) {
		return nil, apperrors.Invalid("alerts: range end before start")
	}
	return s.repo.Range(ctx, filter)
}

// Create records a new alert.
func (s *Service) Create(ctx context.Context, alert *alerts.Alert) error {
	if err := s.repo.Create(ctx, alert); err != nil {
		return err
	}
	s.publish(ctx, EventCreated, *alert)
	return nil
}

// Update replaces an alert.
func (s *Service) Update(ctx context.Context, id int64, alert *alerts.Alert) error {
	if err := s.repo.Update(ctx, id, alert); err != nil {
		return err
	}
	s.publish(ctx, EventUpdated, *alert)
	return nil
}

// Delete soft-deletes an alert.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return alerts.ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	existing.Inactive = true
	s.publish(ctx, EventDeleted, *existing)
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, alert alerts.Alert) {
	metrics.IncAlertEvent(eventType)
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, AlertEvent{Type: eventType, Alert: alert})
}
