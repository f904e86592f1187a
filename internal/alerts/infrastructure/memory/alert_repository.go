package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	alerts "plant-monitor/internal/alerts/domain"
	"plant-monitor/internal/lifecycle"
)

// AlertRepository is an in-memory alert repository for demo/testing.
type AlertRepository struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]alerts.Alert
	now    func() time.Time
}

// NewAlertRepository constructs a repository.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{
		data: make(map[int64]alerts.Alert),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// List returns alerts ordered by id.
func (r *AlertRepository) List(ctx context.Context, filter lifecycle.ListFilter) ([]alerts.Alert, error) {
	_ = ctx
	return r.collect(func(a alerts.Alert) bool { return filter.IncludeInactive || a.Active() }, byID), nil
}

// Recent returns up to limit active alerts, newest first.
func (r *AlertRepository) Recent(ctx context.Context, limit int) ([]alerts.Alert, error) {
	_ = ctx
	out := r.collect(alerts.Alert.Active, func(a, b alerts.Alert) bool {
		if a.Timestamp.Equal(b.Timestamp) {
			return a.ID > b.ID
		}
		return a.Timestamp.After(b.Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Range returns active alerts in the inclusive window, oldest first.
func (r *AlertRepository) Range(ctx context.Context, filter alerts.RangeFilter) ([]alerts.Alert, error) {
	_ = ctx
	return r.collect(func(a alerts.Alert) bool {
		if !a.Active() || a.Timestamp.Before(filter.Start) || a.Timestamp.After(filter.End) {
			return false
		}
		return filter.LineID == 0 || a.LineID == filter.LineID
	}, func(a, b alerts.Alert) bool {
		if a.Timestamp.Equal(b.Timestamp) {
			return a.ID < b.ID
		}
		return a.Timestamp.Before(b.Timestamp)
	}), nil
}

// Get loads an alert; nil when missing.
func (r *AlertRepository) Get(ctx context.Context, id int64) (*alerts.Alert, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	alert, ok := r.data[id]
	if !ok {
		return nil, nil
	}
	return &alert, nil
}

// Create stores a new alert.
func (r *AlertRepository) Create(ctx context.Context, alert *alerts.Alert) error {
	_ = ctx
	alert.Normalize()
	if err := alert.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	alert.ID = r.nextID
	alert.Modified = r.now()
	r.data[alert.ID] = *alert
	return nil
}

// Update replaces an alert.
func (r *AlertRepository) Update(ctx context.Context, id int64, alert *alerts.Alert) error {
	_ = ctx
	alert.Normalize()
	if err := alert.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return alerts.ErrNotFound
	}
	alert.ID = id
	alert.Modified = r.now()
	r.data[id] = *alert
	return nil
}

// Delete soft-deletes an alert.
func (r *AlertRepository) Delete(ctx context.Context, id int64) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.data[id]
	if !ok {
		return alerts.ErrNotFound
	}
	alert.Inactive = true
	alert.Modified = r.now()
	r.data[id] = alert
	return nil
}

func (r *AlertRepository) collect(keep func(alerts.Alert) bool, less func(a, b alerts.Alert) bool) []alerts.Alert {
	r.mu.RLock()
	out := make([]alerts.Alert, 0, len(r.data))
	for _, alert := range r.data {
		if keep(alert) {
			out = append(out, alert)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byID(a, b alerts.Alert) bool {
	return a.ID < b.ID
}
