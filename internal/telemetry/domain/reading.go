package telemetry

import (
	"context"
	"time"

	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/lifecycle"
)

// ErrNotFound indicates a missing reading.
var ErrNotFound = apperrors.NotFound("telemetry")

// Log is a line-scoped reading.
type Log struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	LineID    int64     `json:"line"`
	TagID     int64     `json:"tag"`
	Value     float64   `json:"value"`
	lifecycle.Lifecycle
}

// Validate checks log invariants.
func (l Log) Validate() error {
	if l.Timestamp.IsZero() {
		return apperrors.Invalid("log: timestamp is required")
	}
	if l.LineID <= 0 || l.TagID <= 0 {
		return apperrors.Invalid("log: line and tag are required")
	}
	return nil
}

// DaqLog is a machine-scoped reading; machine and line resolve through the tag.
type DaqLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	TagID     int64     `json:"tag"`
	Value     float64   `json:"value"`
	lifecycle.Lifecycle
}

// Validate checks daq log invariants.
func (d DaqLog) Validate() error {
	if d.Timestamp.IsZero() {
		return apperrors.Invalid("daq log: timestamp is required")
	}
	if d.TagID <= 0 {
		return apperrors.Invalid("daq log: tag is required")
	}
	return nil
}

// DaqLogRow is a daq log joined with its tag and machine for export.
type DaqLogRow struct {
	DaqLog
	TagName     string `json:"tag_name"`
	MachineID   int64  `json:"machine"`
	MachineName string `json:"machine_name"`
}

// LogFilter selects line-scoped readings in [Start, End].
type LogFilter struct {
	LineID int64
	TagID  int64
	Start  time.Time
	End    time.Time
}

// DaqLogFilter selects machine-scoped readings in [Start, End]. Zero MachineID or
// TagID means any.
type DaqLogFilter struct {
	LineID    int64
	MachineID int64
	TagID     int64
	Start     time.Time
	End       time.Time
}

// LogRepository persists line-scoped readings.
type LogRepository interface {
	InsertLogs(ctx context.Context, logs []Log) error
	Create(ctx context.Context, log *Log) error
	QueryLogs(ctx context.Context, filter LogFilter) ([]Log, error)
	Delete(ctx context.Context, id int64) error
}

// DaqLogRepository persists machine-scoped readings.
type DaqLogRepository interface {
	InsertDaqLogs(ctx context.Context, logs []DaqLog) error
	Create(ctx context.Context, log *DaqLog) error
	QueryDaqLogs(ctx context.Context, filter DaqLogFilter) ([]DaqLogRow, error)
	Delete(ctx context.Context, id int64) error
}
