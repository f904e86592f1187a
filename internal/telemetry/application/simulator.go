package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/lifecycle"
	masterdata "plant-monitor/internal/masterdata/domain"
	"plant-monitor/internal/observability/metrics"
	telemetry "plant-monitor/internal/telemetry/domain"
)

// Scope selects which reading table a capture writes.
type Scope string

const (
	// ScopeMachine writes one DaqLog per active tag.
	ScopeMachine Scope = "machine"
	// ScopeLine writes one Log per active line and active tag pair.
	ScopeLine Scope = "line"
)

// ParseScope parses a scope name; empty means ScopeMachine.
func ParseScope(value string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(value))) {
	case "", ScopeMachine:
		return ScopeMachine, nil
	case ScopeLine:
		return ScopeLine, nil
	default:
		return "", apperrors.Invalidf("unknown capture scope %q", value)
	}
}

// ValueSource yields uniform values in [0, 1).
type ValueSource interface {
	Float64() float64
}

type randSource struct{}

func (randSource) Float64() float64 { return rand.Float64() }

// Clock provides the capture time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// LineLister lists production lines.
type LineLister interface {
	List(ctx context.Context, filter lifecycle.ListFilter) ([]masterdata.Line, error)
}

// LogWriter appends line-scoped readings.
type LogWriter interface {
	InsertLogs(ctx context.Context, logs []telemetry.Log) error
}

// DaqLogWriter appends machine-scoped readings.
type DaqLogWriter interface {
	InsertDaqLogs(ctx context.Context, logs []telemetry.DaqLog) error
}

// CaptureResult summarizes a capture.
type CaptureResult struct {
	Timestamp time.Time
	Scope     Scope
	Inserted  int
	Bound     int
	Synthetic int
}

// ControlPanelSimulator turns a control-panel payload into stored readings.
type ControlPanelSimulator struct {
	tags     masterdata.SensorTagRepository
	lines    LineLister
	logs     LogWriter
	daqLogs  DaqLogWriter
	catalog  ChannelCatalog
	source   ValueSource
	clock    Clock
	location *time.Location
}

// Option configures the simulator.
type Option func(*ControlPanelSimulator)

// WithChannels replaces the default channel catalogue.
func WithChannels(channels []Channel) Option {
	return func(s *ControlPanelSimulator) {
		if len(channels) > 0 {
			s.catalog = NewChannelCatalog(channels)
		}
	}
}

// WithValueSource overrides the random source for unbound tags.
func WithValueSource(source ValueSource) Option {
	return func(s *ControlPanelSimulator) {
		if source != nil {
			s.source = source
		}
	}
}

// WithClock overrides the capture clock.
func WithClock(clock Clock) Option {
	return func(s *ControlPanelSimulator) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocation sets the zone capture timestamps are expressed in.
func WithLocation(loc *time.Location) Option {
	return func(s *ControlPanelSimulator) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewControlPanelSimulator constructs a simulator.
func NewControlPanelSimulator(tags masterdata.SensorTagRepository, lines LineLister, logs LogWriter, daqLogs DaqLogWriter, opts ...Option) (*ControlPanelSimulator, error) {
	if tags == nil {
		return nil, errors.New("control panel: nil tag repository")
	}
	if lines == nil {
		return nil, errors.New("control panel: nil line repository")
	}
	if logs == nil || daqLogs == nil {
		return nil, errors.New("control panel: nil reading writer")
	}
	s := &ControlPanelSimulator{
		tags:     tags,
		lines:    lines,
		logs:     logs,
		daqLogs:  daqLogs,
		catalog:  NewChannelCatalog(DefaultChannels()),
		source:   randSource{},
		clock:    systemClock{},
		location: time.Local,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Capture stamps one reading per active tag (or per active line and tag with
// ScopeLine) at a single shared timestamp and writes them in one batch.
func (s *ControlPanelSimulator) Capture(ctx context.Context, payload map[string]float64, scope Scope) (CaptureResult, error) {
	started := time.Now()
	if scope == "" {
		scope = ScopeMachine
	}
	result, err := s.capture(ctx, payload, scope)
	outcome := metrics.ResultSuccess
	if err != nil {
		outcome = metrics.ResultError
	}
	metrics.ObserveIngest(string(scope), outcome, result.Inserted, time.Since(started))
	return result, err
}

func (s *ControlPanelSimulator) capture(ctx context.Context, payload map[string]float64, scope Scope) (CaptureResult, error) {
	result := CaptureResult{
		Timestamp: s.clock.Now().In(s.location),
		Scope:     scope,
	}

	tags, err := s.tags.ListActiveTags(ctx)
	if err != nil {
		return result, fmt.Errorf("control panel: list tags: %w", err)
	}

	switch scope {
	case ScopeMachine:
		rows := make([]telemetry.DaqLog, 0, len(tags))
		for _, tag := range tags {
			rows = append(rows, telemetry.DaqLog{
				Timestamp: result.Timestamp,
				TagID:     tag.ID,
				Value:     s.valueFor(tag.SensorTag, payload, &result),
			})
		}
		if err := s.daqLogs.InsertDaqLogs(ctx, rows); err != nil {
			return result, fmt.Errorf("control panel: insert daq logs: %w", err)
		}
		result.Inserted = len(rows)
	case ScopeLine:
		lines, err := s.lines.List(ctx, lifecycle.ListFilter{})
		if err != nil {
			return result, fmt.Errorf("control panel: list lines: %w", err)
		}
		rows := make([]telemetry.Log, 0, len(lines)*len(tags))
		for _, line := range lines {
			if line.Inactive {
				continue
			}
			for _, tag := range tags {
				rows = append(rows, telemetry.Log{
					Timestamp: result.Timestamp,
					LineID:    line.ID,
					TagID:     tag.ID,
					Value:     s.valueFor(tag.SensorTag, payload, &result),
				})
			}
		}
		if err := s.logs.InsertLogs(ctx, rows); err != nil {
			return result, fmt.Errorf("control panel: insert logs: %w", err)
		}
		result.Inserted = len(rows)
	default:
		return result, apperrors.Invalidf("unknown capture scope %q", scope)
	}
	return result, nil
}

func (s *ControlPanelSimulator) valueFor(tag masterdata.SensorTag, payload map[string]float64, result *CaptureResult) float64 {
	if channel, ok := s.catalog.Bind(tag.Name); ok {
		result.Bound++
		return tag.Clamp(payload[channel])
	}
	result.Synthetic++
	return tag.Clamp(tag.MinVal + s.source.Float64()*(tag.MaxVal-tag.MinVal))
}
