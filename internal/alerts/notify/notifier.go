package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	alertapp "plant-monitor/internal/alerts/application"
	masterdata "plant-monitor/internal/masterdata/domain"
)

// LineReader loads lines for display names.
type LineReader interface {
	Get(ctx context.Context, id int64) (*masterdata.Line, error)
}

// TagReader loads sensor tags for display names.
type TagReader interface {
	Get(ctx context.Context, id int64) (*masterdata.SensorTag, error)
}

// Clock provides time for deduplication.
type Clock interface {
	Now() time.Time
}

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier renders alert events and sends them through a channel.
type Notifier struct {
	lines          LineReader
	tags           TagReader
	channel        Channel
	template       *Template
	events         map[string]bool
	clock          Clock
	logger         *log.Logger
	mu             sync.Mutex
	sent           map[string]sendRecord
	dedupeWindow   time.Duration
	requestTimeout time.Duration
}

// Option configures the notifier.
type Option func(*Notifier)

// WithEvents selects which event types are sent; only created alerts by default.
func WithEvents(events ...string) Option {
	return func(n *Notifier) {
		if len(events) == 0 {
			return
		}
		n.events = make(map[string]bool, len(events))
		for _, event := range events {
			n.events[event] = true
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithLogger sets the logger for delivery failures.
func WithLogger(logger *log.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithDedupeWindow suppresses identical notifications within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// WithRequestTimeout bounds each delivery.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			n.requestTimeout = timeout
		}
	}
}

// NewNotifier constructs an alert notifier. Line and tag readers are optional.
func NewNotifier(lines LineReader, tags TagReader, channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("alert notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		lines:          lines,
		tags:           tags,
		channel:        channel,
		template:       template,
		events:         map[string]bool{alertapp.EventCreated: true},
		clock:          systemClock{},
		logger:         log.Default(),
		sent:           make(map[string]sendRecord),
		requestTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify implements AlertNotifier.
func (n *Notifier) Notify(ctx context.Context, event alertapp.AlertEvent) {
	if n == nil || n.channel == nil || !n.events[event.Type] {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if n.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.requestTimeout)
		defer cancel()
	}

	content, err := n.template.Render(n.buildTemplateData(ctx, event))
	if err != nil {
		n.logger.Printf("alert notifier: render alert %d: %v", event.Alert.ID, err)
		return
	}
	key := notificationKey(event.Alert.ID, event.Type)
	if !n.shouldSend(key, content) {
		return
	}
	if err := n.channel.Send(ctx, content); err != nil {
		n.logger.Printf("alert notifier: send alert %d: %v", event.Alert.ID, err)
		return
	}
	n.markSent(key, content)
}

func (n *Notifier) buildTemplateData(ctx context.Context, event alertapp.AlertEvent) TemplateData {
	alert := event.Alert
	data := TemplateData{
		Event:      event.Type,
		EventLabel: eventLabel(event.Type),
		Line:       fmt.Sprintf("#%d", alert.LineID),
		Tag:        fmt.Sprintf("#%d", alert.TagID),
		Name:       alert.Name,
		Severity:   alert.Type,
		Timestamp:  alert.Timestamp.UTC().Format(time.RFC3339),
		Location:   alert.Location,
		Details:    strings.TrimSpace(alert.IncidentDtls),
	}
	if alert.ResolvedAt != nil {
		data.ResolvedAt = alert.ResolvedAt.UTC().Format(time.RFC3339)
	}
	if n.lines != nil {
		if line, err := n.lines.Get(ctx, alert.LineID); err == nil && line != nil {
			data.Line = line.Name
		}
	}
	if n.tags != nil {
		if tag, err := n.tags.Get(ctx, alert.TagID); err == nil && tag != nil {
			data.Tag = tag.Name
		}
	}
	return data
}

func eventLabel(event string) string {
	switch event {
	case alertapp.EventCreated:
		return "Raised"
	case alertapp.EventUpdated:
		return "Updated"
	case alertapp.EventDeleted:
		return "Withdrawn"
	default:
		return event
	}
}

func (n *Notifier) shouldSend(key, content string) bool {
	if n.dedupeWindow <= 0 {
		return true
	}
	now := n.clock.Now().UTC()
	n.mu.Lock()
	record, ok := n.sent[key]
	n.mu.Unlock()
	if !ok {
		return true
	}
	return record.hash != hashContent(content) || now.Sub(record.at) >= n.dedupeWindow
}

func (n *Notifier) markSent(key, content string) {
	n.mu.Lock()
	n.sent[key] = sendRecord{
		at:   n.clock.Now().UTC(),
		hash: hashContent(content),
	}
	n.mu.Unlock()
}

func notificationKey(alertID int64, eventType string) string {
	return fmt.Sprintf("%d|%s", alertID, eventType)
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
