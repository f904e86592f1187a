package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	alertapp "plant-monitor/internal/alerts/application"
	alerts "plant-monitor/internal/alerts/domain"
	masterdata "plant-monitor/internal/masterdata/domain"
)

type stubLineRepo struct {
	line *masterdata.Line
}

func (s stubLineRepo) Get(_ context.Context, _ int64) (*masterdata.Line, error) {
	return s.line, nil
}

type stubTagRepo struct {
	tag *masterdata.SensorTag
}

func (s stubTagRepo) Get(_ context.Context, _ int64) (*masterdata.SensorTag, error) {
	return s.tag, nil
}

func sampleAlert() alerts.Alert {
	return alerts.Alert{
		ID:           7,
		LineID:       1,
		TagID:        2,
		Timestamp:    time.Date(2026, 1, 26, 8, 0, 0, 0, time.UTC),
		Name:         "Spindle overheat",
		Type:         "critical",
		Location:     "Block A",
		IncidentDtls: "temperature above 90C",
	}
}

func TestWebhookNotifierPayload(t *testing.T) {
	payloadCh := make(chan chatPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload chatPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new webhook channel: %v", err)
	}
	notifier, err := NewNotifier(
		stubLineRepo{line: &masterdata.Line{ID: 1, Name: "Assembly"}},
		stubTagRepo{tag: &masterdata.SensorTag{ID: 2, Name: "Temp"}},
		channel,
		nil,
	)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	notifier.Notify(context.Background(), alertapp.AlertEvent{Type: alertapp.EventCreated, Alert: sampleAlert()})

	select {
	case payload := <-payloadCh:
		if payload.MsgType != "text" {
			t.Fatalf("expected msgtype text, got %s", payload.MsgType)
		}
		checks := []string{
			"[Alert Raised]",
			"Line: Assembly",
			"Tag: Temp",
			"Name: Spindle overheat",
			"Severity: critical",
			"Time: 2026-01-26T08:00:00Z",
			"Location: Block A",
			"Details: temperature above 90C",
		}
		for _, expected := range checks {
			if !strings.Contains(payload.Text.Content, expected) {
				t.Fatalf("expected content to include %q, got %s", expected, payload.Text.Content)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for webhook payload")
	}
}

func TestWebhookChannelRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new webhook channel: %v", err)
	}
	if err := channel.Send(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error for 502 response")
	}
	if _, err := NewWebhookChannel(""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestWebhookChannelTextFormat(t *testing.T) {
	received := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL, WithFormat("Text"))
	if err != nil {
		t.Fatalf("new webhook channel: %v", err)
	}
	if err := channel.Send(context.Background(), "Line A overheat"); err != nil {
		t.Fatalf("send: %v", err)
	}
	payload := <-received
	if payload["text"] != "Line A overheat" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if _, ok := payload["msgtype"]; ok {
		t.Fatalf("text format should not carry msgtype: %v", payload)
	}
	if _, err := NewWebhookChannel(server.URL, WithFormat("pager")); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

type recordingChannel struct {
	mu       sync.Mutex
	contents []string
}

func (r *recordingChannel) Send(_ context.Context, content string) error {
	r.mu.Lock()
	r.contents = append(r.contents, content)
	r.mu.Unlock()
	return nil
}

func (r *recordingChannel) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contents)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Add(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestNotifierFiltersEventsAndFallsBackToIDs(t *testing.T) {
	channel := &recordingChannel{}
	notifier, err := NewNotifier(nil, nil, channel, nil)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	notifier.Notify(context.Background(), alertapp.AlertEvent{Type: alertapp.EventUpdated, Alert: sampleAlert()})
	if channel.Count() != 0 {
		t.Fatalf("updates should not be sent by default")
	}
	notifier.Notify(context.Background(), alertapp.AlertEvent{Type: alertapp.EventCreated, Alert: sampleAlert()})
	if channel.Count() != 1 {
		t.Fatalf("expected one notification, got %d", channel.Count())
	}
	if !strings.Contains(channel.contents[0], "Line: #1") {
		t.Fatalf("expected id fallback, got %s", channel.contents[0])
	}
}

func TestNotifierDedupeWindow(t *testing.T) {
	channel := &recordingChannel{}
	clock := &fakeClock{now: time.Date(2026, 1, 26, 8, 0, 0, 0, time.UTC)}
	notifier, err := NewNotifier(nil, nil, channel, nil,
		WithEvents(alertapp.EventCreated, alertapp.EventUpdated),
		WithClock(clock),
		WithDedupeWindow(time.Minute),
	)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	event := alertapp.AlertEvent{Type: alertapp.EventUpdated, Alert: sampleAlert()}

	notifier.Notify(context.Background(), event)
	notifier.Notify(context.Background(), event)
	if channel.Count() != 1 {
		t.Fatalf("expected duplicate to be suppressed, got %d", channel.Count())
	}

	clock.Add(2 * time.Minute)
	notifier.Notify(context.Background(), event)
	if channel.Count() != 2 {
		t.Fatalf("expected send after window, got %d", channel.Count())
	}
}

func TestMultiNotifierForwards(t *testing.T) {
	first := &recordingChannel{}
	second := &recordingChannel{}
	a, _ := NewNotifier(nil, nil, first, nil)
	b, _ := NewNotifier(nil, nil, second, nil)

	NewMultiNotifier(a, nil, b).Notify(context.Background(), alertapp.AlertEvent{Type: alertapp.EventCreated, Alert: sampleAlert()})
	if first.Count() != 1 || second.Count() != 1 {
		t.Fatalf("expected both notifiers to send")
	}
}
