package alertshttp

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plant-monitor/internal/alerts/application"
	alerts "plant-monitor/internal/alerts/domain"
	"plant-monitor/internal/alerts/infrastructure/memory"
	apihttp "plant-monitor/internal/api/http"
)

func newTestHandler(t *testing.T, opts ...application.ServiceOption) (*Handler, *application.Service) {
	t.Helper()
	svc, err := application.NewService(memory.NewAlertRepository(), opts...)
	require.NoError(t, err)
	resource, err := apihttp.NewResource[alerts.Alert]("alerts", "/alerts/", svc)
	require.NoError(t, err)
	handler, err := NewHandler(svc, resource, nil)
	require.NoError(t, err)
	return handler, svc
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func seed(t *testing.T, svc *application.Service, count int) time.Time {
	t.Helper()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		alert := alerts.Alert{
			LineID:    int64(1 + i%2),
			TagID:     1,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Name:      "alert",
		}
		require.NoError(t, svc.Create(context.Background(), &alert))
	}
	return base
}

func TestAlertsRecentNewestFirst(t *testing.T) {
	handler, svc := newTestHandler(t)
	base := seed(t, svc, 30)

	resp := do(handler, http.MethodGet, "/alerts/", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var items []alerts.Alert
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &items))
	require.Len(t, items, application.DefaultRecentLimit)
	assert.True(t, items[0].Timestamp.Equal(base.Add(29*time.Hour)))
	assert.True(t, items[0].Timestamp.After(items[1].Timestamp))
}

func TestAlertsRangeWithLine(t *testing.T) {
	handler, svc := newTestHandler(t)
	seed(t, svc, 6)

	resp := do(handler, http.MethodGet, "/alerts/?StartDate=2024-03-01T01:00:00Z&EndDate=2024-03-01T05:00:00Z&Line=2", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var items []alerts.Alert
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &items))
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, int64(2), item.LineID)
		if i > 0 {
			assert.True(t, item.Timestamp.After(items[i-1].Timestamp))
		}
	}

	resp = do(handler, http.MethodGet, "/alerts/?StartDate=2030-01-01T00:00:00Z&EndDate=2030-01-02T00:00:00Z", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[]`, resp.Body.String())
}

func TestAlertsRangeValidation(t *testing.T) {
	handler, _ := newTestHandler(t)
	cases := []string{
		"/alerts/?StartDate=2024-03-01T00:00:00Z",
		"/alerts/?StartDate=bad&EndDate=2024-03-01T00:00:00Z",
		"/alerts/?StartDate=2024-03-02T00:00:00Z&EndDate=2024-03-01T00:00:00Z",
		"/alerts/?StartDate=2024-03-01T00:00:00Z&EndDate=2024-03-02T00:00:00Z&Line=x",
	}
	for _, target := range cases {
		assert.Equal(t, http.StatusBadRequest, do(handler, http.MethodGet, target, "").Code, target)
	}
}

func TestAlertsCRUDDelegatesToResource(t *testing.T) {
	handler, _ := newTestHandler(t)

	resp := do(handler, http.MethodPost, "/alerts/", `{"line":1,"tag":2,"timestamp":"2024-03-01T08:00:00Z","name":"Overheat","report_title":"Thermal"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	var created alerts.Alert
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "info", created.Type)
	assert.Equal(t, "Thermal", created.ReportTitle)

	resp = do(handler, http.MethodPatch, "/alerts/1", `{"resolved_at":"2024-03-01T09:00:00Z"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"resolved_at":"2024-03-01T09:00:00Z"`)

	assert.Equal(t, http.StatusNotFound, do(handler, http.MethodGet, "/alerts/99", "").Code)
	assert.Equal(t, http.StatusNoContent, do(handler, http.MethodDelete, "/alerts/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(handler, http.MethodDelete, "/alerts/99", "").Code)
}

func TestStreamDeliversAlertEvents(t *testing.T) {
	broker := NewSSEBroker()
	handler, _ := newTestHandler(t, application.WithNotifier(broker))
	server := httptest.NewServer(NewStreamHandler(broker))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ready\n", line)

	require.Eventually(t, func() bool { return broker.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	created := do(handler, http.MethodPost, "/alerts/", `{"line":1,"tag":2,"timestamp":"2024-03-01T08:00:00Z","name":"Overheat"}`)
	require.Equal(t, http.StatusCreated, created.Code)

	var eventName string
	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: ") {
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		}
		if strings.HasPrefix(line, "data: ") && line != "data: {}\n" {
			break
		}
	}
	assert.Equal(t, "alert.created", eventName)
	var event application.AlertEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &event))
	assert.Equal(t, application.EventCreated, event.Type)
	assert.Equal(t, "Overheat", event.Alert.Name)
}

func TestBrokerFiltersByLine(t *testing.T) {
	broker := NewSSEBroker()
	all := broker.Subscribe(0)
	lineTwo := broker.Subscribe(2)
	defer broker.Unsubscribe(all)
	defer broker.Unsubscribe(lineTwo)

	broker.Notify(context.Background(), application.AlertEvent{
		Type:  application.EventCreated,
		Alert: alerts.Alert{ID: 7, LineID: 1, Name: "Overheat"},
	})

	select {
	case msg := <-all.ch:
		assert.Equal(t, "alert.created", msg.event)
		assert.Equal(t, int64(7), msg.id)
	default:
		t.Fatal("expected event for unfiltered subscriber")
	}
	select {
	case <-lineTwo.ch:
		t.Fatal("line 2 subscriber received a line 1 event")
	default:
	}
}

func TestStreamRejectsBadLine(t *testing.T) {
	resp := httptest.NewRecorder()
	NewStreamHandler(NewSSEBroker()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/alerts/stream?Line=x", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
