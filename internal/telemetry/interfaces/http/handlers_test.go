package telemetryhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"plant-monitor/internal/telemetry/application"
	telemetry "plant-monitor/internal/telemetry/domain"
)

type stubCapturer struct {
	payload map[string]float64
	scope   application.Scope
	err     error
}

func (s *stubCapturer) Capture(_ context.Context, payload map[string]float64, scope application.Scope) (application.CaptureResult, error) {
	s.payload = payload
	s.scope = scope
	if s.err != nil {
		return application.CaptureResult{}, s.err
	}
	return application.CaptureResult{
		Timestamp: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Scope:     scope,
		Inserted:  len(payload),
	}, nil
}

func TestControlPanelHandlerCaptures(t *testing.T) {
	sim := &stubCapturer{}
	handler, err := NewControlPanelHandler(sim, application.ScopeMachine, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/control-panel-data/", strings.NewReader(`{"Vry": 415, "Freq": "50.1"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, application.ScopeMachine, sim.scope)
	assert.Equal(t, 415.0, sim.payload["Vry"])
	assert.Equal(t, 50.1, sim.payload["Freq"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["inserted"])
	assert.NotEmpty(t, body["message"])
}

func TestControlPanelHandlerScopeQuery(t *testing.T) {
	sim := &stubCapturer{}
	handler, _ := NewControlPanelHandler(sim, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/control-panel-data/?scope=line", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, application.ScopeLine, sim.scope)

	req = httptest.NewRequest(http.MethodPost, "/control-panel-data/?scope=plant", strings.NewReader(`{}`))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestControlPanelHandlerRejectsBadPayloads(t *testing.T) {
	handler, _ := NewControlPanelHandler(&stubCapturer{}, "", nil)
	for _, body := range []string{`[1,2]`, `"Vry"`, `{"Vry": "high"}`, `{"Vry": true}`, `null`, `{`, `{"Vry": "NaN"}`, `{"Vry": "Inf"}`, `{"Cr": "-Inf"}`} {
		req := httptest.NewRequest(http.MethodPost, "/control-panel-data/", strings.NewReader(body))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusBadRequest, resp.Code, body)
	}
}

func TestControlPanelHandlerStorageFailure(t *testing.T) {
	handler, _ := NewControlPanelHandler(&stubCapturer{err: errors.New("db down")}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/control-panel-data/", strings.NewReader(`{"Vry": 1}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

type memoryReadings struct {
	logs      []telemetry.Log
	daqRows   []telemetry.DaqLogRow
	logFilter telemetry.LogFilter
	daqFilter telemetry.DaqLogFilter
	deleted   []int64
}

func (m *memoryReadings) InsertLogs(_ context.Context, logs []telemetry.Log) error {
	m.logs = append(m.logs, logs...)
	return nil
}

func (m *memoryReadings) Create(_ context.Context, l *telemetry.Log) error {
	if err := l.Validate(); err != nil {
		return err
	}
	l.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, *l)
	return nil
}

func (m *memoryReadings) QueryLogs(_ context.Context, filter telemetry.LogFilter) ([]telemetry.Log, error) {
	m.logFilter = filter
	return m.logs, nil
}

func (m *memoryReadings) Delete(_ context.Context, id int64) error {
	if id > 100 {
		return telemetry.ErrNotFound
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type memoryDaqReadings struct {
	memoryReadings
}

func (m *memoryDaqReadings) InsertDaqLogs(context.Context, []telemetry.DaqLog) error { return nil }

func (m *memoryDaqReadings) Create(_ context.Context, d *telemetry.DaqLog) error {
	if err := d.Validate(); err != nil {
		return err
	}
	d.ID = 1
	return nil
}

func (m *memoryDaqReadings) QueryDaqLogs(_ context.Context, filter telemetry.DaqLogFilter) ([]telemetry.DaqLogRow, error) {
	m.daqFilter = filter
	return m.daqRows, nil
}

func TestLogsHandlerRequiresAllParams(t *testing.T) {
	repo := &memoryReadings{}
	handler, err := NewLogsHandler(repo, nil)
	require.NoError(t, err)

	cases := []string{
		"/logs/",
		"/logs/?LineId=1&TagId=2&StartDate=2024-03-01T00:00:00Z",
		"/logs/?LineId=x&TagId=2&StartDate=2024-03-01T00:00:00Z&EndDate=2024-03-02T00:00:00Z",
		"/logs/?LineId=1&TagId=2&StartDate=2024-03-03T00:00:00Z&EndDate=2024-03-02T00:00:00Z",
		"/logs/?LineId=1&TagId=2&StartDate=soon&EndDate=2024-03-02T00:00:00Z",
		"/logs/?LineId=1&TagId=2&StartDate=2024-03-02T00:00:00Z&EndDate=2024-03-02T00:00:00Z",
	}
	for _, target := range cases {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, resp.Code, target)
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/logs/?LineId=1&TagId=2&StartDate=2024-03-01T00:00:00Z&EndDate=2024-03-02T00:00:00Z", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(1), repo.logFilter.LineID)
	assert.Equal(t, int64(2), repo.logFilter.TagID)
	assert.Equal(t, 24*time.Hour, repo.logFilter.End.Sub(repo.logFilter.Start))
}

func TestLogsHandlerCreateAndDelete(t *testing.T) {
	repo := &memoryReadings{}
	handler, _ := NewLogsHandler(repo, nil)

	resp := httptest.NewRecorder()
	body := `{"timestamp":"2024-03-01T08:00:00Z","line":1,"tag":2,"value":12.5}`
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/logs/", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Len(t, repo.logs, 1)
	assert.Equal(t, 12.5, repo.logs[0].Value)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/logs/", strings.NewReader(`{"line":1}`)))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/logs/5", nil))
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, []int64{5}, repo.deleted)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/logs/500", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDaqLogsHandlerRequiresMachineAndTag(t *testing.T) {
	repo := &memoryDaqReadings{}
	handler, err := NewDaqLogsHandler(repo, nil)
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/daqlogs/?LineId=1&TagId=2&StartDate=2024-03-01T00:00:00Z&EndDate=2024-03-02T00:00:00Z", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/daqlogs/?LineId=1&MachineId=3&TagId=2&StartDate=2024-03-02T00:00:00Z&EndDate=2024-03-02T00:00:00Z", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/daqlogs/?LineId=1&MachineId=3&TagId=2&StartDate=2024-03-01T00:00:00Z&EndDate=2024-03-02T00:00:00Z", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(3), repo.daqFilter.MachineID)
	assert.Equal(t, "[]\n", resp.Body.String())
}

func TestDaqLogExportWritesWorkbook(t *testing.T) {
	repo := &memoryDaqReadings{}
	repo.daqRows = []telemetry.DaqLogRow{
		{DaqLog: telemetry.DaqLog{ID: 1, TagID: 2, Value: 230, Timestamp: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}, TagName: "Vry", MachineID: 3, MachineName: "Press"},
	}
	handler, err := NewDaqLogExportHandler(repo, nil)
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/daqlogs/export.xlsx?LineId=1&StartDate=2024-03-01T00:00:00Z&EndDate=2024-03-02T00:00:00Z", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Zero(t, repo.daqFilter.MachineID)

	book, err := excelize.OpenReader(bytes.NewReader(resp.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	tag, err := book.GetCellValue("readings", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Vry", tag)
}
