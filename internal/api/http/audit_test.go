package apihttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plant-monitor/internal/audit"
)

type stubAuditReader struct {
	last    audit.Filter
	entries []audit.Entry
}

func (s *stubAuditReader) List(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	s.last = filter
	return s.entries, nil
}

func TestAuditHandlerPassesFilter(t *testing.T) {
	reader := &stubAuditReader{entries: []audit.Entry{{ID: "audit-1", Action: "delete", ResourceType: "plants", ResourceID: "3"}}}
	handler, err := NewAuditHandler(reader, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/audit-logs/?ResourceType=plants&ResourceId=3&StartDate=2024-03-01&EndDate=2024-03-02&Limit=10", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"resource_type":"plants"`)
	assert.Equal(t, "plants", reader.last.ResourceType)
	assert.Equal(t, "3", reader.last.ResourceID)
	assert.Equal(t, 10, reader.last.Limit)
	assert.False(t, reader.last.Start.IsZero())
}

func TestAuditHandlerValidation(t *testing.T) {
	handler, err := NewAuditHandler(&stubAuditReader{}, nil)
	require.NoError(t, err)

	for _, target := range []string{
		"/audit-logs/?Limit=0",
		"/audit-logs/?Limit=abc",
		"/audit-logs/?StartDate=2024-03-02",
		"/audit-logs/?StartDate=2024-03-02&EndDate=2024-03-01",
	} {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, resp.Code, target)
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/audit-logs/", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[]`, resp.Body.String())

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/audit-logs/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}
