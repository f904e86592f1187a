package apihttp

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plant-monitor/internal/apperrors"
)

func TestParseTimestampLayouts(t *testing.T) {
	parsed, err := ParseTimestamp("2024-03-01T08:00:00Z")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)))

	parsed, err = ParseTimestamp("2024-03-01T08:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Local, parsed.Location())
	assert.Equal(t, 8, parsed.Hour())

	_, err = ParseTimestamp("2024-03-01 08:00:00")
	require.NoError(t, err)

	_, err = ParseTimestamp("yesterday")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestParseRange(t *testing.T) {
	req := httptest.NewRequest("GET", "/logs/?StartDate=2024-03-01T00:00:00Z&EndDate=2024-03-02T00:00:00Z", nil)
	start, end, err := ParseRange(req, "StartDate", "EndDate")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	req = httptest.NewRequest("GET", "/logs/?StartDate=2024-03-02T00:00:00Z&EndDate=2024-03-01T00:00:00Z", nil)
	_, _, err = ParseRange(req, "StartDate", "EndDate")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	req = httptest.NewRequest("GET", "/logs/?StartDate=2024-03-02T00:00:00Z", nil)
	_, _, err = ParseRange(req, "StartDate", "EndDate")
	assert.ErrorContains(t, err, "EndDate is required")

	req = httptest.NewRequest("GET", "/alerts/?StartDate=2024-03-02T00:00:00Z&EndDate=2024-03-02T00:00:00Z", nil)
	start, end, err = ParseRange(req, "StartDate", "EndDate")
	require.NoError(t, err)
	assert.True(t, start.Equal(end))
}

func TestParseStrictRangeRejectsEmptyWindow(t *testing.T) {
	req := httptest.NewRequest("GET", "/logs/?StartDate=2024-03-02T00:00:00Z&EndDate=2024-03-02T00:00:00Z", nil)
	_, _, err := ParseStrictRange(req, "StartDate", "EndDate")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.ErrorContains(t, err, "StartDate must be before EndDate")

	req = httptest.NewRequest("GET", "/logs/?StartDate=2024-03-02T00:00:00Z&EndDate=2024-03-01T00:00:00Z", nil)
	_, _, err = ParseStrictRange(req, "StartDate", "EndDate")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	req = httptest.NewRequest("GET", "/logs/?StartDate=2024-03-01T00:00:00Z&EndDate=2024-03-01T00:00:01Z", nil)
	start, end, err := ParseStrictRange(req, "StartDate", "EndDate")
	require.NoError(t, err)
	assert.Equal(t, time.Second, end.Sub(start))
}

func TestParseIDQuery(t *testing.T) {
	req := httptest.NewRequest("GET", "/logs/?LineId=7&TagId=x", nil)
	id, err := ParseIDQuery(req, "LineId")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = ParseIDQuery(req, "TagId")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = ParseIDQuery(req, "MachineId")
	assert.ErrorContains(t, err, "MachineId is required")

	id, err = ParseOptionalIDQuery(req, "MachineId")
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestSplitPath(t *testing.T) {
	assert.Nil(t, SplitPath("/plants/", "/plants/"))
	assert.Equal(t, []string{"3"}, SplitPath("/plants/3", "/plants/"))
	assert.Equal(t, []string{"3", "transactions"}, SplitPath("/incidents/3/transactions/", "/incidents/"))
}
