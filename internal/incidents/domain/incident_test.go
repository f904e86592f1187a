package incidents

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"plant-monitor/internal/apperrors"
)

func TestIncidentJSONDefaultsOpen(t *testing.T) {
	var incident Incident
	if err := json.Unmarshal([]byte(`{"alert":1,"title":"Overheat","location":2,"line":3,"tag":4,"date":"2024-03-01"}`), &incident); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !incident.Open {
		t.Fatalf("expected new incident to default open")
	}
	if got := incident.Date.Format("2006-01-02"); got != "2024-03-01" {
		t.Fatalf("unexpected date %s", got)
	}
	if err := incident.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := json.Unmarshal([]byte(`{"open":false}`), &incident); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if incident.Open {
		t.Fatalf("explicit open=false should win")
	}
}

func TestIncidentJSONPatchKeepsExistingOpen(t *testing.T) {
	existing := Incident{ID: 9, Title: "Closed", Open: false}
	if err := json.Unmarshal([]byte(`{"title":"Renamed"}`), &existing); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if existing.Open {
		t.Fatalf("merge onto an existing incident must not reopen it")
	}
	if existing.Title != "Renamed" {
		t.Fatalf("expected title merged, got %q", existing.Title)
	}
}

func TestDateRoundTripAndErrors(t *testing.T) {
	d := DateOf(time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("x", 3600)))
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2024-03-01"` {
		t.Fatalf("unexpected json %s", data)
	}

	var parsed Date
	if err := json.Unmarshal([]byte(`"2024-03-01T08:00:00Z"`), &parsed); err != nil {
		t.Fatalf("unmarshal timestamp: %v", err)
	}
	if !parsed.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", parsed.Time)
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &parsed); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{IncidentID: 1, IssuedBy: 2, Timestamp: time.Now()}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	missing := valid
	missing.IssuedBy = 0
	if err := missing.Validate(); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
