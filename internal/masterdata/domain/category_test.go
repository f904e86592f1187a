package masterdata

import (
	"math"
	"testing"
)

func TestSensorTagClampAndValidate(t *testing.T) {
	tag := SensorTag{MachineID: 1, TagTypeID: 1, Name: "Temp", MinVal: 10, MaxVal: 90}
	if err := tag.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := tag.Clamp(5); got != 10 {
		t.Fatalf("clamp low: got %v", got)
	}
	if got := tag.Clamp(95); got != 90 {
		t.Fatalf("clamp high: got %v", got)
	}
	if got := tag.Clamp(42.5); got != 42.5 {
		t.Fatalf("clamp inside: got %v", got)
	}
	if got := tag.Clamp(math.NaN()); got != 10 {
		t.Fatalf("clamp NaN: got %v", got)
	}
	if got := tag.Clamp(math.Inf(1)); got != 90 {
		t.Fatalf("clamp +Inf: got %v", got)
	}

	tag.MinVal = 100
	if err := tag.Validate(); err == nil {
		t.Fatalf("expected min > max to fail")
	}
}

func TestSensorTagTypeRejectsUnknownCategory(t *testing.T) {
	tt := SensorTagType{Name: "Counter", Units: "pcs", Category: "throughput"}
	if err := tt.Validate(); err == nil {
		t.Fatalf("expected unknown category to fail")
	}
	tt.Category = CategoryProduction
	if err := tt.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
