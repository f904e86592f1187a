package application

import (
	"context"
	"errors"
	"testing"

	"plant-monitor/internal/lifecycle"
	masterdata "plant-monitor/internal/masterdata/domain"
)

type stubLines map[int64]masterdata.Line

func (s stubLines) Get(_ context.Context, id int64) (*masterdata.Line, error) {
	line, ok := s[id]
	if !ok {
		return nil, nil
	}
	return &line, nil
}

func (s stubLines) List(context.Context, lifecycle.ListFilter) ([]masterdata.Line, error) {
	return nil, nil
}

func TestHierarchyServiceBlockOfLine(t *testing.T) {
	lines := stubLines{
		7: {ID: 7, BlockID: 3, Name: "L7"},
		8: {ID: 8, BlockID: 4, Name: "L8", Lifecycle: lifecycle.Lifecycle{Inactive: true}},
	}
	svc, err := NewHierarchyService(lines)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	block, err := svc.BlockOfLine(context.Background(), 7)
	if err != nil {
		t.Fatalf("block of line: %v", err)
	}
	if block != 3 {
		t.Fatalf("expected block 3, got %d", block)
	}

	if _, err := svc.BlockOfLine(context.Background(), 99); !errors.Is(err, masterdata.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Line(context.Background(), 8); !errors.Is(err, masterdata.ErrNotFound) {
		t.Fatalf("inactive line should be not found, got %v", err)
	}
}

func TestNewHierarchyServiceRejectsNil(t *testing.T) {
	if _, err := NewHierarchyService(nil); err == nil {
		t.Fatalf("expected error for nil repository")
	}
}
