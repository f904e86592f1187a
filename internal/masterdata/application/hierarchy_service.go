package application

import (
	"context"
	"errors"
	"fmt"

	masterdata "plant-monitor/internal/masterdata/domain"
)

// HierarchyService resolves relations across the plant hierarchy.
type HierarchyService struct {
	lines masterdata.LineRepository
}

// NewHierarchyService constructs a hierarchy service.
func NewHierarchyService(lines masterdata.LineRepository) (*HierarchyService, error) {
	if lines == nil {
		return nil, errors.New("hierarchy service: nil line repository")
	}
	return &HierarchyService{lines: lines}, nil
}

// BlockOfLine returns the block that owns a line.
func (s *HierarchyService) BlockOfLine(ctx context.Context, lineID int64) (int64, error) {
	line, err := s.lines.Get(ctx, lineID)
	if err != nil {
		return 0, err
	}
	if line == nil {
		return 0, fmt.Errorf("line %d: %w", lineID, masterdata.ErrNotFound)
	}
	return line.BlockID, nil
}

// Line loads a line, returning ErrNotFound when it is missing or inactive.
func (s *HierarchyService) Line(ctx context.Context, lineID int64) (*masterdata.Line, error) {
	line, err := s.lines.Get(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line == nil || line.Inactive {
		return nil, fmt.Errorf("line %d: %w", lineID, masterdata.ErrNotFound)
	}
	return line, nil
}
