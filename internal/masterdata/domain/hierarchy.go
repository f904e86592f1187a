package masterdata

import (
	"context"
	"strings"

	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/lifecycle"
)

var (
	// ErrNotFound indicates a missing masterdata record.
	ErrNotFound = apperrors.NotFound("masterdata")
)

// Plant is the top of the site hierarchy.
type Plant struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	lifecycle.Lifecycle
}

// Validate checks plant invariants.
func (p Plant) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperrors.Invalid("plant: empty name")
	}
	return nil
}

// Block groups lines inside a plant.
type Block struct {
	ID      int64  `json:"id"`
	PlantID int64  `json:"plant"`
	Name    string `json:"name"`
	lifecycle.Lifecycle
}

// Validate checks block invariants.
func (b Block) Validate() error {
	if b.PlantID <= 0 {
		return apperrors.Invalid("block: plant is required")
	}
	if strings.TrimSpace(b.Name) == "" {
		return apperrors.Invalid("block: empty name")
	}
	return nil
}

// Line is a production line; TargetProduction is units per hour.
type Line struct {
	ID               int64  `json:"id"`
	BlockID          int64  `json:"block"`
	Name             string `json:"name"`
	TargetProduction int    `json:"target_production"`
	Status           string `json:"status"`
	lifecycle.Lifecycle
}

// Validate checks line invariants.
func (l Line) Validate() error {
	if l.BlockID <= 0 {
		return apperrors.Invalid("line: block is required")
	}
	if strings.TrimSpace(l.Name) == "" {
		return apperrors.Invalid("line: empty name")
	}
	if l.TargetProduction < 0 {
		return apperrors.Invalidf("line: target_production %d must be >= 0", l.TargetProduction)
	}
	return nil
}

// Machine sits on a line and owns sensor tags.
type Machine struct {
	ID          int64  `json:"id"`
	LineID      int64  `json:"line"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	HeightPx    int    `json:"height_px"`
	WidthPx     int    `json:"width_px"`
	XCoordinate int    `json:"x_coordinate"`
	YCoordinate int    `json:"y_coordinate"`
	lifecycle.Lifecycle
}

// Validate checks machine invariants.
func (m Machine) Validate() error {
	if m.LineID <= 0 {
		return apperrors.Invalid("machine: line is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return apperrors.Invalid("machine: empty name")
	}
	if m.HeightPx < 0 || m.WidthPx < 0 {
		return apperrors.Invalid("machine: negative size")
	}
	return nil
}

// LineRepository manages line persistence.
type LineRepository interface {
	Get(ctx context.Context, id int64) (*Line, error)
	List(ctx context.Context, filter lifecycle.ListFilter) ([]Line, error)
}
