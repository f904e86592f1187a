package masterdata

import (
	"context"
	"math"
	"strings"

	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/lifecycle"
)

// Category classifies what a tag type measures.
type Category string

const (
	CategoryNone          Category = ""
	CategoryProduction    Category = "production"
	CategoryDowntime      Category = "downtime"
	CategoryQuality       Category = "quality"
	CategoryElectrical    Category = "electrical"
	CategoryEnvironmental Category = "environmental"
)

// Valid returns true when the category is known.
func (c Category) Valid() bool {
	switch c {
	case CategoryNone, CategoryProduction, CategoryDowntime, CategoryQuality, CategoryElectrical, CategoryEnvironmental:
		return true
	default:
		return false
	}
}

// legacyKeywords are the tag-name fragments used before tag types carried a category.
var legacyKeywords = map[Category]string{
	CategoryProduction: "production",
	CategoryDowntime:   "downtime",
	CategoryQuality:    "quality",
}

// LegacyKeyword returns the tag-name fragment matched for a category, if any.
func LegacyKeyword(c Category) (string, bool) {
	keyword, ok := legacyKeywords[c]
	return keyword, ok
}

// SensorTagType describes the kind of a tag and its units.
type SensorTagType struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Units    string   `json:"units"`
	Category Category `json:"category"`
	lifecycle.Lifecycle
}

// Validate checks tag type invariants.
func (t SensorTagType) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return apperrors.Invalid("sensor tag type: empty name")
	}
	if len(t.Units) > 10 {
		return apperrors.Invalid("sensor tag type: units longer than 10 characters")
	}
	if !t.Category.Valid() {
		return apperrors.Invalidf("sensor tag type: unknown category %q", t.Category)
	}
	return nil
}

// SensorTag is a named channel on a machine with an inclusive value range.
type SensorTag struct {
	ID               int64    `json:"id"`
	MachineID        int64    `json:"machine"`
	TagTypeID        int64    `json:"tag_type"`
	Name             string   `json:"name"`
	MinVal           float64  `json:"min_val"`
	MaxVal           float64  `json:"max_val"`
	NominalVal       *float64 `json:"nominal_val"`
	ThresholdAlert   string   `json:"threshold_alert"`
	ContinuousRecord bool     `json:"continuous_record"`
	Frequency        *string  `json:"frequency"`
	lifecycle.Lifecycle
}

// Validate checks tag invariants.
func (t SensorTag) Validate() error {
	if t.MachineID <= 0 {
		return apperrors.Invalid("sensor tag: machine is required")
	}
	if t.TagTypeID <= 0 {
		return apperrors.Invalid("sensor tag: tag_type is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return apperrors.Invalid("sensor tag: empty name")
	}
	if t.MinVal > t.MaxVal {
		return apperrors.Invalidf("sensor tag: min_val %g greater than max_val %g", t.MinVal, t.MaxVal)
	}
	return nil
}

// Clamp limits value to the tag's [min_val, max_val]. NaN maps to min_val.
func (t SensorTag) Clamp(value float64) float64 {
	if math.IsNaN(value) || value < t.MinVal {
		return t.MinVal
	}
	if value > t.MaxVal {
		return t.MaxVal
	}
	return value
}

// ActiveTag is an active tag on an active machine, with its line resolved.
type ActiveTag struct {
	SensorTag
	LineID int64
}

// SensorTagRepository lists tags eligible for capture.
type SensorTagRepository interface {
	ListActiveTags(ctx context.Context) ([]ActiveTag, error)
}
