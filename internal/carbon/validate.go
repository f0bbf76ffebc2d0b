package carbon

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidComponent = errors.New("invalid component")
	ErrInvalidScenario  = errors.New("invalid scenario parameters")
)

// NormalizeComponent fills defaults for omitted enum values and rating.
// It does not repair invalid values; ValidateComponent rejects those.
func NormalizeComponent(c Component) Component {
	if c.LifecycleStage == "" {
		c.LifecycleStage = StageProduction
	}
	if c.NodeType == "" {
		c.NodeType = NodeComponent
	}
	if c.VerificationStatus == "" {
		c.VerificationStatus = VerificationUnverified
	}
	if c.DataQualityRating == 0 {
		c.DataQualityRating = DefaultDataQualityRating
	}
	c.Co2eKg = c.Impact()
	return c
}

// ValidateComponent rejects shapes the aggregator must never see.
// Call NormalizeComponent first so zero values are not reported as invalid.
func ValidateComponent(c Component) error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidComponent)
	}
	if math.IsNaN(c.Quantity) || math.IsInf(c.Quantity, 0) || c.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be a non-negative number, got %v", ErrInvalidComponent, c.Quantity)
	}
	if c.EmissionFactor != nil {
		ef := *c.EmissionFactor
		if math.IsNaN(ef) || math.IsInf(ef, 0) || ef < 0 {
			return fmt.Errorf("%w: emission factor must be a non-negative number, got %v", ErrInvalidComponent, ef)
		}
	}
	if c.DataQualityRating < MinDataQualityRating || c.DataQualityRating > MaxDataQualityRating {
		return fmt.Errorf("%w: data quality rating must be between %d and %d, got %d",
			ErrInvalidComponent, MinDataQualityRating, MaxDataQualityRating, c.DataQualityRating)
	}
	if !c.LifecycleStage.Valid() {
		return fmt.Errorf("%w: unknown lifecycle stage %q", ErrInvalidComponent, c.LifecycleStage)
	}
	if !c.NodeType.Valid() {
		return fmt.Errorf("%w: unknown node type %q", ErrInvalidComponent, c.NodeType)
	}
	if !c.VerificationStatus.Valid() {
		return fmt.Errorf("%w: unknown verification status %q", ErrInvalidComponent, c.VerificationStatus)
	}
	if c.ID != "" && c.ParentComponentID == c.ID {
		return fmt.Errorf("%w: component cannot be its own parent", ErrInvalidComponent)
	}
	return nil
}
