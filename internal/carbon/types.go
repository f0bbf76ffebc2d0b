// Package carbon is the product carbon footprint engine: BOM tree building,
// emission aggregation, audit readiness scoring, scenario projection and
// report assembly. Every function in this package is pure; callers own I/O.
package carbon

import "time"

// LifecycleStage 生命周期阶段
type LifecycleStage string

const (
	StageRawMaterialAcquisition LifecycleStage = "raw_material_acquisition"
	StageProduction             LifecycleStage = "production"
	StageDistribution           LifecycleStage = "distribution"
	StageUsage                  LifecycleStage = "usage"
	StageEndOfLife              LifecycleStage = "end_of_life"
)

var stageOrder = []LifecycleStage{
	StageRawMaterialAcquisition,
	StageProduction,
	StageDistribution,
	StageUsage,
	StageEndOfLife,
}

// Stages returns the lifecycle stages in their fixed reporting order.
func Stages() []LifecycleStage {
	out := make([]LifecycleStage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Valid reports whether s is one of the known stages.
func (s LifecycleStage) Valid() bool {
	return s.index() >= 0
}

func (s LifecycleStage) index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// NodeType BOM节点类型
type NodeType string

const (
	NodeComponent NodeType = "component"
	NodeProcess   NodeType = "process"
	NodeTransport NodeType = "transport"
	NodeEnergy    NodeType = "energy"
)

// NodeTypes returns every node type in display order.
func NodeTypes() []NodeType {
	return []NodeType{NodeComponent, NodeProcess, NodeTransport, NodeEnergy}
}

func (t NodeType) Valid() bool {
	switch t {
	case NodeComponent, NodeProcess, NodeTransport, NodeEnergy:
		return true
	}
	return false
}

// VerificationStatus 核查状态
type VerificationStatus string

const (
	VerificationUnverified    VerificationStatus = "unverified"
	VerificationPendingReview VerificationStatus = "pending_review"
	VerificationVerified      VerificationStatus = "verified"
	VerificationFlagged       VerificationStatus = "flagged"
)

func (v VerificationStatus) Valid() bool {
	switch v {
	case VerificationUnverified, VerificationPendingReview, VerificationVerified, VerificationFlagged:
		return true
	}
	return false
}

// SystemBoundary 系统边界
type SystemBoundary string

const (
	BoundaryCradleToGate  SystemBoundary = "cradle_to_gate"
	BoundaryCradleToGrave SystemBoundary = "cradle_to_grave"
	BoundaryGateToGate    SystemBoundary = "gate_to_gate"
)

func (b SystemBoundary) Valid() bool {
	switch b {
	case BoundaryCradleToGate, BoundaryCradleToGrave, BoundaryGateToGate:
		return true
	}
	return false
}

// IncludesStage reports whether the boundary covers the stage.
// cradle_to_gate stops before usage, gate_to_gate covers in-plant production only.
func (b SystemBoundary) IncludesStage(s LifecycleStage) bool {
	switch b {
	case BoundaryCradleToGrave:
		return true
	case BoundaryGateToGate:
		return s == StageProduction
	default:
		return s != StageUsage && s != StageEndOfLife
	}
}

// ProductStatus 核算状态
type ProductStatus string

const (
	StatusInProgress ProductStatus = "in_progress"
	StatusCompleted  ProductStatus = "completed"
)

const (
	// DefaultDataQualityRating applies when a component arrives without a rating.
	DefaultDataQualityRating = 3
	MinDataQualityRating     = 1
	MaxDataQualityRating     = 5
	// PrimaryDataThreshold is the lowest rating counted as primary data.
	PrimaryDataThreshold = 4
)

// Component is one node of a product's bill of materials.
type Component struct {
	ID                 string             `json:"id"`
	ProductID          string             `json:"product_id"`
	ParentComponentID  string             `json:"parent_component_id,omitempty"`
	Name               string             `json:"name"`
	MaterialType       string             `json:"material_type,omitempty"`
	Quantity           float64            `json:"quantity"`
	Unit               string             `json:"unit"`
	EmissionFactor     *float64           `json:"emission_factor"`
	Co2eKg             float64            `json:"co2e_kg"`
	LifecycleStage     LifecycleStage     `json:"lifecycle_stage"`
	NodeType           NodeType           `json:"node_type"`
	DataQualityRating  int                `json:"data_quality_rating"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	GeographicOrigin   string             `json:"geographic_origin,omitempty"`
	SupplierID         string             `json:"supplier_id,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// HasEmissionFactor reports whether the component has a factor; without one
// its data is pending rather than zero.
func (c Component) HasEmissionFactor() bool {
	return c.EmissionFactor != nil
}

// Impact is quantity × emission factor, or 0 while the factor is pending.
func (c Component) Impact() float64 {
	if c.EmissionFactor == nil {
		return 0
	}
	return c.Quantity * *c.EmissionFactor
}

func (c Component) IsVerified() bool {
	return c.VerificationStatus == VerificationVerified
}

// IsPrimaryData reports whether the rating marks measured or supplier-specific data.
func (c Component) IsPrimaryData() bool {
	return c.DataQualityRating >= PrimaryDataThreshold
}

// Product is the aggregate root owning components by ProductID.
type Product struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	QuantityAmount float64        `json:"quantity_amount"`
	Unit           string         `json:"unit"`
	SystemBoundary SystemBoundary `json:"system_boundary"`

	TotalCo2eKg         float64       `json:"total_co2e_kg"`
	RawMaterialCo2e     float64       `json:"raw_material_co2e"`
	ProductionCo2e      float64       `json:"production_co2e"`
	DistributionCo2e    float64       `json:"distribution_co2e"`
	UsageCo2e           float64       `json:"usage_co2e"`
	EolCo2e             float64       `json:"eol_co2e"`
	Status              ProductStatus `json:"status"`
	AuditReadinessScore float64       `json:"audit_readiness_score"`
	LastCalculatedDate  *time.Time    `json:"last_calculated_date,omitempty"`
}

// FunctionalUnit renders the declared unit the footprint refers to, e.g. "1 kg".
func (p Product) FunctionalUnit() string {
	return formatQuantity(p.QuantityAmount) + " " + p.Unit
}

// Float returns a pointer to v; handy for optional emission factors.
func Float(v float64) *float64 {
	return &v
}
