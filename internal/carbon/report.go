package carbon

import (
	"sort"
	"strconv"
	"time"
)

const (
	ReportStandard = "ISO 14067:2018"

	ComplianceFull    = "Fully Compliant"
	CompliancePartial = "Partial Compliance"
	// FullComplianceThreshold is the audit readiness score needed for full compliance.
	FullComplianceThreshold = 80.0

	HotspotLimit = 5
)

// GHGShare is one gas in the fixed-ratio species split.
type GHGShare struct {
	Gas    string  `json:"gas"`
	Share  float64 `json:"share"`
	Co2eKg float64 `json:"co2e_kg"`
}

// ghgSplit is a fixed approximation of the species mix, not a speciation model.
var ghgSplit = []struct {
	gas   string
	share float64
}{
	{"CO2", 0.85},
	{"CH4", 0.10},
	{"N2O", 0.03},
	{"HFCs", 0.02},
}

// ReportDocument 合规报告数据模型
type ReportDocument struct {
	ProductID      string         `json:"product_id"`
	ProductName    string         `json:"product_name"`
	GeneratedAt    time.Time      `json:"generated_at"`
	GoalScope      GoalScope      `json:"goal_scope"`
	Inventory      Inventory      `json:"inventory"`
	Results        Results        `json:"results"`
	DataQuality    DataQuality    `json:"data_quality"`
	Interpretation Interpretation `json:"interpretation"`
	Compliance     Compliance     `json:"compliance"`
}

type GoalScope struct {
	Standard       string           `json:"standard"`
	FunctionalUnit string           `json:"functional_unit"`
	QuantityAmount float64          `json:"quantity_amount"`
	Unit           string           `json:"unit"`
	SystemBoundary SystemBoundary   `json:"system_boundary"`
	IncludedStages []LifecycleStage `json:"included_stages"`
	ExcludedStages []LifecycleStage `json:"excluded_stages"`
}

type InventoryItem struct {
	ID                 string             `json:"id"`
	ParentComponentID  string             `json:"parent_component_id,omitempty"`
	Name               string             `json:"name"`
	MaterialType       string             `json:"material_type,omitempty"`
	NodeType           NodeType           `json:"node_type"`
	LifecycleStage     LifecycleStage     `json:"lifecycle_stage"`
	Quantity           float64            `json:"quantity"`
	Unit               string             `json:"unit"`
	EmissionFactor     *float64           `json:"emission_factor"`
	Co2eKg             float64            `json:"co2e_kg"`
	Pending            bool               `json:"pending"`
	DataQualityRating  int                `json:"data_quality_rating"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	GeographicOrigin   string             `json:"geographic_origin,omitempty"`
	SupplierID         string             `json:"supplier_id,omitempty"`
}

type Inventory struct {
	TotalItems       int              `json:"total_items"`
	CountsByNodeType map[NodeType]int `json:"counts_by_node_type"`
	Items            []InventoryItem  `json:"items"`
}

type StageResult struct {
	Stage   LifecycleStage `json:"stage"`
	Co2eKg  float64        `json:"co2e_kg"`
	InScope bool           `json:"in_scope"`
	// PctOfTotal is relative to the in-scope total; 0 for stages outside the boundary.
	PctOfTotal float64 `json:"pct_of_total"`
}

type Results struct {
	TotalCo2eKg       float64       `json:"total_co2e_kg"`
	InScopeCo2eKg     float64       `json:"in_scope_co2e_kg"`
	PerFunctionalUnit float64       `json:"per_functional_unit"`
	StageBreakdown    []StageResult `json:"stage_breakdown"`
	// GHGBreakdown is a fixed-ratio split flagged by GHGApproximation.
	GHGBreakdown     []GHGShare `json:"ghg_breakdown"`
	GHGApproximation bool       `json:"ghg_approximation"`
	AverageDQR       float64    `json:"average_dqr"`
	UncertaintyPct   float64    `json:"uncertainty_pct"`
	ConfidenceLower  float64    `json:"confidence_lower"`
	ConfidenceUpper  float64    `json:"confidence_upper"`
}

type DataGap struct {
	ComponentID    string         `json:"component_id"`
	Name           string         `json:"name"`
	LifecycleStage LifecycleStage `json:"lifecycle_stage"`
}

type DataQuality struct {
	OverallScore     float64   `json:"overall_score"`
	VerifiedShare    float64   `json:"verified_share"`
	PrimaryDataShare float64   `json:"primary_data_share"`
	CompletenessPct  float64   `json:"completeness_pct"`
	DataGaps         []DataGap `json:"data_gaps"`
}

type Hotspot struct {
	ComponentID    string         `json:"component_id"`
	Name           string         `json:"name"`
	LifecycleStage LifecycleStage `json:"lifecycle_stage"`
	Co2eKg         float64        `json:"co2e_kg"`
	PctOfTotal     float64        `json:"pct_of_total"`
}

type Interpretation struct {
	Hotspots []Hotspot `json:"hotspots"`
}

type Compliance struct {
	Standard            string  `json:"standard"`
	AuditReadinessScore float64 `json:"audit_readiness_score"`
	Status              string  `json:"status"`
}

// AssembleReport builds the structured report content. It performs no I/O.
func AssembleReport(product Product, components []Component, agg Aggregation, score float64, generatedAt time.Time) ReportDocument {
	ordered := sortedForTree(components)
	return ReportDocument{
		ProductID:      product.ID,
		ProductName:    product.Name,
		GeneratedAt:    generatedAt,
		GoalScope:      BuildGoalScope(product),
		Inventory:      BuildInventory(ordered, agg),
		Results:        BuildResults(product, ordered, agg),
		DataQuality:    BuildDataQuality(ordered, agg),
		Interpretation: BuildInterpretation(ordered, agg),
		Compliance:     BuildCompliance(score),
	}
}

func BuildGoalScope(product Product) GoalScope {
	boundary := product.SystemBoundary
	if !boundary.Valid() {
		boundary = BoundaryCradleToGate
	}
	gs := GoalScope{
		Standard:       ReportStandard,
		FunctionalUnit: product.FunctionalUnit(),
		QuantityAmount: product.QuantityAmount,
		Unit:           product.Unit,
		SystemBoundary: boundary,
		IncludedStages: []LifecycleStage{},
		ExcludedStages: []LifecycleStage{},
	}
	for _, stage := range stageOrder {
		if boundary.IncludesStage(stage) {
			gs.IncludedStages = append(gs.IncludedStages, stage)
		} else {
			gs.ExcludedStages = append(gs.ExcludedStages, stage)
		}
	}
	return gs
}

func BuildInventory(components []Component, agg Aggregation) Inventory {
	inv := Inventory{
		TotalItems:       len(components),
		CountsByNodeType: make(map[NodeType]int, 4),
		Items:            make([]InventoryItem, 0, len(components)),
	}
	for _, t := range NodeTypes() {
		inv.CountsByNodeType[t] = 0
	}
	for _, c := range components {
		nt := c.NodeType
		if !nt.Valid() {
			nt = NodeComponent
		}
		inv.CountsByNodeType[nt]++
		inv.Items = append(inv.Items, InventoryItem{
			ID:                 c.ID,
			ParentComponentID:  c.ParentComponentID,
			Name:               c.Name,
			MaterialType:       c.MaterialType,
			NodeType:           nt,
			LifecycleStage:     stageOf(c),
			Quantity:           c.Quantity,
			Unit:               c.Unit,
			EmissionFactor:     c.EmissionFactor,
			Co2eKg:             impactOf(c, agg),
			Pending:            !c.HasEmissionFactor(),
			DataQualityRating:  c.DataQualityRating,
			VerificationStatus: c.VerificationStatus,
			GeographicOrigin:   c.GeographicOrigin,
			SupplierID:         c.SupplierID,
		})
	}
	return inv
}

func BuildResults(product Product, components []Component, agg Aggregation) Results {
	boundary := product.SystemBoundary
	if !boundary.Valid() {
		boundary = BoundaryCradleToGate
	}

	res := Results{
		TotalCo2eKg:      agg.GrandTotal,
		GHGApproximation: true,
	}
	if product.QuantityAmount > 0 {
		res.PerFunctionalUnit = agg.GrandTotal / product.QuantityAmount
	}

	for _, stage := range stageOrder {
		if boundary.IncludesStage(stage) {
			res.InScopeCo2eKg += agg.PerStageTotal[stage]
		}
	}
	for _, stage := range stageOrder {
		sr := StageResult{
			Stage:   stage,
			Co2eKg:  agg.PerStageTotal[stage],
			InScope: boundary.IncludesStage(stage),
		}
		if sr.InScope && res.InScopeCo2eKg > 0 {
			sr.PctOfTotal = sr.Co2eKg / res.InScopeCo2eKg * 100
		}
		res.StageBreakdown = append(res.StageBreakdown, sr)
	}

	for _, g := range ghgSplit {
		res.GHGBreakdown = append(res.GHGBreakdown, GHGShare{
			Gas:    g.gas,
			Share:  g.share,
			Co2eKg: agg.GrandTotal * g.share,
		})
	}

	res.AverageDQR = averageDQR(components)
	res.UncertaintyPct = UncertaintyPct(res.AverageDQR)
	u := res.UncertaintyPct / 100
	res.ConfidenceLower = agg.GrandTotal * (1 - u)
	res.ConfidenceUpper = agg.GrandTotal * (1 + u)
	return res
}

// UncertaintyPct maps the average data quality rating onto a fixed uncertainty band.
func UncertaintyPct(avgDQR float64) float64 {
	switch {
	case avgDQR >= 4:
		return 10
	case avgDQR >= 3:
		return 20
	default:
		return 35
	}
}

func BuildDataQuality(components []Component, agg Aggregation) DataQuality {
	dq := DataQuality{
		CompletenessPct: agg.DataCompletenessPct(),
		DataGaps:        []DataGap{},
	}
	var verified, primary int
	for _, c := range components {
		if c.IsVerified() {
			verified++
		}
		if c.IsPrimaryData() {
			primary++
		}
		if !c.HasEmissionFactor() {
			dq.DataGaps = append(dq.DataGaps, DataGap{ComponentID: c.ID, Name: c.Name, LifecycleStage: stageOf(c)})
		}
	}
	if n := len(components); n > 0 {
		dq.VerifiedShare = float64(verified) / float64(n)
		dq.PrimaryDataShare = float64(primary) / float64(n)
	}
	dq.OverallScore = (0.5*dq.VerifiedShare + 0.5*dq.PrimaryDataShare) * 100
	return dq
}

// BuildInterpretation ranks components with an emission factor by impact.
func BuildInterpretation(components []Component, agg Aggregation) Interpretation {
	candidates := make([]Component, 0, len(components))
	for _, c := range components {
		if c.HasEmissionFactor() {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := impactOf(candidates[i], agg), impactOf(candidates[j], agg)
		if a != b {
			return a > b
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > HotspotLimit {
		candidates = candidates[:HotspotLimit]
	}

	out := Interpretation{Hotspots: make([]Hotspot, 0, len(candidates))}
	for _, c := range candidates {
		h := Hotspot{
			ComponentID:    c.ID,
			Name:           c.Name,
			LifecycleStage: stageOf(c),
			Co2eKg:         impactOf(c, agg),
		}
		if agg.GrandTotal > 0 {
			h.PctOfTotal = h.Co2eKg / agg.GrandTotal * 100
		}
		out.Hotspots = append(out.Hotspots, h)
	}
	return out
}

func BuildCompliance(score float64) Compliance {
	status := CompliancePartial
	if score >= FullComplianceThreshold {
		status = ComplianceFull
	}
	return Compliance{
		Standard:            ReportStandard,
		AuditReadinessScore: score,
		Status:              status,
	}
}

func averageDQR(components []Component) float64 {
	if len(components) == 0 {
		return 0
	}
	var sum int
	for _, c := range components {
		sum += c.DataQualityRating
	}
	return float64(sum) / float64(len(components))
}

// impactOf prefers the aggregation's value so the report matches the totals it was built from.
func impactOf(c Component, agg Aggregation) float64 {
	if v, ok := agg.PerComponentImpact[c.ID]; ok {
		return v
	}
	return c.Impact()
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
