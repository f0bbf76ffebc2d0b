package carbon

import (
	"sort"
	"time"
)

// Aggregation 排放汇总结果
type Aggregation struct {
	PerComponentImpact map[string]float64         `json:"per_component_impact"`
	PerStageTotal      map[LifecycleStage]float64 `json:"per_stage_total"`
	GrandTotal         float64                    `json:"grand_total"`
	// MissingCount is the number of components still pending an emission factor.
	MissingCount    int      `json:"missing_count"`
	MissingIDs      []string `json:"missing_ids"`
	ComponentCount  int      `json:"component_count"`
	WithFactorCount int      `json:"with_factor_count"`
	VerifiedCount   int      `json:"verified_count"`
}

// Aggregate rolls component impacts up into stage totals and a grand total.
// Components are visited in ascending id order and stages summed in their
// fixed order, so repeated calls on the same input are bit-identical.
func Aggregate(components []Component) Aggregation {
	ordered := sortedByID(components)

	agg := Aggregation{
		PerComponentImpact: make(map[string]float64, len(ordered)),
		PerStageTotal:      make(map[LifecycleStage]float64, len(stageOrder)),
		MissingIDs:         []string{},
		ComponentCount:     len(ordered),
	}
	for _, stage := range stageOrder {
		agg.PerStageTotal[stage] = 0
	}

	for _, c := range ordered {
		impact := c.Impact()
		agg.PerComponentImpact[c.ID] = impact
		agg.PerStageTotal[stageOf(c)] += impact
		if c.HasEmissionFactor() {
			agg.WithFactorCount++
		} else {
			agg.MissingCount++
			agg.MissingIDs = append(agg.MissingIDs, c.ID)
		}
		if c.IsVerified() {
			agg.VerifiedCount++
		}
	}

	agg.GrandTotal = sumStages(agg.PerStageTotal)
	return agg
}

// DataCompletenessPct is the share of components with an emission factor.
func (a Aggregation) DataCompletenessPct() float64 {
	return ratioPct(a.WithFactorCount, a.ComponentCount)
}

// Status is completed only when at least one component exists and none is pending.
func (a Aggregation) Status() ProductStatus {
	if a.ComponentCount > 0 && a.MissingCount == 0 {
		return StatusCompleted
	}
	return StatusInProgress
}

// ProductTotals holds the derived product fields refreshed on every recompute.
type ProductTotals struct {
	TotalCo2eKg         float64       `json:"total_co2e_kg"`
	RawMaterialCo2e     float64       `json:"raw_material_co2e"`
	ProductionCo2e      float64       `json:"production_co2e"`
	DistributionCo2e    float64       `json:"distribution_co2e"`
	UsageCo2e           float64       `json:"usage_co2e"`
	EolCo2e             float64       `json:"eol_co2e"`
	Status              ProductStatus `json:"status"`
	AuditReadinessScore float64       `json:"audit_readiness_score"`
	LastCalculatedDate  time.Time     `json:"last_calculated_date"`
}

// DeriveTotals computes the product's cached fields from the component snapshot.
func DeriveTotals(components []Component, now time.Time) (ProductTotals, Aggregation) {
	agg := Aggregate(components)
	return TotalsFrom(agg, ScoreAuditReadiness(components), now), agg
}

// TotalsFrom maps an aggregation and score onto the product's cached fields.
func TotalsFrom(agg Aggregation, score float64, now time.Time) ProductTotals {
	return ProductTotals{
		TotalCo2eKg:         agg.GrandTotal,
		RawMaterialCo2e:     agg.PerStageTotal[StageRawMaterialAcquisition],
		ProductionCo2e:      agg.PerStageTotal[StageProduction],
		DistributionCo2e:    agg.PerStageTotal[StageDistribution],
		UsageCo2e:           agg.PerStageTotal[StageUsage],
		EolCo2e:             agg.PerStageTotal[StageEndOfLife],
		Status:              agg.Status(),
		AuditReadinessScore: score,
		LastCalculatedDate:  now,
	}
}

// Apply copies the totals onto p.
func (t ProductTotals) Apply(p *Product) {
	p.TotalCo2eKg = t.TotalCo2eKg
	p.RawMaterialCo2e = t.RawMaterialCo2e
	p.ProductionCo2e = t.ProductionCo2e
	p.DistributionCo2e = t.DistributionCo2e
	p.UsageCo2e = t.UsageCo2e
	p.EolCo2e = t.EolCo2e
	p.Status = t.Status
	p.AuditReadinessScore = t.AuditReadinessScore
	at := t.LastCalculatedDate
	p.LastCalculatedDate = &at
}

// StaleComponents returns components whose stored Co2eKg no longer equals
// quantity × emission factor, with the corrected value.
func StaleComponents(components []Component) map[string]float64 {
	stale := make(map[string]float64)
	for _, c := range sortedByID(components) {
		if impact := c.Impact(); impact != c.Co2eKg {
			stale[c.ID] = impact
		}
	}
	return stale
}

func stageOf(c Component) LifecycleStage {
	if c.LifecycleStage.Valid() {
		return c.LifecycleStage
	}
	return StageProduction
}

func sumStages(totals map[LifecycleStage]float64) float64 {
	var sum float64
	for _, stage := range stageOrder {
		sum += totals[stage]
	}
	return sum
}

func sortedByID(components []Component) []Component {
	out := make([]Component, len(components))
	copy(out, components)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func ratioPct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
