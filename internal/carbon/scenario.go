package carbon

import (
	"fmt"
	"math"
)

// EnergyMix 能源结构
type EnergyMix string

const (
	EnergyCurrent   EnergyMix = "current"
	EnergyRenewable EnergyMix = "renewable"
	// EnergyMixed is accepted but carries no multiplier of its own.
	EnergyMixed EnergyMix = "mixed"
)

// EOLStrategy 报废处理策略
type EOLStrategy string

const (
	EOLLandfill     EOLStrategy = "landfill"
	EOLRecycling    EOLStrategy = "recycling"
	EOLIncineration EOLStrategy = "incineration"
)

// Heuristic multipliers, not derived from a process model.
const (
	RenewableEnergyFactor = 0.6
	RecyclingCredit       = 0.9
	IncinerationCredit    = 0.95
	LandfillCredit        = 1.0
)

// ScenarioParams 情景参数
type ScenarioParams struct {
	TransportReductionPct float64     `json:"transport_reduction_pct"`
	MaterialEfficiencyPct float64     `json:"material_efficiency_pct"`
	EnergyMix             EnergyMix   `json:"energy_mix"`
	EOLStrategy           EOLStrategy `json:"eol_strategy"`
}

// DefaultScenarioParams is the identity scenario: projecting it reproduces the baseline.
func DefaultScenarioParams() ScenarioParams {
	return ScenarioParams{EnergyMix: EnergyCurrent, EOLStrategy: EOLLandfill}
}

// Normalize fills empty enum fields with their identity values.
func (p ScenarioParams) Normalize() ScenarioParams {
	if p.EnergyMix == "" {
		p.EnergyMix = EnergyCurrent
	}
	if p.EOLStrategy == "" {
		p.EOLStrategy = EOLLandfill
	}
	return p
}

func (p ScenarioParams) Validate() error {
	if !validPct(p.TransportReductionPct) {
		return fmt.Errorf("%w: transport reduction must be within 0-100, got %v", ErrInvalidScenario, p.TransportReductionPct)
	}
	if !validPct(p.MaterialEfficiencyPct) {
		return fmt.Errorf("%w: material efficiency must be within 0-100, got %v", ErrInvalidScenario, p.MaterialEfficiencyPct)
	}
	switch p.EnergyMix {
	case EnergyCurrent, EnergyRenewable, EnergyMixed:
	default:
		return fmt.Errorf("%w: unknown energy mix %q", ErrInvalidScenario, p.EnergyMix)
	}
	switch p.EOLStrategy {
	case EOLLandfill, EOLRecycling, EOLIncineration:
	default:
		return fmt.Errorf("%w: unknown end-of-life strategy %q", ErrInvalidScenario, p.EOLStrategy)
	}
	return nil
}

func validPct(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

// EOLMultiplier is the end-of-life credit applied once to the projected sum.
func (p ScenarioParams) EOLMultiplier() float64 {
	switch p.EOLStrategy {
	case EOLRecycling:
		return RecyclingCredit
	case EOLIncineration:
		return IncinerationCredit
	default:
		return LandfillCredit
	}
}

// ComponentMultiplier is the product of every per-component rule that applies to c.
func (p ScenarioParams) ComponentMultiplier(c Component) float64 {
	m := 1.0
	stage := stageOf(c)
	if c.NodeType == NodeTransport || stage == StageDistribution {
		m *= 1 - p.TransportReductionPct/100
	}
	if c.NodeType == NodeComponent || stage == StageRawMaterialAcquisition {
		m *= 1 - p.MaterialEfficiencyPct/100
	}
	if (c.NodeType == NodeEnergy || stage == StageProduction) && p.EnergyMix == EnergyRenewable {
		m *= RenewableEnergyFactor
	}
	return m
}

// ScenarioResult 情景预测结果
type ScenarioResult struct {
	Params            ScenarioParams             `json:"params"`
	BaselineTotal     float64                    `json:"baseline_total"`
	ProjectedTotal    float64                    `json:"projected_total"`
	ReductionPct      float64                    `json:"reduction_pct"`
	EOLMultiplier     float64                    `json:"eol_multiplier"`
	PerComponent      map[string]float64         `json:"per_component"`
	PerStageProjected map[LifecycleStage]float64 `json:"per_stage_projected"`
}

// ProjectScenario projects the product total under params without touching
// the input. Adjusted impacts are summed the same way Aggregate sums, so the
// default parameters reproduce the baseline exactly.
func ProjectScenario(components []Component, params ScenarioParams) ScenarioResult {
	params = params.Normalize()
	baseline := Aggregate(components)

	res := ScenarioResult{
		Params:            params,
		BaselineTotal:     baseline.GrandTotal,
		EOLMultiplier:     params.EOLMultiplier(),
		PerComponent:      make(map[string]float64, len(components)),
		PerStageProjected: make(map[LifecycleStage]float64, len(stageOrder)),
	}
	for _, stage := range stageOrder {
		res.PerStageProjected[stage] = 0
	}

	for _, c := range sortedByID(components) {
		adjusted := c.Impact() * params.ComponentMultiplier(c)
		res.PerComponent[c.ID] = adjusted
		res.PerStageProjected[stageOf(c)] += adjusted
	}

	res.ProjectedTotal = sumStages(res.PerStageProjected) * res.EOLMultiplier
	if res.BaselineTotal != 0 {
		res.ReductionPct = (res.BaselineTotal - res.ProjectedTotal) / res.BaselineTotal * 100
	}
	return res
}

// PredictedImpact is the per-component value written back when a scenario is applied.
func (r ScenarioResult) PredictedImpact(componentID string) (float64, bool) {
	v, ok := r.PerComponent[componentID]
	if !ok {
		return 0, false
	}
	return v * r.EOLMultiplier, true
}
