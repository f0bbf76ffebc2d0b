package entity

import (
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/carbon"
)

// Scenario 减排情景
type Scenario struct {
	ID                    string     `json:"id" gorm:"primaryKey;size:32"`
	ProductID             string     `json:"product_id" gorm:"size:32;not null;index"`
	Name                  string     `json:"name" gorm:"size:128"`
	TransportReductionPct float64    `json:"transport_reduction_pct" gorm:"not null;default:0"`
	MaterialEfficiencyPct float64    `json:"material_efficiency_pct" gorm:"not null;default:0"`
	EnergyMix             string     `json:"energy_mix" gorm:"size:16;not null;default:current"`
	EOLStrategy           string     `json:"eol_strategy" gorm:"size:16;not null;default:landfill"`
	BaselineTotal         float64    `json:"baseline_total"`
	ProjectedTotal        float64    `json:"projected_total"`
	ReductionPct          float64    `json:"reduction_pct"`
	Applied               bool       `json:"applied" gorm:"not null;default:false"`
	AppliedAt             *time.Time `json:"applied_at"`
	CreatedBy             string     `json:"created_by" gorm:"size:32"`
	CreatedAt             time.Time  `json:"created_at"`
}

func (Scenario) TableName() string {
	return "pcf_scenarios"
}

// Params 情景参数
func (s *Scenario) Params() carbon.ScenarioParams {
	return carbon.ScenarioParams{
		TransportReductionPct: s.TransportReductionPct,
		MaterialEfficiencyPct: s.MaterialEfficiencyPct,
		EnergyMix:             carbon.EnergyMix(s.EnergyMix),
		EOLStrategy:           carbon.EOLStrategy(s.EOLStrategy),
	}
}

// NewScenario 根据预测结果构建情景记录
func NewScenario(id, productID, name, createdBy string, res carbon.ScenarioResult, now time.Time) *Scenario {
	return &Scenario{
		ID:                    id,
		ProductID:             productID,
		Name:                  name,
		TransportReductionPct: res.Params.TransportReductionPct,
		MaterialEfficiencyPct: res.Params.MaterialEfficiencyPct,
		EnergyMix:             string(res.Params.EnergyMix),
		EOLStrategy:           string(res.Params.EOLStrategy),
		BaselineTotal:         res.BaselineTotal,
		ProjectedTotal:        res.ProjectedTotal,
		ReductionPct:          res.ReductionPct,
		CreatedBy:             createdBy,
		CreatedAt:             now,
	}
}
