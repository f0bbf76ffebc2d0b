package entity

import (
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/carbon"
)

// Component BOM组件（物料/工序/运输/能源）
type Component struct {
	ID                 string   `json:"id" gorm:"primaryKey;size:32"`
	ProductID          string   `json:"product_id" gorm:"size:32;not null;index"`
	ParentComponentID  string   `json:"parent_component_id" gorm:"size:32;index"`
	Name               string   `json:"name" gorm:"size:128;not null"`
	MaterialType       string   `json:"material_type" gorm:"size:64"`
	Quantity           float64  `json:"quantity" gorm:"not null"`
	Unit               string   `json:"unit" gorm:"size:16;not null;default:kg"`
	EmissionFactor     *float64 `json:"emission_factor"`
	Co2eKg             float64  `json:"co2e_kg" gorm:"not null;default:0"`
	LifecycleStage     string   `json:"lifecycle_stage" gorm:"size:32;not null;default:production"`
	NodeType           string   `json:"node_type" gorm:"size:16;not null;default:component"`
	DataQualityRating  int      `json:"data_quality_rating" gorm:"not null;default:3"`
	VerificationStatus string   `json:"verification_status" gorm:"size:20;not null;default:unverified"`
	GeographicOrigin   string   `json:"geographic_origin" gorm:"size:64"`
	SupplierID         string   `json:"supplier_id" gorm:"size:32"`

	// 情景应用后写入的预测值，不参与基线核算
	PredictedCo2eKg     *float64 `json:"predicted_co2e_kg"`
	PredictedScenarioID string   `json:"predicted_scenario_id" gorm:"size:32"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Component) TableName() string {
	return "pcf_components"
}

// ToCarbon 转换为核算引擎模型
func (c *Component) ToCarbon() carbon.Component {
	return carbon.Component{
		ID:                 c.ID,
		ProductID:          c.ProductID,
		ParentComponentID:  c.ParentComponentID,
		Name:               c.Name,
		MaterialType:       c.MaterialType,
		Quantity:           c.Quantity,
		Unit:               c.Unit,
		EmissionFactor:     c.EmissionFactor,
		Co2eKg:             c.Co2eKg,
		LifecycleStage:     carbon.LifecycleStage(c.LifecycleStage),
		NodeType:           carbon.NodeType(c.NodeType),
		DataQualityRating:  c.DataQualityRating,
		VerificationStatus: carbon.VerificationStatus(c.VerificationStatus),
		GeographicOrigin:   c.GeographicOrigin,
		SupplierID:         c.SupplierID,
		CreatedAt:          c.CreatedAt,
	}
}

// ApplyCarbon 将引擎模型中的可编辑字段写回实体
func (c *Component) ApplyCarbon(m carbon.Component) {
	c.ParentComponentID = m.ParentComponentID
	c.Name = m.Name
	c.MaterialType = m.MaterialType
	c.Quantity = m.Quantity
	c.Unit = m.Unit
	c.EmissionFactor = m.EmissionFactor
	c.Co2eKg = m.Co2eKg
	c.LifecycleStage = string(m.LifecycleStage)
	c.NodeType = string(m.NodeType)
	c.DataQualityRating = m.DataQualityRating
	c.VerificationStatus = string(m.VerificationStatus)
	c.GeographicOrigin = m.GeographicOrigin
	c.SupplierID = m.SupplierID
}

// ComponentsToCarbon 批量转换
func ComponentsToCarbon(items []Component) []carbon.Component {
	out := make([]carbon.Component, len(items))
	for i := range items {
		out[i] = items[i].ToCarbon()
	}
	return out
}
