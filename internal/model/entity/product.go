package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/carbon"
)

// JSONB 用于PostgreSQL JSONB类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source %T", value)
	}
	return json.Unmarshal(raw, j)
}

// Product 产品碳足迹核算对象
type Product struct {
	ID             string  `json:"id" gorm:"primaryKey;size:32"`
	Code           string  `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name           string  `json:"name" gorm:"size:128;not null"`
	Category       string  `json:"category" gorm:"size:64"`
	Description    string  `json:"description" gorm:"type:text"`
	QuantityAmount float64 `json:"quantity_amount" gorm:"not null"`
	Unit           string  `json:"unit" gorm:"size:16;not null;default:pcs"`
	SystemBoundary string  `json:"system_boundary" gorm:"size:32;not null;default:cradle_to_gate"`

	// 核算结果（由重算写入）
	TotalCo2eKg         float64    `json:"total_co2e_kg" gorm:"not null;default:0"`
	RawMaterialCo2e     float64    `json:"raw_material_co2e" gorm:"not null;default:0"`
	ProductionCo2e      float64    `json:"production_co2e" gorm:"not null;default:0"`
	DistributionCo2e    float64    `json:"distribution_co2e" gorm:"not null;default:0"`
	UsageCo2e           float64    `json:"usage_co2e" gorm:"not null;default:0"`
	EolCo2e             float64    `json:"eol_co2e" gorm:"not null;default:0"`
	Status              string     `json:"status" gorm:"size:16;not null;default:in_progress"`
	AuditReadinessScore float64    `json:"audit_readiness_score" gorm:"not null;default:0"`
	LastCalculatedDate  *time.Time `json:"last_calculated_date"`

	CreatedBy string    `json:"created_by" gorm:"size:32;not null"`
	UpdatedBy string    `json:"updated_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Components []Component `json:"components,omitempty" gorm:"foreignKey:ProductID"`
}

func (Product) TableName() string {
	return "pcf_products"
}

// ToCarbon 转换为核算引擎模型
func (p *Product) ToCarbon() carbon.Product {
	return carbon.Product{
		ID:                  p.ID,
		Name:                p.Name,
		QuantityAmount:      p.QuantityAmount,
		Unit:                p.Unit,
		SystemBoundary:      carbon.SystemBoundary(p.SystemBoundary),
		TotalCo2eKg:         p.TotalCo2eKg,
		RawMaterialCo2e:     p.RawMaterialCo2e,
		ProductionCo2e:      p.ProductionCo2e,
		DistributionCo2e:    p.DistributionCo2e,
		UsageCo2e:           p.UsageCo2e,
		EolCo2e:             p.EolCo2e,
		Status:              carbon.ProductStatus(p.Status),
		AuditReadinessScore: p.AuditReadinessScore,
		LastCalculatedDate:  p.LastCalculatedDate,
	}
}

// TotalsFields 将核算结果转换为更新字段
func TotalsFields(t carbon.ProductTotals) map[string]interface{} {
	return map[string]interface{}{
		"total_co2e_kg":         t.TotalCo2eKg,
		"raw_material_co2e":     t.RawMaterialCo2e,
		"production_co2e":       t.ProductionCo2e,
		"distribution_co2e":     t.DistributionCo2e,
		"usage_co2e":            t.UsageCo2e,
		"eol_co2e":              t.EolCo2e,
		"status":                string(t.Status),
		"audit_readiness_score": t.AuditReadinessScore,
		"last_calculated_date":  t.LastCalculatedDate,
	}
}

// ProductStatus 核算状态
const (
	ProductStatusInProgress = string(carbon.StatusInProgress)
	ProductStatusCompleted  = string(carbon.StatusCompleted)
)
