package entity

import "time"

// ChangeLog 变更审计日志（只追加）
type ChangeLog struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Action      string    `json:"action" gorm:"size:16;not null"`
	EntityType  string    `json:"entity_type" gorm:"size:32;not null;index:idx_change_entity"`
	EntityID    string    `json:"entity_id" gorm:"size:32;not null;index:idx_change_entity"`
	ProductID   string    `json:"product_id" gorm:"size:32;index"`
	Changes     JSONB     `json:"changes" gorm:"type:jsonb"`
	PerformedBy string    `json:"performed_by" gorm:"size:32"`
	Timestamp   time.Time `json:"timestamp" gorm:"not null;index"`
}

func (ChangeLog) TableName() string {
	return "pcf_change_logs"
}

// ChangeAction 变更动作
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// EntityType 被审计实体类型
const (
	EntityTypeProduct   = "product"
	EntityTypeComponent = "component"
	EntityTypeScenario  = "scenario"
)
