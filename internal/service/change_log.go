package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"go.uber.org/zap"
)

// changeRecorder 统一记录变更日志，写入失败只记日志不影响主流程
type changeRecorder struct {
	sink   ChangeLogSink
	logger *zap.Logger
	now    func() time.Time
}

func (r *changeRecorder) record(ctx context.Context, action, entityType, entityID, productID, performedBy string, changes entity.JSONB) {
	if r == nil || r.sink == nil {
		return
	}
	log := &entity.ChangeLog{
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		ProductID:   productID,
		Changes:     changes,
		PerformedBy: performedBy,
		Timestamp:   r.now(),
	}
	if err := r.sink.Append(ctx, log); err != nil {
		r.logger.Error("Failed to append change log",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

// fieldChange 单字段变更
func fieldChange(from, to interface{}) map[string]interface{} {
	return map[string]interface{}{"from": from, "to": to}
}

// componentSnapshot 组件创建、删除时记录的字段
func componentSnapshot(c *entity.Component) entity.JSONB {
	snap := entity.JSONB{
		"name":                c.Name,
		"quantity":            c.Quantity,
		"unit":                c.Unit,
		"lifecycle_stage":     c.LifecycleStage,
		"node_type":           c.NodeType,
		"co2e_kg":             c.Co2eKg,
		"data_quality_rating": c.DataQualityRating,
		"verification_status": c.VerificationStatus,
	}
	if c.ParentComponentID != "" {
		snap["parent_component_id"] = c.ParentComponentID
	}
	if c.EmissionFactor != nil {
		snap["emission_factor"] = *c.EmissionFactor
	}
	return snap
}

// diffComponents 比较更新前后的组件
func diffComponents(before, after *entity.Component) entity.JSONB {
	changes := entity.JSONB{}
	add := func(field string, from, to interface{}) {
		if from != to {
			changes[field] = fieldChange(from, to)
		}
	}
	add("parent_component_id", before.ParentComponentID, after.ParentComponentID)
	add("name", before.Name, after.Name)
	add("material_type", before.MaterialType, after.MaterialType)
	add("quantity", before.Quantity, after.Quantity)
	add("unit", before.Unit, after.Unit)
	add("emission_factor", factorValue(before.EmissionFactor), factorValue(after.EmissionFactor))
	add("co2e_kg", before.Co2eKg, after.Co2eKg)
	add("lifecycle_stage", before.LifecycleStage, after.LifecycleStage)
	add("node_type", before.NodeType, after.NodeType)
	add("data_quality_rating", before.DataQualityRating, after.DataQualityRating)
	add("verification_status", before.VerificationStatus, after.VerificationStatus)
	add("geographic_origin", before.GeographicOrigin, after.GeographicOrigin)
	add("supplier_id", before.SupplierID, after.SupplierID)
	return changes
}

func factorValue(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
