package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/carbon"
	"github.com/bitfantasy/nimo-pcf/internal/metrics"
	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/observability"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"github.com/bitfantasy/nimo-pcf/internal/sse"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Footprint 产品碳足迹汇总
type Footprint struct {
	ProductID           string                `json:"product_id"`
	SystemBoundary      carbon.SystemBoundary `json:"system_boundary"`
	Aggregation         carbon.Aggregation    `json:"aggregation"`
	AuditReadinessScore float64               `json:"audit_readiness_score"`
	DataCompletenessPct float64               `json:"data_completeness_pct"`
	Status              carbon.ProductStatus  `json:"status"`
	CalculatedAt        time.Time             `json:"calculated_at"`
}

// TreeResult BOM树及异常
type TreeResult struct {
	Root      *carbon.TreeNode `json:"root"`
	Anomalies []carbon.Anomaly `json:"anomalies"`
	NodeCount int              `json:"node_count"`
}

// ChangeListResult 变更日志分页结果
type ChangeListResult struct {
	Items    []entity.ChangeLog `json:"items"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// PCFService 碳足迹核算编排：重算、BOM树、情景、报告
type PCFService struct {
	products   ProductStore
	components ComponentStore
	changes    ChangeLogStore
	scenarios  ScenarioStore
	cache      *FootprintCache
	archive    *ReportArchive
	hub        *sse.Hub
	logger     *zap.Logger
	recorder   *changeRecorder
	now        func() time.Time
}

// NewPCFService 创建核算服务
func NewPCFService(products ProductStore, components ComponentStore, changes ChangeLogStore, scenarios ScenarioStore,
	cache *FootprintCache, archive *ReportArchive, hub *sse.Hub, logger *zap.Logger) *PCFService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = sse.NewHub(logger)
	}
	s := &PCFService{
		products:   products,
		components: components,
		changes:    changes,
		scenarios:  scenarios,
		cache:      cache,
		archive:    archive,
		hub:        hub,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.recorder = &changeRecorder{sink: changes, logger: logger, now: func() time.Time { return s.now() }}
	return s
}

// snapshot 读取产品及其组件快照
func (s *PCFService) snapshot(ctx context.Context, productID string) (*entity.Product, []entity.Component, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrProductNotFound
		}
		return nil, nil, fmt.Errorf("find product: %w", err)
	}
	items, err := s.components.ListByProduct(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("list components: %w", err)
	}
	return product, items, nil
}

// Recompute 重算产品碳足迹并写回派生字段
func (s *PCFService) Recompute(ctx context.Context, productID, performedBy string) (fp *Footprint, err error) {
	ctx, span := observability.StartSpan(ctx, "pcf.recompute", productID)
	defer span.End()

	start := time.Now()
	boundary := "unknown"
	defer func() {
		metrics.RecordRecompute(boundary, err, time.Since(start))
		if err != nil {
			// 重算失败时缓存中的汇总已过期
			s.cache.Invalidate(ctx, productID)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	product, items, err := s.snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}
	boundary = product.SystemBoundary
	comps := entity.ComponentsToCarbon(items)

	if stale := carbon.StaleComponents(comps); len(stale) > 0 {
		s.repairStale(ctx, productID, stale)
	}

	_, anomalies := carbon.BuildTree(comps, product.ToCarbon())
	s.reportAnomalies(productID, anomalies)

	totals, agg := carbon.DeriveTotals(comps, s.now())
	if err := s.products.UpdateFields(ctx, productID, entity.TotalsFields(totals)); err != nil {
		return nil, fmt.Errorf("update product totals: %w", err)
	}
	s.recordTotalsChange(ctx, product, totals, performedBy)

	fp = &Footprint{
		ProductID:           productID,
		SystemBoundary:      carbon.SystemBoundary(product.SystemBoundary),
		Aggregation:         agg,
		AuditReadinessScore: totals.AuditReadinessScore,
		DataCompletenessPct: agg.DataCompletenessPct(),
		Status:              totals.Status,
		CalculatedAt:        totals.LastCalculatedDate,
	}
	span.SetAttributes(
		attribute.Int("pcf.component_count", agg.ComponentCount),
		attribute.Int("pcf.missing_count", agg.MissingCount),
		attribute.Float64("pcf.total_co2e_kg", agg.GrandTotal),
	)
	metrics.MissingFactors.WithLabelValues(productID).Set(float64(agg.MissingCount))

	s.cache.Set(ctx, fp)
	s.hub.PublishFootprintUpdate(sse.FootprintUpdate{
		ProductID:           productID,
		TotalCo2eKg:         agg.GrandTotal,
		Status:              string(totals.Status),
		AuditReadinessScore: totals.AuditReadinessScore,
		MissingCount:        agg.MissingCount,
		CalculatedAt:        totals.LastCalculatedDate,
	})

	s.logger.Debug("Footprint recomputed",
		zap.String("product_id", productID),
		zap.Float64("total_co2e_kg", agg.GrandTotal),
		zap.Int("missing", agg.MissingCount))
	return fp, nil
}

// repairStale 修正存储的 co2e_kg 与 数量×排放因子 不一致的组件
func (s *PCFService) repairStale(ctx context.Context, productID string, stale map[string]float64) {
	updates := make([]repository.ComponentUpdate, 0, len(stale))
	for id, v := range stale {
		updates = append(updates, repository.ComponentUpdate{
			ID:     id,
			Fields: map[string]interface{}{"co2e_kg": v},
		})
	}
	result, err := s.components.ApplyUpdates(ctx, productID, updates)
	if err != nil {
		s.logger.Error("Failed to repair stale co2e values", zap.String("product_id", productID), zap.Error(err))
		return
	}
	metrics.RecordBatch("repair", len(result.Succeeded), len(result.Failed))
	for _, f := range result.Failed {
		s.logger.Warn("Stale co2e repair failed",
			zap.String("product_id", productID),
			zap.String("component_id", f.ID),
			zap.String("error", f.Error))
	}
}

func (s *PCFService) reportAnomalies(productID string, anomalies []carbon.Anomaly) {
	for _, a := range anomalies {
		metrics.TreeAnomalies.WithLabelValues(string(a.Kind)).Inc()
		s.logger.Warn("Malformed BOM reference",
			zap.String("product_id", productID),
			zap.String("kind", string(a.Kind)),
			zap.String("component_id", a.ComponentID),
			zap.String("parent_id", a.ParentID))
	}
}

// recordTotalsChange 汇总或状态发生变化时记录产品变更
func (s *PCFService) recordTotalsChange(ctx context.Context, before *entity.Product, totals carbon.ProductTotals, performedBy string) {
	changes := entity.JSONB{}
	if before.TotalCo2eKg != totals.TotalCo2eKg {
		changes["total_co2e_kg"] = fieldChange(before.TotalCo2eKg, totals.TotalCo2eKg)
	}
	if before.Status != string(totals.Status) {
		changes["status"] = fieldChange(before.Status, string(totals.Status))
	}
	if before.AuditReadinessScore != totals.AuditReadinessScore {
		changes["audit_readiness_score"] = fieldChange(before.AuditReadinessScore, totals.AuditReadinessScore)
	}
	if len(changes) == 0 {
		return
	}
	s.recorder.record(ctx, entity.ActionUpdated, entity.EntityTypeProduct, before.ID, before.ID, performedBy, changes)
}

// GetFootprint 获取产品碳足迹汇总（优先读缓存）
func (s *PCFService) GetFootprint(ctx context.Context, productID string) (*Footprint, error) {
	if fp, ok := s.cache.Get(ctx, productID); ok {
		return fp, nil
	}

	product, items, err := s.snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}
	comps := entity.ComponentsToCarbon(items)
	agg := carbon.Aggregate(comps)
	calculatedAt := s.now()
	if product.LastCalculatedDate != nil {
		calculatedAt = *product.LastCalculatedDate
	}
	fp := &Footprint{
		ProductID:           productID,
		SystemBoundary:      carbon.SystemBoundary(product.SystemBoundary),
		Aggregation:         agg,
		AuditReadinessScore: carbon.ScoreAuditReadiness(comps),
		DataCompletenessPct: agg.DataCompletenessPct(),
		Status:              agg.Status(),
		CalculatedAt:        calculatedAt,
	}
	s.cache.Set(ctx, fp)
	return fp, nil
}

// GetTree 构建产品BOM树
func (s *PCFService) GetTree(ctx context.Context, productID string) (*TreeResult, error) {
	product, items, err := s.snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}
	root, anomalies := carbon.BuildTree(entity.ComponentsToCarbon(items), product.ToCarbon())
	s.reportAnomalies(productID, anomalies)
	if anomalies == nil {
		anomalies = []carbon.Anomaly{}
	}
	return &TreeResult{Root: root, Anomalies: anomalies, NodeCount: carbon.CountNodes(root)}, nil
}

// ListChanges 查询产品变更日志
func (s *PCFService) ListChanges(ctx context.Context, productID string, page, pageSize int) (*ChangeListResult, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	items, total, err := s.changes.ListByProduct(ctx, productID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	return &ChangeListResult{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListComponentChanges 查询单个组件的变更日志，组件删除后仍可查询
func (s *PCFService) ListComponentChanges(ctx context.Context, productID, componentID string, page, pageSize int) (*ChangeListResult, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	items, total, err := s.changes.ListByEntity(ctx, entity.EntityTypeComponent, componentID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list component changes: %w", err)
	}
	return &ChangeListResult{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Invalidate 清除产品缓存
func (s *PCFService) Invalidate(ctx context.Context, productID string) {
	s.cache.Invalidate(ctx, productID)
}
