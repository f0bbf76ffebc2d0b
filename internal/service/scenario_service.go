package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-pcf/internal/carbon"
	"github.com/bitfantasy/nimo-pcf/internal/metrics"
	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/observability"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"go.opentelemetry.io/otel/attribute"
)

// ScenarioRequest 情景预测请求
type ScenarioRequest struct {
	Name                  string  `json:"name"`
	TransportReductionPct float64 `json:"transport_reduction_pct"`
	MaterialEfficiencyPct float64 `json:"material_efficiency_pct"`
	EnergyMix             string  `json:"energy_mix"`
	EOLStrategy           string  `json:"eol_strategy"`
	Save                  bool    `json:"save"`
}

// Params 转换为情景参数
func (r *ScenarioRequest) Params() carbon.ScenarioParams {
	return carbon.ScenarioParams{
		TransportReductionPct: r.TransportReductionPct,
		MaterialEfficiencyPct: r.MaterialEfficiencyPct,
		EnergyMix:             carbon.EnergyMix(r.EnergyMix),
		EOLStrategy:           carbon.EOLStrategy(r.EOLStrategy),
	}
}

// ApplyScenarioRequest 情景应用请求。ScenarioID 为空时按参数新建情景
type ApplyScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
	ScenarioRequest
}

// ScenarioProjection 情景预测结果
type ScenarioProjection struct {
	Result   carbon.ScenarioResult `json:"result"`
	Scenario *entity.Scenario      `json:"scenario,omitempty"`
}

// ScenarioApplyResult 情景应用结果
type ScenarioApplyResult struct {
	Scenario *entity.Scenario        `json:"scenario"`
	Result   carbon.ScenarioResult   `json:"result"`
	Batch    *repository.BatchResult `json:"batch"`
}

// ProjectScenario 预测情景减排效果，不修改任何基线数据
func (s *PCFService) ProjectScenario(ctx context.Context, productID, userID string, req *ScenarioRequest) (*ScenarioProjection, error) {
	ctx, span := observability.StartSpan(ctx, "pcf.scenario.project", productID)
	defer span.End()

	params := req.Params().Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	_, items, err := s.snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}
	result := carbon.ProjectScenario(entity.ComponentsToCarbon(items), params)
	span.SetAttributes(attribute.Float64("pcf.reduction_pct", result.ReductionPct))

	out := &ScenarioProjection{Result: result}
	if req.Save {
		scenario, err := s.saveScenario(ctx, productID, userID, req.Name, result)
		if err != nil {
			return nil, err
		}
		out.Scenario = scenario
	}
	return out, nil
}

func (s *PCFService) saveScenario(ctx context.Context, productID, userID, name string, result carbon.ScenarioResult) (*entity.Scenario, error) {
	scenario := entity.NewScenario(repository.NewID(), productID, name, userID, result, s.now())
	if err := s.scenarios.Create(ctx, scenario); err != nil {
		return nil, fmt.Errorf("save scenario: %w", err)
	}
	s.recorder.record(ctx, entity.ActionCreated, entity.EntityTypeScenario, scenario.ID, productID, userID, entity.JSONB{
		"name":                    scenario.Name,
		"transport_reduction_pct": scenario.TransportReductionPct,
		"material_efficiency_pct": scenario.MaterialEfficiencyPct,
		"energy_mix":              scenario.EnergyMix,
		"eol_strategy":            scenario.EOLStrategy,
		"projected_total":         scenario.ProjectedTotal,
	})
	return scenario, nil
}

// ListScenarios 获取已保存的情景
func (s *PCFService) ListScenarios(ctx context.Context, productID string) ([]entity.Scenario, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	items, err := s.scenarios.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	if items == nil {
		items = []entity.Scenario{}
	}
	return items, nil
}

// ApplyScenario 将情景预测值写回组件的 predicted_co2e_kg，基线字段保持不变
func (s *PCFService) ApplyScenario(ctx context.Context, productID, userID string, req *ApplyScenarioRequest) (*ScenarioApplyResult, error) {
	ctx, span := observability.StartSpan(ctx, "pcf.scenario.apply", productID)
	defer span.End()

	var params carbon.ScenarioParams
	var saved *entity.Scenario
	if req.ScenarioID != "" {
		sc, err := s.scenarios.FindByID(ctx, req.ScenarioID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrScenarioNotFound
			}
			return nil, fmt.Errorf("find scenario: %w", err)
		}
		if sc.ProductID != productID {
			return nil, ErrScenarioNotFound
		}
		saved = sc
		params = sc.Params()
	} else {
		params = req.Params()
	}
	params = params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	_, items, err := s.snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}
	result := carbon.ProjectScenario(entity.ComponentsToCarbon(items), params)

	if saved == nil {
		saved, err = s.saveScenario(ctx, productID, userID, req.Name, result)
		if err != nil {
			return nil, err
		}
	}

	updates := make([]repository.ComponentUpdate, 0, len(items))
	for _, c := range items {
		predicted, ok := result.PredictedImpact(c.ID)
		if !ok {
			continue
		}
		updates = append(updates, repository.ComponentUpdate{
			ID: c.ID,
			Fields: map[string]interface{}{
				"predicted_co2e_kg":     predicted,
				"predicted_scenario_id": saved.ID,
			},
		})
	}

	batch, err := s.components.ApplyUpdates(ctx, productID, updates)
	if err != nil {
		span.RecordError(err)
		if batch != nil {
			metrics.RecordBatch("scenario_apply", 0, len(batch.Failed))
		}
		return &ScenarioApplyResult{Scenario: saved, Result: result, Batch: batch}, fmt.Errorf("apply scenario: %w", err)
	}
	metrics.RecordBatch("scenario_apply", len(batch.Succeeded), len(batch.Failed))

	// 没有任何预测值写入时情景不算已应用
	if len(batch.Succeeded) > 0 {
		at := s.now()
		if err := s.scenarios.MarkApplied(ctx, saved.ID, at); err != nil {
			return nil, fmt.Errorf("mark scenario applied: %w", err)
		}
		saved.Applied = true
		saved.AppliedAt = &at
	}

	for _, id := range batch.Succeeded {
		predicted, _ := result.PredictedImpact(id)
		s.recorder.record(ctx, entity.ActionUpdated, entity.EntityTypeComponent, id, productID, userID, entity.JSONB{
			"predicted_co2e_kg":     predicted,
			"predicted_scenario_id": saved.ID,
		})
	}
	span.SetAttributes(
		attribute.Int("pcf.batch_succeeded", len(batch.Succeeded)),
		attribute.Int("pcf.batch_failed", len(batch.Failed)),
	)

	return &ScenarioApplyResult{Scenario: saved, Result: result, Batch: batch}, nil
}
