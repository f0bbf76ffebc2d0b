package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bitfantasy/nimo-pcf/internal/carbon"
	"github.com/bitfantasy/nimo-pcf/internal/metrics"
	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"go.uber.org/zap"
)

// ComponentService BOM组件服务。每次写入后触发产品重算
type ComponentService struct {
	repo     ComponentStore
	products ProductStore
	pcf      *PCFService
	recorder *changeRecorder
	logger   *zap.Logger
}

// NewComponentService 创建组件服务
func NewComponentService(repo ComponentStore, products ProductStore, pcf *PCFService, logger *zap.Logger) *ComponentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComponentService{repo: repo, products: products, pcf: pcf, recorder: pcf.recorder, logger: logger}
}

// ComponentRequest 创建组件请求
type ComponentRequest struct {
	// Ref 批量创建时的客户端引用，同批次后续记录可用它作为 parent_component_id
	Ref                string   `json:"ref"`
	ParentComponentID  string   `json:"parent_component_id"`
	Name               string   `json:"name"`
	MaterialType       string   `json:"material_type"`
	Quantity           float64  `json:"quantity"`
	Unit               string   `json:"unit"`
	EmissionFactor     *float64 `json:"emission_factor"`
	LifecycleStage     string   `json:"lifecycle_stage"`
	NodeType           string   `json:"node_type"`
	DataQualityRating  int      `json:"data_quality_rating"`
	VerificationStatus string   `json:"verification_status"`
	GeographicOrigin   string   `json:"geographic_origin"`
	SupplierID         string   `json:"supplier_id"`
}

func (r *ComponentRequest) toCarbon(id, productID string) carbon.Component {
	return carbon.Component{
		ID:                 id,
		ProductID:          productID,
		ParentComponentID:  r.ParentComponentID,
		Name:               r.Name,
		MaterialType:       r.MaterialType,
		Quantity:           r.Quantity,
		Unit:               r.Unit,
		EmissionFactor:     r.EmissionFactor,
		LifecycleStage:     carbon.LifecycleStage(r.LifecycleStage),
		NodeType:           carbon.NodeType(r.NodeType),
		DataQualityRating:  r.DataQualityRating,
		VerificationStatus: carbon.VerificationStatus(r.VerificationStatus),
		GeographicOrigin:   r.GeographicOrigin,
		SupplierID:         r.SupplierID,
	}
}

// UpdateComponentRequest 更新组件请求，未提供的字段保持不变
type UpdateComponentRequest struct {
	ParentComponentID   *string  `json:"parent_component_id"`
	Name                *string  `json:"name"`
	MaterialType        *string  `json:"material_type"`
	Quantity            *float64 `json:"quantity"`
	Unit                *string  `json:"unit"`
	EmissionFactor      *float64 `json:"emission_factor"`
	ClearEmissionFactor bool     `json:"clear_emission_factor"`
	LifecycleStage      *string  `json:"lifecycle_stage"`
	NodeType            *string  `json:"node_type"`
	DataQualityRating   *int     `json:"data_quality_rating"`
	VerificationStatus  *string  `json:"verification_status"`
	GeographicOrigin    *string  `json:"geographic_origin"`
	SupplierID          *string  `json:"supplier_id"`
}

func (r *UpdateComponentRequest) applyTo(c carbon.Component) carbon.Component {
	if r.ParentComponentID != nil {
		c.ParentComponentID = *r.ParentComponentID
	}
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.MaterialType != nil {
		c.MaterialType = *r.MaterialType
	}
	if r.Quantity != nil {
		c.Quantity = *r.Quantity
	}
	if r.Unit != nil {
		c.Unit = *r.Unit
	}
	if r.ClearEmissionFactor {
		c.EmissionFactor = nil
	} else if r.EmissionFactor != nil {
		c.EmissionFactor = carbon.Float(*r.EmissionFactor)
	}
	if r.LifecycleStage != nil {
		c.LifecycleStage = carbon.LifecycleStage(*r.LifecycleStage)
	}
	if r.NodeType != nil {
		c.NodeType = carbon.NodeType(*r.NodeType)
	}
	if r.DataQualityRating != nil {
		c.DataQualityRating = *r.DataQualityRating
	}
	if r.VerificationStatus != nil {
		c.VerificationStatus = carbon.VerificationStatus(*r.VerificationStatus)
	}
	if r.GeographicOrigin != nil {
		c.GeographicOrigin = *r.GeographicOrigin
	}
	if r.SupplierID != nil {
		c.SupplierID = *r.SupplierID
	}
	return c
}

func (s *ComponentService) ensureProduct(ctx context.Context, productID string) error {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("find product: %w", err)
	}
	return nil
}

// findInProduct 查找属于该产品的组件
func (s *ComponentService) findInProduct(ctx context.Context, productID, id string) (*entity.Component, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrComponentNotFound
		}
		return nil, fmt.Errorf("find component: %w", err)
	}
	if item.ProductID != productID {
		return nil, ErrComponentNotFound
	}
	return item, nil
}

func (s *ComponentService) checkParent(ctx context.Context, productID, parentID string) error {
	if parentID == "" {
		return nil
	}
	if _, err := s.findInProduct(ctx, productID, parentID); err != nil {
		if errors.Is(err, ErrComponentNotFound) {
			return ErrParentNotFound
		}
		return err
	}
	return nil
}

// checkNoCycle 拒绝把组件挂到自己的下级之下
func (s *ComponentService) checkNoCycle(ctx context.Context, productID, id, parentID string) error {
	if parentID == "" {
		return nil
	}
	items, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("list components: %w", err)
	}
	parentOf := make(map[string]string, len(items))
	for _, it := range items {
		parentOf[it.ID] = it.ParentComponentID
	}
	cur := parentID
	for steps := 0; cur != "" && steps <= len(items); steps++ {
		if cur == id {
			return fmt.Errorf("%w: parent %s is a descendant of %s", carbon.ErrInvalidComponent, parentID, id)
		}
		cur = parentOf[cur]
	}
	return nil
}

// recompute 写入后的重算，失败只记录日志，下次重算会修正
func (s *ComponentService) recompute(ctx context.Context, productID, userID string) {
	if _, err := s.pcf.Recompute(ctx, productID, userID); err != nil {
		s.logger.Error("Recompute after component change failed", zap.String("product_id", productID), zap.Error(err))
	}
}

// List 获取产品组件列表
func (s *ComponentService) List(ctx context.Context, productID string) ([]entity.Component, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	if items == nil {
		items = []entity.Component{}
	}
	return items, nil
}

// Get 获取组件详情
func (s *ComponentService) Get(ctx context.Context, productID, id string) (*entity.Component, error) {
	return s.findInProduct(ctx, productID, id)
}

// Create 创建组件
func (s *ComponentService) Create(ctx context.Context, productID, userID string, req *ComponentRequest) (*entity.Component, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}

	id := repository.NewID()
	c := carbon.NormalizeComponent(req.toCarbon(id, productID))
	if err := carbon.ValidateComponent(c); err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, productID, c.ParentComponentID); err != nil {
		return nil, err
	}

	item := &entity.Component{ID: id, ProductID: productID, CreatedBy: userID}
	item.ApplyCarbon(c)
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create component: %w", err)
	}

	s.recorder.record(ctx, entity.ActionCreated, entity.EntityTypeComponent, item.ID, productID, userID, componentSnapshot(item))
	s.recompute(ctx, productID, userID)
	return item, nil
}

// Update 更新组件
func (s *ComponentService) Update(ctx context.Context, productID, id, userID string, req *UpdateComponentRequest) (*entity.Component, error) {
	item, err := s.findInProduct(ctx, productID, id)
	if err != nil {
		return nil, err
	}
	before := *item

	c := carbon.NormalizeComponent(req.applyTo(item.ToCarbon()))
	if err := carbon.ValidateComponent(c); err != nil {
		return nil, err
	}
	if c.ParentComponentID != before.ParentComponentID {
		if err := s.checkParent(ctx, productID, c.ParentComponentID); err != nil {
			return nil, err
		}
		if err := s.checkNoCycle(ctx, productID, id, c.ParentComponentID); err != nil {
			return nil, err
		}
	}

	item.ApplyCarbon(c)
	changes := diffComponents(&before, item)
	if len(changes) == 0 {
		return item, nil
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update component: %w", err)
	}

	s.recorder.record(ctx, entity.ActionUpdated, entity.EntityTypeComponent, item.ID, productID, userID, changes)
	s.recompute(ctx, productID, userID)
	return item, nil
}

// Delete 删除组件及其下级组件，返回被删除的ID
func (s *ComponentService) Delete(ctx context.Context, productID, id, userID string) ([]string, error) {
	if _, err := s.findInProduct(ctx, productID, id); err != nil {
		return nil, err
	}
	deleted, err := s.repo.DeleteSubtree(ctx, productID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrComponentNotFound
		}
		return nil, fmt.Errorf("delete component: %w", err)
	}

	for _, d := range deleted {
		changes := entity.JSONB{}
		if d != id {
			changes["deleted_with"] = id
		}
		s.recorder.record(ctx, entity.ActionDeleted, entity.EntityTypeComponent, d, productID, userID, changes)
	}
	s.recompute(ctx, productID, userID)
	return deleted, nil
}

// BatchCreate 批量创建组件。校验失败与写入失败的记录都在结果中返回，其余记录照常提交
func (s *ComponentService) BatchCreate(ctx context.Context, productID, userID string, reqs []ComponentRequest) (*repository.BatchResult, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	known := make(map[string]bool, len(existing)+len(reqs))
	for _, e := range existing {
		known[e.ID] = true
	}

	// 上级组件可以是已有组件，也可以是同批次中排在前面的记录的 ref
	refs := make(map[string]string, len(reqs))
	var invalid []repository.BatchFailure
	var valid []*entity.Component
	var validIdx []int
	for i := range reqs {
		req := reqs[i]
		fail := func(err error) {
			invalid = append(invalid, repository.BatchFailure{Index: i, Ref: req.Ref, Error: err.Error()})
		}
		if req.Ref != "" {
			if _, dup := refs[req.Ref]; dup {
				fail(fmt.Errorf("%w: duplicate ref %q in batch", carbon.ErrInvalidComponent, req.Ref))
				continue
			}
		}
		if id, ok := refs[req.ParentComponentID]; ok {
			req.ParentComponentID = id
		}

		id := repository.NewID()
		c := carbon.NormalizeComponent(req.toCarbon(id, productID))
		if err := carbon.ValidateComponent(c); err != nil {
			fail(err)
			continue
		}
		if c.ParentComponentID != "" && !known[c.ParentComponentID] {
			fail(ErrParentNotFound)
			continue
		}
		item := &entity.Component{ID: id, ProductID: productID, CreatedBy: userID}
		item.ApplyCarbon(c)
		valid = append(valid, item)
		validIdx = append(validIdx, i)
		known[id] = true
		if req.Ref != "" {
			refs[req.Ref] = id
		}
	}

	result, err := s.repo.BatchCreate(ctx, valid)
	if result != nil {
		// 仓库返回的位置是有效记录中的位置，换算回请求中的位置
		for j := range result.Items {
			k := validIdx[result.Items[j].Index]
			result.Items[j].Index = k
			result.Items[j].Ref = reqs[k].Ref
		}
		for j := range result.Failed {
			k := validIdx[result.Failed[j].Index]
			result.Failed[j].Index = k
			result.Failed[j].Ref = reqs[k].Ref
		}
		result.Failed = append(result.Failed, invalid...)
		sort.SliceStable(result.Failed, func(a, b int) bool { return result.Failed[a].Index < result.Failed[b].Index })
	}
	if err != nil {
		return result, fmt.Errorf("batch create components: %w", err)
	}
	metrics.RecordBatch("component_create", len(result.Succeeded), len(result.Failed))

	byID := make(map[string]*entity.Component, len(valid))
	for _, v := range valid {
		byID[v.ID] = v
	}
	for _, id := range result.Succeeded {
		s.recorder.record(ctx, entity.ActionCreated, entity.EntityTypeComponent, id, productID, userID, componentSnapshot(byID[id]))
	}
	if len(result.Succeeded) > 0 {
		s.recompute(ctx, productID, userID)
	}
	return result, nil
}
