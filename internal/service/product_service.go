package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bitfantasy/nimo-pcf/internal/carbon"
	"github.com/bitfantasy/nimo-pcf/internal/metrics"
	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"go.uber.org/zap"
)

// ProductService 产品服务
type ProductService struct {
	repo     ProductStore
	pcf      *PCFService
	recorder *changeRecorder
	logger   *zap.Logger
}

// NewProductService 创建产品服务
func NewProductService(repo ProductStore, pcf *PCFService, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{repo: repo, pcf: pcf, recorder: pcf.recorder, logger: logger}
}

// CreateProductRequest 创建产品请求
type CreateProductRequest struct {
	Code           string   `json:"code" binding:"required"`
	Name           string   `json:"name" binding:"required"`
	Category       string   `json:"category"`
	Description    string   `json:"description"`
	QuantityAmount *float64 `json:"quantity_amount"`
	Unit           string   `json:"unit"`
	SystemBoundary string   `json:"system_boundary"`
}

// UpdateProductRequest 更新产品请求
type UpdateProductRequest struct {
	Name           *string  `json:"name"`
	Category       *string  `json:"category"`
	Description    *string  `json:"description"`
	QuantityAmount *float64 `json:"quantity_amount"`
	Unit           *string  `json:"unit"`
	SystemBoundary *string  `json:"system_boundary"`
}

// ProductListResult 产品列表结果
type ProductListResult struct {
	Items      []entity.Product `json:"items"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// List 获取产品列表
func (s *ProductService) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) (*ProductListResult, error) {
	products, total, err := s.repo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []entity.Product{}
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &ProductListResult{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Get 获取产品详情
func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return product, nil
}

// Create 创建产品
func (s *ProductService) Create(ctx context.Context, userID string, req *CreateProductRequest) (*entity.Product, error) {
	code := strings.TrimSpace(req.Code)
	name := strings.TrimSpace(req.Name)
	if code == "" || name == "" {
		return nil, fmt.Errorf("%w: code and name are required", ErrInvalidProduct)
	}

	qty := 1.0
	if req.QuantityAmount != nil {
		qty = *req.QuantityAmount
	}
	if err := validateQuantity(qty); err != nil {
		return nil, err
	}
	boundary := carbon.SystemBoundary(req.SystemBoundary)
	if boundary == "" {
		boundary = carbon.BoundaryCradleToGate
	}
	if !boundary.Valid() {
		return nil, fmt.Errorf("%w: unknown system boundary %q", ErrInvalidProduct, req.SystemBoundary)
	}
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}

	if _, err := s.repo.FindByCode(ctx, code); err == nil {
		return nil, ErrDuplicateCode
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check product code: %w", err)
	}

	product := &entity.Product{
		ID:             repository.NewID(),
		Code:           code,
		Name:           name,
		Category:       req.Category,
		Description:    req.Description,
		QuantityAmount: qty,
		Unit:           unit,
		SystemBoundary: string(boundary),
		Status:         entity.ProductStatusInProgress,
		CreatedBy:      userID,
		UpdatedBy:      userID,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.recorder.record(ctx, entity.ActionCreated, entity.EntityTypeProduct, product.ID, product.ID, userID, entity.JSONB{
		"code":            product.Code,
		"name":            product.Name,
		"quantity_amount": product.QuantityAmount,
		"unit":            product.Unit,
		"system_boundary": product.SystemBoundary,
	})
	return product, nil
}

// Update 更新产品
func (s *ProductService) Update(ctx context.Context, id, userID string, req *UpdateProductRequest) (*entity.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := entity.JSONB{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidProduct)
		}
		if name != product.Name {
			changes["name"] = fieldChange(product.Name, name)
			product.Name = name
		}
	}
	if req.Category != nil && *req.Category != product.Category {
		changes["category"] = fieldChange(product.Category, *req.Category)
		product.Category = *req.Category
	}
	if req.Description != nil && *req.Description != product.Description {
		changes["description"] = fieldChange(product.Description, *req.Description)
		product.Description = *req.Description
	}
	if req.QuantityAmount != nil {
		if err := validateQuantity(*req.QuantityAmount); err != nil {
			return nil, err
		}
		if *req.QuantityAmount != product.QuantityAmount {
			changes["quantity_amount"] = fieldChange(product.QuantityAmount, *req.QuantityAmount)
			product.QuantityAmount = *req.QuantityAmount
		}
	}
	if req.Unit != nil && *req.Unit != "" && *req.Unit != product.Unit {
		changes["unit"] = fieldChange(product.Unit, *req.Unit)
		product.Unit = *req.Unit
	}
	if req.SystemBoundary != nil {
		b := carbon.SystemBoundary(*req.SystemBoundary)
		if !b.Valid() {
			return nil, fmt.Errorf("%w: unknown system boundary %q", ErrInvalidProduct, *req.SystemBoundary)
		}
		if string(b) != product.SystemBoundary {
			changes["system_boundary"] = fieldChange(product.SystemBoundary, string(b))
			product.SystemBoundary = string(b)
		}
	}

	if len(changes) == 0 {
		return product, nil
	}
	product.UpdatedBy = userID
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.recorder.record(ctx, entity.ActionUpdated, entity.EntityTypeProduct, product.ID, product.ID, userID, changes)
	s.pcf.Invalidate(ctx, product.ID)
	return product, nil
}

// Delete 删除产品及其组件
func (s *ProductService) Delete(ctx context.Context, id, userID string) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}

	s.recorder.record(ctx, entity.ActionDeleted, entity.EntityTypeProduct, id, id, userID, entity.JSONB{
		"code": product.Code,
		"name": product.Name,
	})
	s.pcf.Invalidate(ctx, id)
	metrics.ForgetProduct(id)
	s.logger.Info("Product deleted", zap.String("product_id", id), zap.String("user_id", userID))
	return nil
}

func validateQuantity(q float64) error {
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return fmt.Errorf("%w: quantity amount must be a non-negative number", ErrInvalidProduct)
	}
	return nil
}
