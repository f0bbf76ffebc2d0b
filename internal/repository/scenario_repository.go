package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"gorm.io/gorm"
)

// ScenarioRepository 减排情景仓库
type ScenarioRepository struct {
	db *gorm.DB
}

func NewScenarioRepository(db *gorm.DB) *ScenarioRepository {
	return &ScenarioRepository{db: db}
}

// Create 保存情景
func (r *ScenarioRepository) Create(ctx context.Context, s *entity.Scenario) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

// FindByID 根据ID查找情景
func (r *ScenarioRepository) FindByID(ctx context.Context, id string) (*entity.Scenario, error) {
	var s entity.Scenario
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByProduct 获取产品的情景列表
func (r *ScenarioRepository) ListByProduct(ctx context.Context, productID string) ([]entity.Scenario, error) {
	var items []entity.Scenario
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// MarkApplied 标记情景已应用
func (r *ScenarioRepository) MarkApplied(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Scenario{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"applied": true, "applied_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
