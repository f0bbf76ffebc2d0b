package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"gorm.io/gorm"
)

// ChangeLogRepository 变更日志仓库
type ChangeLogRepository struct {
	db *gorm.DB
}

func NewChangeLogRepository(db *gorm.DB) *ChangeLogRepository {
	return &ChangeLogRepository{db: db}
}

// Append 追加变更日志
func (r *ChangeLogRepository) Append(ctx context.Context, log *entity.ChangeLog) error {
	if log.ID == "" {
		log.ID = NewID()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// ListByProduct 查询产品相关的变更日志
func (r *ChangeLogRepository) ListByProduct(ctx context.Context, productID string, page, pageSize int) ([]entity.ChangeLog, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&entity.ChangeLog{}).
		Where("product_id = ?", productID), page, pageSize)
}

// ListByEntity 查询某实体的变更日志
func (r *ChangeLogRepository) ListByEntity(ctx context.Context, entityType, entityID string, page, pageSize int) ([]entity.ChangeLog, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&entity.ChangeLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID), page, pageSize)
}

func (r *ChangeLogRepository) list(ctx context.Context, query *gorm.DB, page, pageSize int) ([]entity.ChangeLog, int64, error) {
	var items []entity.ChangeLog
	var total int64

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("timestamp DESC, id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}
