package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"gorm.io/gorm"
)

// ComponentRepository BOM组件仓库
type ComponentRepository struct {
	db *gorm.DB
}

// NewComponentRepository 创建组件仓库
func NewComponentRepository(db *gorm.DB) *ComponentRepository {
	return &ComponentRepository{db: db}
}

// ComponentUpdate 单条组件字段更新
type ComponentUpdate struct {
	ID     string
	Fields map[string]interface{}
}

// ListByProduct 获取产品下的全部组件（按创建顺序）
func (r *ComponentRepository) ListByProduct(ctx context.Context, productID string) ([]entity.Component, error) {
	var items []entity.Component
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

// FindByID 根据ID查找组件
func (r *ComponentRepository) FindByID(ctx context.Context, id string) (*entity.Component, error) {
	var item entity.Component
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Create 创建组件
func (r *ComponentRepository) Create(ctx context.Context, item *entity.Component) error {
	if item.ID == "" {
		item.ID = NewID()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// Update 更新组件
func (r *ComponentRepository) Update(ctx context.Context, item *entity.Component) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteSubtree 删除组件及其所有下级组件，返回被删除的ID
func (r *ComponentRepository) DeleteSubtree(ctx context.Context, productID, id string) ([]string, error) {
	var deleted []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var links []struct {
			ID                string
			ParentComponentID string
		}
		if err := tx.Model(&entity.Component{}).
			Select("id, parent_component_id").
			Where("product_id = ?", productID).
			Scan(&links).Error; err != nil {
			return err
		}

		children := make(map[string][]string)
		found := false
		for _, l := range links {
			if l.ID == id {
				found = true
			}
			if l.ParentComponentID != "" {
				children[l.ParentComponentID] = append(children[l.ParentComponentID], l.ID)
			}
		}
		if !found {
			return ErrNotFound
		}

		// 广度遍历，visited 防止环引用导致死循环
		visited := map[string]bool{id: true}
		queue := []string{id}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			deleted = append(deleted, cur)
			for _, child := range children[cur] {
				if !visited[child] {
					visited[child] = true
					queue = append(queue, child)
				}
			}
		}

		return tx.Where("product_id = ? AND id IN ?", productID, deleted).
			Delete(&entity.Component{}).Error
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// BatchCreate 批量创建组件，单条失败不影响其他记录
func (r *ComponentRepository) BatchCreate(ctx context.Context, items []*entity.Component) (*BatchResult, error) {
	result := newBatchResult()
	ids := make([]string, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = NewID()
		}
		ids[i] = item.ID
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 上级是本批次中写入失败的记录时，下级不再写入
		failed := make(map[string]bool)
		for i, item := range items {
			if item.ParentComponentID != "" && failed[item.ParentComponentID] {
				failed[item.ID] = true
				result.fail(i, item.ID, ErrParentFailed)
				continue
			}
			sp := fmt.Sprintf("component_create_%d", i)
			if err := tx.SavePoint(sp).Error; err != nil {
				return err
			}
			if err := tx.Create(item).Error; err != nil {
				if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
					return rbErr
				}
				failed[item.ID] = true
				result.fail(i, item.ID, err)
				continue
			}
			delete(failed, item.ID)
			result.succeed(i, item.ID)
		}
		return nil
	})
	if err != nil {
		result.failAll(ids, err)
		return result, err
	}
	return result, nil
}

// ApplyUpdates 批量更新组件字段，单条失败回滚到该条的保存点
func (r *ComponentRepository) ApplyUpdates(ctx context.Context, productID string, updates []ComponentUpdate) (*BatchResult, error) {
	result := newBatchResult()
	ids := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, u := range updates {
			sp := fmt.Sprintf("component_update_%d", i)
			if err := tx.SavePoint(sp).Error; err != nil {
				return err
			}
			if err := applyOne(tx, productID, u); err != nil {
				if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
					return rbErr
				}
				result.fail(i, u.ID, err)
				continue
			}
			result.succeed(i, u.ID)
		}
		return nil
	})
	if err != nil {
		result.failAll(ids, err)
		return result, err
	}
	return result, nil
}

func applyOne(tx *gorm.DB, productID string, u ComponentUpdate) error {
	if len(u.Fields) == 0 {
		return errors.New("no fields to update")
	}
	res := tx.Model(&entity.Component{}).
		Where("id = ? AND product_id = ?", u.ID, productID).
		Updates(u.Fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByProduct 统计产品组件数量
func (r *ComponentRepository) CountByProduct(ctx context.Context, productID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Component{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count, err
}
