package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
)

// ComponentStore 组件记录存取
type ComponentStore interface {
	ListByProduct(ctx context.Context, productID string) ([]entity.Component, error)
	FindByID(ctx context.Context, id string) (*entity.Component, error)
	Create(ctx context.Context, item *entity.Component) error
	Update(ctx context.Context, item *entity.Component) error
	DeleteSubtree(ctx context.Context, productID, id string) ([]string, error)
	BatchCreate(ctx context.Context, items []*entity.Component) (*repository.BatchResult, error)
	ApplyUpdates(ctx context.Context, productID string, updates []repository.ComponentUpdate) (*repository.BatchResult, error)
}

// ProductStore 产品记录存取
type ProductStore interface {
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	FindByCode(ctx context.Context, code string) (*entity.Product, error)
	Create(ctx context.Context, product *entity.Product) error
	Update(ctx context.Context, product *entity.Product) error
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.Product, int64, error)
}

// ChangeLogSink 变更日志写入
type ChangeLogSink interface {
	Append(ctx context.Context, log *entity.ChangeLog) error
}

// ChangeLogStore 变更日志读写
type ChangeLogStore interface {
	ChangeLogSink
	ListByProduct(ctx context.Context, productID string, page, pageSize int) ([]entity.ChangeLog, int64, error)
	ListByEntity(ctx context.Context, entityType, entityID string, page, pageSize int) ([]entity.ChangeLog, int64, error)
}

// ScenarioStore 情景记录存取
type ScenarioStore interface {
	Create(ctx context.Context, s *entity.Scenario) error
	FindByID(ctx context.Context, id string) (*entity.Scenario, error)
	ListByProduct(ctx context.Context, productID string) ([]entity.Scenario, error)
	MarkApplied(ctx context.Context, id string, at time.Time) error
}
