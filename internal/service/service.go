package service

import (
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"github.com/bitfantasy/nimo-pcf/internal/sse"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Product   *ProductService
	Component *ComponentService
	PCF       *PCFService
}

// NewServices 创建服务集合。cache 与 archive 可以为 nil
func NewServices(repos *repository.Repositories, cache *FootprintCache, archive *ReportArchive, hub *sse.Hub, logger *zap.Logger) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}
	pcf := NewPCFService(repos.Product, repos.Component, repos.ChangeLog, repos.Scenario, cache, archive, hub, logger.Named("pcf"))
	return &Services{
		Product:   NewProductService(repos.Product, pcf, logger.Named("product")),
		Component: NewComponentService(repos.Component, repos.Product, pcf, logger.Named("component")),
		PCF:       pcf,
	}
}
