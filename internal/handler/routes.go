package handler

import (
	"net/http"

	"github.com/bitfantasy/nimo-pcf/internal/metrics"
	"github.com/bitfantasy/nimo-pcf/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册全部路由
func RegisterRoutes(r *gin.Engine, h *Handlers, jwtSecret string) {
	if h.Health == nil {
		h.Health = NewHealthHandler("dev", "unknown")
	}
	r.GET("/health/live", h.Health.Live)
	r.GET("/health/ready", h.Health.Ready)
	r.GET("/version", h.Health.Version)
	r.GET("/metrics", metrics.Handler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	v1 := r.Group("/api/v1")
	authorized := v1.Group("", middleware.JWTAuth(jwtSecret))
	read := middleware.RequirePermission(middleware.PermRead)
	write := middleware.RequirePermission(middleware.PermWrite)

	// 产品
	products := authorized.Group("/products")
	{
		products.GET("", read, h.Product.List)
		products.POST("", write, h.Product.Create)
		products.GET("/:id", read, h.Product.Get)
		products.PUT("/:id", write, h.Product.Update)
		products.DELETE("/:id", write, h.Product.Delete)

		// BOM组件
		products.GET("/:id/components", read, h.Component.List)
		products.POST("/:id/components", write, h.Component.Create)
		products.POST("/:id/components/batch", write, h.Component.BatchCreate)
		products.GET("/:id/components/:componentId", read, h.Component.Get)
		products.PUT("/:id/components/:componentId", write, h.Component.Update)
		products.DELETE("/:id/components/:componentId", write, h.Component.Delete)
		products.GET("/:id/components/:componentId/changes", read, h.PCF.ComponentChanges)

		// 核算
		products.GET("/:id/tree", read, h.PCF.Tree)
		products.GET("/:id/footprint", read, h.PCF.Footprint)
		products.POST("/:id/recalculate", write, h.PCF.Recalculate)
		products.GET("/:id/changes", read, h.PCF.Changes)

		// 情景
		products.GET("/:id/scenarios", read, h.PCF.ListScenarios)
		products.POST("/:id/scenarios/project", read, h.PCF.ProjectScenario)
		products.POST("/:id/scenarios/apply", write, h.PCF.ApplyScenario)

		// 报告
		products.GET("/:id/report", read, h.PCF.Report)
		products.POST("/:id/report/archive", write, h.PCF.ArchiveReport)
		products.GET("/:id/inventory/export", read, h.PCF.ExportInventory)
	}

	// SSE
	authorized.GET("/sse/events", read, h.SSE.Stream)
}
