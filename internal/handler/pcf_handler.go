package handler

import (
	"github.com/bitfantasy/nimo-pcf/internal/middleware"
	"github.com/bitfantasy/nimo-pcf/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PCFHandler 碳足迹核算处理器：BOM树、汇总、情景、报告
type PCFHandler struct {
	svc    *service.PCFService
	logger *zap.Logger
}

// NewPCFHandler 创建核算处理器
func NewPCFHandler(svc *service.PCFService, logger *zap.Logger) *PCFHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PCFHandler{svc: svc, logger: logger}
}

// Tree GET /products/:id/tree
func (h *PCFHandler) Tree(c *gin.Context) {
	result, err := h.svc.GetTree(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// Footprint GET /products/:id/footprint
func (h *PCFHandler) Footprint(c *gin.Context) {
	fp, err := h.svc.GetFootprint(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, fp)
}

// Recalculate POST /products/:id/recalculate
func (h *PCFHandler) Recalculate(c *gin.Context) {
	fp, err := h.svc.Recompute(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, fp)
}

// ProjectScenario POST /products/:id/scenarios/project
func (h *PCFHandler) ProjectScenario(c *gin.Context) {
	var req service.ScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	// 保存情景需要写权限
	if req.Save && !canWrite(c) {
		Forbidden(c, "Permission denied: "+middleware.PermWrite)
		return
	}

	result, err := h.svc.ProjectScenario(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if result.Scenario != nil {
		Created(c, result)
		return
	}
	Success(c, result)
}

// ListScenarios GET /products/:id/scenarios
func (h *PCFHandler) ListScenarios(c *gin.Context) {
	items, err := h.svc.ListScenarios(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": items, "total": len(items)})
}

// ApplyScenario POST /products/:id/scenarios/apply
func (h *PCFHandler) ApplyScenario(c *gin.Context) {
	var req service.ApplyScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.ApplyScenario(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		if result != nil && result.Batch != nil {
			BatchFailed(c, err, result)
			return
		}
		HandleServiceError(c, err)
		return
	}
	if result.Batch != nil && result.Batch.Partial() {
		MultiStatus(c, result)
		return
	}
	Success(c, result)
}

// Report GET /products/:id/report
func (h *PCFHandler) Report(c *gin.Context) {
	doc, err := h.svc.AssembleReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, doc)
}

// ArchiveReport POST /products/:id/report/archive
func (h *PCFHandler) ArchiveReport(c *gin.Context) {
	result, err := h.svc.ArchiveReport(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, result)
}

// ExportInventory GET /products/:id/inventory/export
func (h *PCFHandler) ExportInventory(c *gin.Context) {
	f, filename, err := h.svc.ExportInventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("Write inventory workbook failed", zap.String("product_id", c.Param("id")), zap.Error(err))
	}
}

// Changes GET /products/:id/changes
func (h *PCFHandler) Changes(c *gin.Context) {
	page, pageSize := GetPagination(c)
	result, err := h.svc.ListChanges(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      result.Items,
		Pagination: NewPagination(result.Page, result.PageSize, result.Total),
	})
}

// ComponentChanges GET /products/:id/components/:componentId/changes
func (h *PCFHandler) ComponentChanges(c *gin.Context) {
	page, pageSize := GetPagination(c)
	result, err := h.svc.ListComponentChanges(c.Request.Context(), c.Param("id"), c.Param("componentId"), page, pageSize)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      result.Items,
		Pagination: NewPagination(result.Page, result.PageSize, result.Total),
	})
}

func canWrite(c *gin.Context) bool {
	perms, _ := c.Get(middleware.ContextPermissions)
	list, _ := perms.([]string)
	return middleware.HasPermission(list, middleware.PermWrite)
}
