package handler

import (
	"github.com/bitfantasy/nimo-pcf/internal/service"
	"github.com/gin-gonic/gin"
)

// ComponentHandler BOM组件处理器
type ComponentHandler struct {
	svc *service.ComponentService
}

// NewComponentHandler 创建组件处理器
func NewComponentHandler(svc *service.ComponentService) *ComponentHandler {
	return &ComponentHandler{svc: svc}
}

// List GET /products/:id/components
func (h *ComponentHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": items, "total": len(items)})
}

// Get GET /products/:id/components/:componentId
func (h *ComponentHandler) Get(c *gin.Context) {
	comp, err := h.svc.Get(c.Request.Context(), c.Param("id"), c.Param("componentId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, comp)
}

// Create POST /products/:id/components
func (h *ComponentHandler) Create(c *gin.Context) {
	var req service.ComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	comp, err := h.svc.Create(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, comp)
}

// BatchCreate POST /products/:id/components/batch
// 部分记录失败时返回 207，成功的记录已经提交
func (h *ComponentHandler) BatchCreate(c *gin.Context) {
	var req struct {
		Items []service.ComponentRequest `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		BadRequest(c, "items must not be empty")
		return
	}

	result, err := h.svc.BatchCreate(c.Request.Context(), c.Param("id"), GetUserID(c), req.Items)
	if err != nil {
		if result != nil {
			BatchFailed(c, err, result)
			return
		}
		HandleServiceError(c, err)
		return
	}
	if result.Partial() {
		MultiStatus(c, result)
		return
	}
	Created(c, result)
}

// Update PUT /products/:id/components/:componentId
func (h *ComponentHandler) Update(c *gin.Context) {
	var req service.UpdateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	comp, err := h.svc.Update(c.Request.Context(), c.Param("id"), c.Param("componentId"), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, comp)
}

// Delete DELETE /products/:id/components/:componentId
// 子组件一并删除
func (h *ComponentHandler) Delete(c *gin.Context) {
	ids, err := h.svc.Delete(c.Request.Context(), c.Param("id"), c.Param("componentId"), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"deleted": ids})
}
