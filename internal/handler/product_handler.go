package handler

import (
	"github.com/bitfantasy/nimo-pcf/internal/service"
	"github.com/gin-gonic/gin"
)

// ProductHandler 产品处理器
type ProductHandler struct {
	svc *service.ProductService
}

// NewProductHandler 创建产品处理器
func NewProductHandler(svc *service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// List GET /products
func (h *ProductHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	filters := map[string]interface{}{
		"keyword":  c.Query("keyword"),
		"category": c.Query("category"),
		"status":   c.Query("status"),
	}

	result, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, ListResponse{
		Items:      result.Items,
		Pagination: NewPagination(result.Page, result.PageSize, result.Total),
	})
}

// Create POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	product, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Created(c, product)
}

// Get GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, product)
}

// Update PUT /products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	product, err := h.svc.Update(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, product)
}

// Delete DELETE /products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, nil)
}
