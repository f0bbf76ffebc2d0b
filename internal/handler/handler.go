package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/nimo-pcf/internal/carbon"
	"github.com/bitfantasy/nimo-pcf/internal/service"
	"github.com/bitfantasy/nimo-pcf/internal/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 处理器集合
type Handlers struct {
	Product   *ProductHandler
	Component *ComponentHandler
	PCF       *PCFHandler
	SSE       *SSEHandler
	Health    *HealthHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub, health *HealthHandler, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		Product:   NewProductHandler(svc.Product),
		Component: NewComponentHandler(svc.Component),
		PCF:       NewPCFHandler(svc.PCF, logger.Named("pcf")),
		SSE:       NewSSEHandler(hub),
		Health:    health,
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination 计算分页信息
func NewPagination(page, pageSize int, total int64) *Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &Pagination{Page: page, PageSize: pageSize, Total: int(total), TotalPages: totalPages}
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// MultiStatus 批量写入部分成功
func MultiStatus(c *gin.Context, data interface{}) {
	c.JSON(207, Response{
		Code:    20700,
		Message: "partially succeeded",
		Data:    data,
	})
}

// BatchFailed 批量写入整体失败，附带逐条失败明细
func BatchFailed(c *gin.Context, err error, data interface{}) {
	c.Error(err)
	c.JSON(500, Response{
		Code:    50000,
		Message: err.Error(),
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 资源冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// ServiceUnavailable 依赖未启用响应
func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, 50300, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// HandleServiceError 将服务层错误映射为响应码
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrComponentNotFound),
		errors.Is(err, service.ErrScenarioNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrParentNotFound),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, carbon.ErrInvalidComponent),
		errors.Is(err, carbon.ErrInvalidScenario):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrDuplicateCode):
		Conflict(c, err.Error())
	case errors.Is(err, service.ErrArchiveDisabled):
		ServiceUnavailable(c, err.Error())
	default:
		c.Error(err)
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
