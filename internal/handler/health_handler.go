package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Checker 依赖健康检查
type Checker func(ctx context.Context) error

// HealthHandler 健康检查与版本信息
type HealthHandler struct {
	version   string
	buildTime string
	checks    map[string]Checker
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(version, buildTime string) *HealthHandler {
	return &HealthHandler{version: version, buildTime: buildTime, checks: map[string]Checker{}}
}

// AddCheck 注册就绪检查项
func (h *HealthHandler) AddCheck(name string, check Checker) {
	h.checks[name] = check
}

// Live GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "unavailable"
	}
	c.JSON(status, gin.H{"status": overall, "checks": results})
}

// Version GET /version
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    h.version,
		"build_time": h.buildTime,
	})
}
