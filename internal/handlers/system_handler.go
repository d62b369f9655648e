package handlers

import (
	"context"
	"time"

	"bhms/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SystemHandler 健康检查
type SystemHandler struct {
	db      *gorm.DB
	version string
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(db *gorm.DB, version string) *SystemHandler {
	return &SystemHandler{
		db:      db,
		version: version,
	}
}

// Health 检查数据库连接
func (h *SystemHandler) Health(c *gin.Context) {
	data := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "BHMS",
		"version":   h.version,
		"database":  "ok",
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		data["status"] = "degraded"
		data["database"] = "unavailable"
	}
	response.Success(c, data)
}

// Ping 存活探测
func (h *SystemHandler) Ping(c *gin.Context) {
	response.SuccessWithMessage(c, "pong", nil)
}
