package handler

import (
	"github.com/gin-gonic/gin"

	"villasun/backend/internal/service"
	"villasun/backend/pkg/response"
)

// MaintenanceHandler 运维操作 HTTP 处理器
type MaintenanceHandler struct {
	maintenanceSvc service.MaintenanceService
}

// NewMaintenanceHandler 创建 MaintenanceHandler
func NewMaintenanceHandler(maintenanceSvc service.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenanceSvc: maintenanceSvc}
}

// DailyReset 手动触发每日重置（管理员）
// POST /api/v1/admin/maintenance/daily-reset
func (h *MaintenanceHandler) DailyReset(c *gin.Context) {
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.maintenanceSvc.DailyReset(c.Request.Context(), &admin)
	if err != nil {
		handleCommonError(c, err)
		return
	}

	response.OK(c, result)
}
