package handler

import (
	"github.com/gin-gonic/gin"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/service"
	"villasun/backend/pkg/response"
)

// NotificationHandler 通知与管理日志 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// ListMine 我的通知
// GET /api/v1/notifications
func (h *NotificationHandler) ListMine(c *gin.Context) {
	var q dto.LimitQuery
	if !bindQuery(c, &q, 18001) {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.notificationSvc.ListMine(c.Request.Context(), userID, q.Limit)
	if err != nil {
		handleCommonError(c, err)
		return
	}

	response.OK(c, list)
}

// MarkRead 标记单条通知已读
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	h.markRead(c, c.Param("id"))
}

// MarkAllRead 标记全部通知已读
// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	h.markRead(c, "")
}

func (h *NotificationHandler) markRead(c *gin.Context, id string) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.notificationSvc.MarkRead(c.Request.Context(), userID, id)
	if err != nil {
		handleCommonError(c, err)
		return
	}

	response.OK(c, result)
}

// AdminLogs 管理操作日志（管理员）
// GET /api/v1/admin/logs
func (h *NotificationHandler) AdminLogs(c *gin.Context) {
	var page dto.PaginationRequest
	if !bindQuery(c, &page, 18001) {
		return
	}

	list, total, err := h.notificationSvc.AdminLogs(c.Request.Context(), &page)
	if err != nil {
		handleCommonError(c, err)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}
