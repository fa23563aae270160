package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/service"
	"villasun/backend/pkg/response"
)

// DepartureHandler 离岗申请 HTTP 处理器
type DepartureHandler struct {
	departureSvc service.DepartureService
}

// NewDepartureHandler 创建 DepartureHandler
func NewDepartureHandler(departureSvc service.DepartureService) *DepartureHandler {
	return &DepartureHandler{departureSvc: departureSvc}
}

// Create 提交离岗申请
// POST /api/v1/departures
func (h *DepartureHandler) Create(c *gin.Context) {
	var req dto.CreateDepartureRequest
	if !bindJSON(c, &req, 15001) {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.departureSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleDepartureError(c, err)
		return
	}

	response.Created(c, result)
}

// ListMine 我的离岗申请
// GET /api/v1/departures/my
func (h *DepartureHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.departureSvc.ListMine(c.Request.Context(), userID)
	if err != nil {
		h.handleDepartureError(c, err)
		return
	}

	response.OK(c, list)
}

// ListPending 待审批离岗申请（管理员）
// GET /api/v1/admin/departures
func (h *DepartureHandler) ListPending(c *gin.Context) {
	list, err := h.departureSvc.ListPending(c.Request.Context())
	if err != nil {
		h.handleDepartureError(c, err)
		return
	}
	response.OK(c, list)
}

// Approve 通过离岗申请（管理员）
// POST /api/v1/admin/departures/:id/approve
func (h *DepartureHandler) Approve(c *gin.Context) {
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.departureSvc.Approve(c.Request.Context(), admin, c.Param("id"))
	if err != nil {
		h.handleDepartureError(c, err)
		return
	}

	response.OK(c, result)
}

// Reject 驳回离岗申请（管理员）
// POST /api/v1/admin/departures/:id/reject
func (h *DepartureHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if !bindJSON(c, &req, 15001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.departureSvc.Reject(c.Request.Context(), admin, c.Param("id"), req.Reason)
	if err != nil {
		h.handleDepartureError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *DepartureHandler) handleDepartureError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoCheckInToday):
		response.BadRequest(c, 15002, "今日尚未签到，不能申请离岗")
	case errors.Is(err, service.ErrDepartureAlreadyPending):
		response.Conflict(c, 15003, "今日已有待审批的离岗申请")
	case errors.Is(err, service.ErrDepartureNotFound):
		response.NotFound(c, 15004, "离岗申请不存在")
	case errors.Is(err, service.ErrDepartureNotPending):
		response.Conflict(c, 15005, "离岗申请已处理")
	case errors.Is(err, service.ErrRejectReasonRequired):
		response.BadRequest(c, 15006, "驳回必须填写原因")
	default:
		handleCommonError(c, err)
	}
}
