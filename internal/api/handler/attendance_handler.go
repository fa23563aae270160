package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/service"
	"villasun/backend/pkg/response"
)

// AttendanceHandler 签到、幸运转盘与签到审批 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
	wheelSvc      service.WheelService
	approvalSvc   service.ApprovalService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService, wheelSvc service.WheelService, approvalSvc service.ApprovalService) *AttendanceHandler {
	return &AttendanceHandler{
		attendanceSvc: attendanceSvc,
		wheelSvc:      wheelSvc,
		approvalSvc:   approvalSvc,
	}
}

// Eligibility 当前是否可以签到
// GET /api/v1/attendance/eligibility
func (h *AttendanceHandler) Eligibility(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Eligibility(c.Request.Context(), actor)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// CheckIn 签到
// POST /api/v1/attendance/check-in
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if !bindJSON(c, &req, 14001) {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.CheckIn(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.Created(c, result)
}

// Today 我的今日签到
// GET /api/v1/attendance/today
func (h *AttendanceHandler) Today(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.attendanceSvc.Today(c.Request.Context(), userID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, list)
}

// History 我的签到历史
// GET /api/v1/attendance/history?month=2026-03
func (h *AttendanceHandler) History(c *gin.Context) {
	var q dto.HistoryQuery
	if !bindQuery(c, &q, 14001) {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.attendanceSvc.History(c.Request.Context(), userID, q.Month)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, list)
}

// ManualCheckIn 管理员补录签到
// POST /api/v1/admin/attendance/manual
func (h *AttendanceHandler) ManualCheckIn(c *gin.Context) {
	var req dto.ManualCheckInRequest
	if !bindJSON(c, &req, 14001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.ManualCheckIn(c.Request.Context(), admin, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.Created(c, result)
}

// Checkout 管理员为员工签退
// POST /api/v1/admin/attendance/checkout
func (h *AttendanceHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if !bindJSON(c, &req, 14001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Checkout(c.Request.Context(), admin, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// ListActive 今日仍在岗的签到（管理员）
// GET /api/v1/admin/attendance/active
func (h *AttendanceHandler) ListActive(c *gin.Context) {
	list, err := h.attendanceSvc.ListActive(c.Request.Context())
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}
	response.OK(c, list)
}

// Spin 转动幸运转盘
// POST /api/v1/wheel/spin
func (h *AttendanceHandler) Spin(c *gin.Context) {
	var req dto.SpinRequest
	if !bindJSON(c, &req, 14001) {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.wheelSvc.Spin(c.Request.Context(), actor, req.CheckInID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// WheelStatus 今日转盘状态
// GET /api/v1/wheel/status
func (h *AttendanceHandler) WheelStatus(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.wheelSvc.Status(c.Request.Context(), userID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// ListPending 待审批签到（管理员）
// GET /api/v1/admin/approvals
func (h *AttendanceHandler) ListPending(c *gin.Context) {
	list, err := h.approvalSvc.ListPending(c.Request.Context())
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}
	response.OK(c, list)
}

// Approve 通过签到（管理员）
// POST /api/v1/admin/approvals/:id/approve
func (h *AttendanceHandler) Approve(c *gin.Context) {
	// 请求体可省略，省略时按预估分入账
	var req dto.ApproveCheckInRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, 14001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.approvalSvc.Approve(c.Request.Context(), admin, c.Param("id"), req.CustomPoints)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// Reject 驳回签到（管理员）
// POST /api/v1/admin/approvals/:id/reject
func (h *AttendanceHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if !bindJSON(c, &req, 14001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.approvalSvc.Reject(c.Request.Context(), admin, c.Param("id"), req.Reason)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotScheduled):
		response.BadRequest(c, 14002, "今日没有排班，无法签到")
	case errors.Is(err, service.ErrLateReasonRequired):
		response.BadRequest(c, 14003, "迟到签到必须填写原因")
	case errors.Is(err, service.ErrAlreadyCheckedIn):
		response.Conflict(c, 14004, "今日已签到")
	case errors.Is(err, service.ErrCheckInNotFound):
		response.NotFound(c, 14005, "签到记录不存在")
	case errors.Is(err, service.ErrAlreadyCheckedOut):
		response.Conflict(c, 14006, "该签到已签退")
	case errors.Is(err, service.ErrCheckoutBeforeCheckIn):
		response.BadRequest(c, 14007, "签退时间不能早于签到时间")
	case errors.Is(err, service.ErrInvalidCheckInTime):
		response.BadRequest(c, 14008, "签到日期或时间无效")
	case errors.Is(err, service.ErrCheckInNotToday):
		response.BadRequest(c, 14009, "只能使用今日的签到转动转盘")
	case errors.Is(err, service.ErrPointsOutOfRange):
		response.BadRequest(c, 14010, "自定义积分必须在 -5 到 5 之间")
	case errors.Is(err, service.ErrCheckInNotPending):
		response.Conflict(c, 14011, "签到已审批，不能重复操作")
	case errors.Is(err, service.ErrRejectReasonRequired):
		response.BadRequest(c, 14012, "驳回必须填写原因")
	case errors.Is(err, service.ErrCheckInRejected):
		response.Conflict(c, 14013, "签到已被驳回，不能转动转盘")
	default:
		handleCommonError(c, err)
	}
}
