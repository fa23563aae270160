package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/service"
	"villasun/backend/pkg/response"
)

// ScheduleHandler 排班模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// UpsertWeek 保存某员工一周排班（管理员）
// PUT /api/v1/schedules/week
func (h *ScheduleHandler) UpsertWeek(c *gin.Context) {
	var req dto.UpsertWeekRequest
	if !bindJSON(c, &req, 13001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.scheduleSvc.UpsertWeek(c.Request.Context(), admin, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// PublishWeek 发布一周排班（管理员）
// POST /api/v1/schedules/publish
func (h *ScheduleHandler) PublishWeek(c *gin.Context) {
	var req dto.PublishWeekRequest
	if !bindJSON(c, &req, 13001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.scheduleSvc.PublishWeek(c.Request.Context(), admin, req.WeekStart)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// GetWeek 全员一周排班（管理员，含未发布）
// GET /api/v1/schedules/week?week_start=2026-03-02
func (h *ScheduleHandler) GetWeek(c *gin.Context) {
	var q dto.WeekQuery
	if !bindQuery(c, &q, 13001) {
		return
	}

	result, err := h.scheduleSvc.GetWeek(c.Request.Context(), q.WeekStart)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// MyWeek 我的一周排班（仅已发布）
// GET /api/v1/schedules/my?week_start=2026-03-02
func (h *ScheduleHandler) MyWeek(c *gin.Context) {
	var q dto.WeekQuery
	if !bindQuery(c, &q, 13001) {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.scheduleSvc.MyShifts(c.Request.Context(), userID, q.WeekStart)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// Today 我的今日班次
// GET /api/v1/schedules/today
func (h *ScheduleHandler) Today(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	shift, err := h.scheduleSvc.TodayShift(c.Request.Context(), userID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, shift)
}

// MyCalendar 下载我的排班日历
// GET /api/v1/schedules/my.ics
func (h *ScheduleHandler) MyCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	ics, err := h.scheduleSvc.MyCalendar(c.Request.Context(), userID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=villasun-shifts.ics")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidWeekStart):
		response.BadRequest(c, 13002, "周起始日必须是周一")
	case errors.Is(err, service.ErrNoShiftToday):
		response.NotFound(c, 13003, "今日无已发布排班")
	default:
		handleCommonError(c, err)
	}
}
