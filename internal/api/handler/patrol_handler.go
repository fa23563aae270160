package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/service"
	"villasun/backend/pkg/ict"
	"villasun/backend/pkg/response"
)

// PatrolHandler 巡逻模块 HTTP 处理器
type PatrolHandler struct {
	patrolSvc service.PatrolService
}

// NewPatrolHandler 创建 PatrolHandler
func NewPatrolHandler(patrolSvc service.PatrolService) *PatrolHandler {
	return &PatrolHandler{patrolSvc: patrolSvc}
}

// Today 我的今日巡逻
// GET /api/v1/patrol/today
func (h *PatrolHandler) Today(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.patrolSvc.Today(c.Request.Context(), userID)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.OK(c, result)
}

// Scan 扫描巡逻点位二维码
// POST /api/v1/patrol/scan
func (h *PatrolHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if !bindJSON(c, &req, 16001) {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.patrolSvc.Scan(c.Request.Context(), actor, &req)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.OK(c, result)
}

// TestScan 模拟扫描，不写入数据（管理员）
// POST /api/v1/admin/patrol/test-scan
func (h *PatrolHandler) TestScan(c *gin.Context) {
	var req dto.TestScanRequest
	if !bindJSON(c, &req, 16001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.patrolSvc.TestScan(c.Request.Context(), admin, &req)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.OK(c, result)
}

// ListLocations 巡逻点位列表
// GET /api/v1/patrol/locations
func (h *PatrolHandler) ListLocations(c *gin.Context) {
	list, err := h.patrolSvc.ListLocations(c.Request.Context())
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}
	response.OK(c, list)
}

// CreateLocation 新增巡逻点位（管理员）
// POST /api/v1/admin/patrol/locations
func (h *PatrolHandler) CreateLocation(c *gin.Context) {
	var req dto.CreateLocationRequest
	if !bindJSON(c, &req, 16001) {
		return
	}

	result, err := h.patrolSvc.CreateLocation(c.Request.Context(), &req)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.Created(c, result)
}

// SetSchedule 指派某日某班次的巡逻员工（管理员）
// PUT /api/v1/admin/patrol/schedules
func (h *PatrolHandler) SetSchedule(c *gin.Context) {
	var req dto.SetPatrolScheduleRequest
	if !bindJSON(c, &req, 16001) {
		return
	}

	result, err := h.patrolSvc.SetSchedule(c.Request.Context(), &req)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.OK(c, result)
}

// ListSchedules 某日巡逻排班（管理员）
// GET /api/v1/admin/patrol/schedules?date=2026-03-02
func (h *PatrolHandler) ListSchedules(c *gin.Context) {
	var q dto.PatrolDateQuery
	if !bindQuery(c, &q, 16001) {
		return
	}

	list, err := h.patrolSvc.ListSchedules(c.Request.Context(), q.Date)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.OK(c, list)
}

// ListRounds 某日巡逻轮次（管理员）
// GET /api/v1/admin/patrol/rounds?date=2026-03-02
func (h *PatrolHandler) ListRounds(c *gin.Context) {
	var q dto.PatrolDateQuery
	if !bindQuery(c, &q, 16001) {
		return
	}

	list, err := h.patrolSvc.ListRounds(c.Request.Context(), q.Date)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.OK(c, list)
}

// EnsureRounds 为某日生成巡逻轮次，已存在的轮次不重复创建（管理员）
// POST /api/v1/admin/patrol/rounds?date=2026-03-02
func (h *PatrolHandler) EnsureRounds(c *gin.Context) {
	var q dto.PatrolDateQuery
	if !bindQuery(c, &q, 16001) {
		return
	}
	if q.Date == "" {
		q.Date = ict.DateString(time.Now())
	}

	created, err := h.patrolSvc.EnsureRounds(c.Request.Context(), q.Date)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.OK(c, gin.H{"date": q.Date, "created": created})
}

func (h *PatrolHandler) handlePatrolError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownLocation):
		response.NotFound(c, 16002, "无法识别的巡逻二维码")
	case errors.Is(err, service.ErrNoActiveRound):
		response.BadRequest(c, 16003, "当前没有进行中的巡逻轮次")
	case errors.Is(err, service.ErrLocationAlreadyScanned):
		response.Conflict(c, 16004, "该点位本轮已扫描")
	case errors.Is(err, service.ErrQRCodeExists):
		response.Conflict(c, 16005, "二维码已被其他点位使用")
	default:
		handleCommonError(c, err)
	}
}
