package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/service"
	"villasun/backend/pkg/response"
)

// PointsHandler 积分与目标 HTTP 处理器
type PointsHandler struct {
	pointsSvc service.PointsService
	goalSvc   service.GoalService
}

// NewPointsHandler 创建 PointsHandler
func NewPointsHandler(pointsSvc service.PointsService, goalSvc service.GoalService) *PointsHandler {
	return &PointsHandler{pointsSvc: pointsSvc, goalSvc: goalSvc}
}

// History 积分流水；管理员可通过 user_id 查看他人
// GET /api/v1/points/history
func (h *PointsHandler) History(c *gin.Context) {
	var q dto.PointsHistoryQuery
	if !bindQuery(c, &q, 17001) {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.pointsSvc.History(c.Request.Context(), actor, q.UserID, q.Limit)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}

	response.OK(c, list)
}

// Leaderboard 积分排行榜
// GET /api/v1/points/leaderboard
func (h *PointsHandler) Leaderboard(c *gin.Context) {
	var q dto.LimitQuery
	if !bindQuery(c, &q, 17001) {
		return
	}

	list, err := h.pointsSvc.Leaderboard(c.Request.Context(), q.Limit)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}

	response.OK(c, list)
}

// Adjust 手动调整积分（管理员）
// POST /api/v1/admin/points/adjust
func (h *PointsHandler) Adjust(c *gin.Context) {
	var req dto.AdjustPointsRequest
	if !bindJSON(c, &req, 17001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.pointsSvc.Adjust(c.Request.Context(), admin, &req)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}

	response.Created(c, result)
}

// ResetAll 清零全员积分（管理员）
// POST /api/v1/admin/points/reset
func (h *PointsHandler) ResetAll(c *gin.Context) {
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.pointsSvc.ResetAll(c.Request.Context(), admin)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}

	response.OK(c, result)
}

// MyDailyGoal 我的今日目标进度
// GET /api/v1/goals/my?date=2026-03-02
func (h *PointsHandler) MyDailyGoal(c *gin.Context) {
	var q dto.GoalDateQuery
	if !bindQuery(c, &q, 17001) {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.goalSvc.MyDaily(c.Request.Context(), userID, q.Date)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}

	response.OK(c, result)
}

// DailyGoals 全员日目标（管理员）
// GET /api/v1/admin/goals/daily?date=2026-03-02
func (h *PointsHandler) DailyGoals(c *gin.Context) {
	var q dto.GoalDateQuery
	if !bindQuery(c, &q, 17001) {
		return
	}

	result, err := h.goalSvc.DailyOverview(c.Request.Context(), q.Date)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}

	response.OK(c, result)
}

// MonthlyGoals 全员月目标（管理员）
// GET /api/v1/admin/goals/monthly?month=2026-03
func (h *PointsHandler) MonthlyGoals(c *gin.Context) {
	var q dto.GoalMonthQuery
	if !bindQuery(c, &q, 17001) {
		return
	}

	result, err := h.goalSvc.MonthlyOverview(c.Request.Context(), q.Month)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}

	response.OK(c, result)
}

// RefreshGoals 重新计算日目标与月目标（管理员）
// POST /api/v1/admin/goals/refresh
func (h *PointsHandler) RefreshGoals(c *gin.Context) {
	var req dto.RefreshGoalsRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, 17001) {
		return
	}
	ctx := c.Request.Context()

	daily, err := h.goalSvc.RefreshDaily(ctx, req.Date)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}
	monthly, err := h.goalSvc.RefreshMonthly(ctx, req.Month)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}

	response.OK(c, gin.H{"daily_goals": daily, "monthly_goals": monthly})
}

func (h *PointsHandler) handlePointsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPointsReasonRequired):
		response.BadRequest(c, 17002, "积分调整必须填写原因")
	default:
		handleCommonError(c, err)
	}
}
