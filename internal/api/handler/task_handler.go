package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/service"
	"villasun/backend/pkg/response"
)

// TaskHandler 任务与清单 HTTP 处理器
type TaskHandler struct {
	taskSvc      service.TaskService
	checklistSvc service.ChecklistService
}

// NewTaskHandler 创建 TaskHandler
func NewTaskHandler(taskSvc service.TaskService, checklistSvc service.ChecklistService) *TaskHandler {
	return &TaskHandler{taskSvc: taskSvc, checklistSvc: checklistSvc}
}

// ── 员工：任务 ──

// ListMine 我的任务
// GET /api/v1/tasks/my
func (h *TaskHandler) ListMine(c *gin.Context) {
	var q dto.TaskDateQuery
	if !bindQuery(c, &q, 19001) {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.taskSvc.ListMine(c.Request.Context(), actor, q.Date)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, list)
}

// Claim 认领未分配的任务
// POST /api/v1/tasks/:id/claim
func (h *TaskHandler) Claim(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.taskSvc.Claim(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, result)
}

// ToggleItem 勾选任务子项
// POST /api/v1/tasks/:id/items/toggle
func (h *TaskHandler) ToggleItem(c *gin.Context) {
	var req dto.ToggleItemRequest
	if !bindJSON(c, &req, 19001) {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.taskSvc.ToggleItem(c.Request.Context(), actor, c.Param("id"), req.ItemID)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, result)
}

// Submit 提交任务待审核
// POST /api/v1/tasks/:id/submit
func (h *TaskHandler) Submit(c *gin.Context) {
	var req dto.SubmitTaskRequest
	if !bindJSON(c, &req, 19001) {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.taskSvc.Submit(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, result)
}

// ── 员工：清单 ──

// ListMyChecklists 我的当日清单
// GET /api/v1/checklists/my
func (h *TaskHandler) ListMyChecklists(c *gin.Context) {
	var q dto.TaskDateQuery
	if !bindQuery(c, &q, 19001) {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.checklistSvc.ListMine(c.Request.Context(), actor, q.Date)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, list)
}

// ToggleChecklistItem 勾选清单子项
// POST /api/v1/checklists/:id/items/toggle
func (h *TaskHandler) ToggleChecklistItem(c *gin.Context) {
	var req dto.ToggleItemRequest
	if !bindJSON(c, &req, 19001) {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.checklistSvc.ToggleItem(c.Request.Context(), actor, c.Param("id"), req.ItemID)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, result)
}

// SubmitChecklist 提交清单实例
// POST /api/v1/checklists/:id/submit
func (h *TaskHandler) SubmitChecklist(c *gin.Context) {
	var req dto.SubmitChecklistRequest
	if !bindJSON(c, &req, 19001) {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.checklistSvc.Submit(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, result)
}

// ── 管理端：任务 ──

// Create 创建任务（管理员）
// POST /api/v1/admin/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if !bindJSON(c, &req, 19001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.taskSvc.Create(c.Request.Context(), admin, &req)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.Created(c, result)
}

// List 任务列表（管理员）
// GET /api/v1/admin/tasks
func (h *TaskHandler) List(c *gin.Context) {
	var q dto.TaskQuery
	if !bindQuery(c, &q, 19001) {
		return
	}

	list, err := h.taskSvc.List(c.Request.Context(), q.Status)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, list)
}

// Review 逐项审核任务（管理员）
// POST /api/v1/admin/tasks/:id/review
func (h *TaskHandler) Review(c *gin.Context) {
	var req dto.ReviewTaskRequest
	if !bindJSON(c, &req, 19001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.taskSvc.Review(c.Request.Context(), admin, c.Param("id"), &req)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 删除任务（管理员）
// DELETE /api/v1/admin/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.taskSvc.Delete(c.Request.Context(), admin, c.Param("id")); err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, nil)
}

// ── 管理端：清单 ──

// CreateChecklist 创建清单模板（管理员）
// POST /api/v1/admin/checklists
func (h *TaskHandler) CreateChecklist(c *gin.Context) {
	var req dto.CreateChecklistRequest
	if !bindJSON(c, &req, 19001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.checklistSvc.Create(c.Request.Context(), admin, &req)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.Created(c, result)
}

// ListChecklists 清单模板列表（管理员）
// GET /api/v1/admin/checklists
func (h *TaskHandler) ListChecklists(c *gin.Context) {
	list, err := h.checklistSvc.List(c.Request.Context())
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, list)
}

// DeactivateChecklist 停用清单模板（管理员）
// DELETE /api/v1/admin/checklists/:id
func (h *TaskHandler) DeactivateChecklist(c *gin.Context) {
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.checklistSvc.Deactivate(c.Request.Context(), admin, c.Param("id")); err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, nil)
}

// GenerateChecklists 立即生成当日清单实例（管理员）
// POST /api/v1/admin/checklists/generate
func (h *TaskHandler) GenerateChecklists(c *gin.Context) {
	var q dto.TaskDateQuery
	if !bindQuery(c, &q, 19001) {
		return
	}

	result, err := h.checklistSvc.Generate(c.Request.Context(), q.Date)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, result)
}

// ListChecklistReviews 待审核清单实例（管理员）
// GET /api/v1/admin/checklists/review
func (h *TaskHandler) ListChecklistReviews(c *gin.Context) {
	list, err := h.checklistSvc.ListForReview(c.Request.Context())
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, list)
}

// ReviewChecklist 审核清单实例（管理员）
// POST /api/v1/admin/checklists/instances/:id/review
func (h *TaskHandler) ReviewChecklist(c *gin.Context) {
	var req dto.ReviewChecklistRequest
	if !bindJSON(c, &req, 19001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.checklistSvc.Review(c.Request.Context(), admin, c.Param("id"), &req)
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *TaskHandler) handleTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, 19002, "任务不存在")
	case errors.Is(err, service.ErrTaskAlreadyClaimed):
		response.Conflict(c, 19003, "任务已被他人认领")
	case errors.Is(err, service.ErrTaskNotEditable):
		response.Conflict(c, 19004, "任务当前状态不可修改")
	case errors.Is(err, service.ErrTaskItemNotFound):
		response.BadRequest(c, 19005, "子项不存在")
	case errors.Is(err, service.ErrTaskItemsIncomplete), errors.Is(err, service.ErrChecklistItemsIncomplete):
		response.BadRequest(c, 19006, "仍有未完成的子项")
	case errors.Is(err, service.ErrTaskNotPendingReview):
		response.Conflict(c, 19007, "任务不在待审核状态")
	case errors.Is(err, service.ErrRejectionDetailsRequired):
		response.BadRequest(c, 19008, "驳回需指定子项或填写说明")
	case errors.Is(err, service.ErrInvalidHelper):
		response.BadRequest(c, 19009, "协助者无效")
	case errors.Is(err, service.ErrChecklistNotFound):
		response.NotFound(c, 19010, "清单不存在")
	case errors.Is(err, service.ErrChecklistNotPending):
		response.Conflict(c, 19011, "清单当前状态不可修改")
	case errors.Is(err, service.ErrChecklistNotSubmitted):
		response.Conflict(c, 19012, "清单未提交审核")
	case errors.Is(err, service.ErrRejectReasonRequired):
		response.BadRequest(c, 19013, "驳回必须填写原因")
	default:
		handleCommonError(c, err)
	}
}
