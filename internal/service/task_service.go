package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
	"villasun/backend/pkg/ict"
)

var (
	ErrTaskNotFound             = errors.New("任务不存在")
	ErrTaskAlreadyClaimed       = errors.New("任务已被他人认领")
	ErrTaskNotEditable          = errors.New("任务当前状态不可修改")
	ErrTaskItemNotFound         = errors.New("任务子项不存在")
	ErrTaskItemsIncomplete      = errors.New("仍有未完成的子项")
	ErrTaskNotPendingReview     = errors.New("任务不在待审核状态")
	ErrRejectionDetailsRequired = errors.New("驳回需指定子项或填写说明")
	ErrInvalidHelper            = errors.New("协助者无效")
)

// 驳回未填写说明时的默认原因
const defaultTaskRejectReason = "Bitte Aufgabe wiederholen"

// TaskService 任务业务接口
type TaskService interface {
	Create(ctx context.Context, admin Actor, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	List(ctx context.Context, status string) ([]dto.TaskResponse, error)
	// ListMine 当日可见任务：本人负责、本人协助或未分配
	ListMine(ctx context.Context, actor Actor, date string) ([]dto.TaskResponse, error)
	Claim(ctx context.Context, actor Actor, id string) (*dto.TaskResponse, error)
	ToggleItem(ctx context.Context, actor Actor, id, itemID string) (*dto.TaskResponse, error)
	Submit(ctx context.Context, actor Actor, id string, req *dto.SubmitTaskRequest) (*dto.TaskResponse, error)
	// Review 逐项审核：通过时每位参与者获得 points_value + bonus，驳回时重开被驳回的子项
	Review(ctx context.Context, admin Actor, id string, req *dto.ReviewTaskRequest) (*dto.TaskReviewResponse, error)
	Delete(ctx context.Context, admin Actor, id string) error
	// ArchiveCompleted 归档 before 之前完成的任务
	ArchiveCompleted(ctx context.Context, before time.Time) (int64, error)
}

type taskService struct {
	repo   *repository.Repository
	ledger *ledger
	now    Clock
	logger *zap.Logger
}

// NewTaskService 创建 TaskService 实例
func NewTaskService(repo *repository.Repository, dailyAchievable int, logger *zap.Logger) TaskService {
	return &taskService{
		repo:   repo,
		ledger: &ledger{goals: &goalCalculator{dailyAchievable: dailyAchievable}, now: time.Now},
		now:    time.Now,
		logger: logger,
	}
}

func newTaskItems(texts []string) model.TaskItems {
	items := make(model.TaskItems, 0, len(texts))
	for _, text := range texts {
		if text = sanitize(text); text == "" {
			continue
		}
		items = append(items, model.TaskItem{ID: uuid.NewString(), Text: text})
	}
	return items
}

func toTaskItemResponses(items model.TaskItems) []dto.TaskItemResponse {
	list := make([]dto.TaskItemResponse, 0, len(items))
	for _, it := range items {
		list = append(list, dto.TaskItemResponse{
			ID:            it.ID,
			Text:          it.Text,
			IsCompleted:   it.IsCompleted,
			CompletedByID: it.CompletedByID,
			CompletedAt:   it.CompletedAt,
			AdminRejected: it.AdminRejected,
		})
	}
	return list
}

func toTaskResponse(t *model.Task) dto.TaskResponse {
	resp := dto.TaskResponse{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Category:        t.Category,
		AssignedTo:      t.AssignedTo,
		HelperID:        t.HelperID,
		Status:          t.Status,
		DueDate:         t.DueDate.String(),
		PointsValue:     t.PointsValue,
		BonusPoints:     t.BonusPoints,
		Items:           toTaskItemResponses(t.Items),
		PhotoURLs:       append([]string{}, t.PhotoURLs...),
		AdminPhotos:     append([]string{}, t.AdminPhotos...),
		CompletionNotes: t.CompletionNotes,
		AdminNotes:      t.AdminNotes,
		RejectionReason: t.RejectionReason,
		ReopenedCount:   t.ReopenedCount,
		ReviewedBy:      t.ReviewedBy,
		ReviewedAt:      t.ReviewedAt,
		CompletedAt:     t.CompletedAt,
		CreatedAt:       t.CreatedAt,
	}
	if t.Assignee != nil {
		resp.AssigneeName = t.Assignee.FullName
	}
	return resp
}

func toTaskResponses(tasks []model.Task) []dto.TaskResponse {
	list := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		list = append(list, toTaskResponse(&tasks[i]))
	}
	return list
}

// ────────────────────── Create ──────────────────────

func (s *taskService) Create(ctx context.Context, admin Actor, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	t := &model.Task{
		Title:       sanitize(req.Title),
		Description: sanitize(req.Description),
		Category:    req.Category,
		Status:      model.TaskStatusPending,
		DueDate:     model.Date(req.DueDate),
		PointsValue: req.PointsValue,
		Items:       newTaskItems(req.Items),
		CreatedBy:   &admin.UserID,
	}
	if t.Category == "" {
		t.Category = model.TaskCategoryExtras
	}
	if req.AssignedTo != "" {
		p, err := s.repo.Profile.GetByID(ctx, req.AssignedTo)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			s.logger.Error("查询员工失败", zap.String("user_id", req.AssignedTo), zap.Error(err))
			return nil, err
		}
		t.AssignedTo = &p.ID
		t.Assignee = p
	}

	if err := s.repo.Task.Create(ctx, t); err != nil {
		s.logger.Error("创建任务失败", zap.String("title", t.Title), zap.Error(err))
		return nil, err
	}

	resp := toTaskResponse(t)
	return &resp, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *taskService) List(ctx context.Context, status string) ([]dto.TaskResponse, error) {
	tasks, err := s.repo.Task.List(ctx, status)
	if err != nil {
		s.logger.Error("查询任务失败", zap.String("status", status), zap.Error(err))
		return nil, err
	}
	return toTaskResponses(tasks), nil
}

func (s *taskService) ListMine(ctx context.Context, actor Actor, date string) ([]dto.TaskResponse, error) {
	if date == "" {
		date = ict.DateString(s.now())
	}
	tasks, err := s.repo.Task.ListForUser(ctx, actor.UserID, date)
	if err != nil {
		s.logger.Error("查询我的任务失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}
	return toTaskResponses(tasks), nil
}

// ────────────────────── 员工操作 ──────────────────────

// mutate 在事务内锁定任务后执行 fn 并保存
func (s *taskService) mutate(ctx context.Context, id string, fn func(t *model.Task) error) (*model.Task, error) {
	var task *model.Task
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		t, err := tx.Task.LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		task = t
		return tx.Task.Save(ctx, t)
	})
	return task, err
}

func (s *taskService) Claim(ctx context.Context, actor Actor, id string) (*dto.TaskResponse, error) {
	t, err := s.mutate(ctx, id, func(t *model.Task) error {
		if t.AssignedTo != nil {
			if *t.AssignedTo == actor.UserID {
				return nil
			}
			return ErrTaskAlreadyClaimed
		}
		if t.Status != model.TaskStatusPending {
			return ErrTaskNotEditable
		}
		t.AssignedTo = &actor.UserID
		t.Status = model.TaskStatusInProgress
		return nil
	})
	if err != nil {
		return nil, s.taskError("认领任务失败", id, err)
	}
	resp := toTaskResponse(t)
	return &resp, nil
}

func (s *taskService) ToggleItem(ctx context.Context, actor Actor, id, itemID string) (*dto.TaskResponse, error) {
	now := s.now()
	t, err := s.mutate(ctx, id, func(t *model.Task) error {
		if !t.IsParticipant(actor.UserID) {
			return ErrNoPermission
		}
		if t.Status != model.TaskStatusPending && t.Status != model.TaskStatusInProgress {
			return ErrTaskNotEditable
		}
		if !toggleItem(t.Items, itemID, actor.UserID, now) {
			return ErrTaskItemNotFound
		}
		t.Status = model.TaskStatusInProgress
		return nil
	})
	if err != nil {
		return nil, s.taskError("勾选任务子项失败", id, err)
	}
	resp := toTaskResponse(t)
	return &resp, nil
}

// toggleItem 切换子项完成状态；重新勾选会清除驳回标记
func toggleItem(items model.TaskItems, itemID, userID string, at time.Time) bool {
	for i := range items {
		if items[i].ID != itemID {
			continue
		}
		it := &items[i]
		it.IsCompleted = !it.IsCompleted
		if it.IsCompleted {
			it.CompletedByID = &userID
			it.CompletedAt = &at
			it.AdminRejected = false
		} else {
			it.CompletedByID = nil
			it.CompletedAt = nil
		}
		return true
	}
	return false
}

func (s *taskService) Submit(ctx context.Context, actor Actor, id string, req *dto.SubmitTaskRequest) (*dto.TaskResponse, error) {
	if req.HelperID != "" {
		if req.HelperID == actor.UserID {
			return nil, ErrInvalidHelper
		}
		if _, err := s.repo.Profile.GetByID(ctx, req.HelperID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidHelper
			}
			return nil, err
		}
	}

	now := s.now()
	t, err := s.mutate(ctx, id, func(t *model.Task) error {
		if t.AssignedTo == nil || *t.AssignedTo != actor.UserID {
			return ErrNoPermission
		}
		if t.Status != model.TaskStatusPending && t.Status != model.TaskStatusInProgress {
			return ErrTaskNotEditable
		}
		if !t.Items.AllCompleted() {
			return ErrTaskItemsIncomplete
		}
		if req.HelperID != "" {
			t.HelperID = &req.HelperID
		}
		t.PhotoURLs = model.StringList(req.PhotoURLs)
		t.CompletionNotes = sanitize(req.Notes)
		t.Status = model.TaskStatusPendingReview
		t.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, s.taskError("提交任务失败", id, err)
	}
	resp := toTaskResponse(t)
	return &resp, nil
}

// ────────────────────── Review ──────────────────────

func (s *taskService) Review(ctx context.Context, admin Actor, id string, req *dto.ReviewTaskRequest) (*dto.TaskReviewResponse, error) {
	approved := req.Approved != nil && *req.Approved
	notes := sanitize(req.AdminNotes)
	if !approved && len(req.RejectedItems) == 0 && notes == "" {
		return nil, ErrRejectionDetailsRequired
	}

	now := s.now()
	result := &dto.TaskReviewResponse{AwardedUsers: []string{}}
	var task *model.Task
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		t, err := tx.Task.LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		if t.Status != model.TaskStatusPendingReview {
			return ErrTaskNotPendingReview
		}

		if approved {
			t.Status = model.TaskStatusCompleted
			t.BonusPoints = req.BonusPoints
			t.RejectionReason = ""
			if err := s.awardParticipants(ctx, tx, t, admin, now, result); err != nil {
				return err
			}
		} else if err := reopenTask(t, req.RejectedItems, notes); err != nil {
			return err
		}
		t.ReviewedBy = &admin.UserID
		t.ReviewedAt = &now
		t.AdminNotes = notes
		t.AdminPhotos = model.StringList(req.AdminPhotos)

		if err := tx.Task.Save(ctx, t); err != nil {
			return err
		}
		task = t
		return logAdminAction(ctx, tx, admin.UserID, model.AdminActionTaskReview, t.AssignedTo, model.JSONMap{
			"task_id":        t.ID,
			"approved":       approved,
			"rejected_items": req.RejectedItems,
			"bonus_points":   req.BonusPoints,
		})
	})
	if err != nil {
		return nil, s.taskError("审核任务失败", id, err)
	}

	for _, userID := range participants(task) {
		if approved {
			notify(ctx, s.repo, s.logger, userID, model.NotificationTaskApproved,
				"Aufgabe genehmigt", fmt.Sprintf("%s: +%d Punkte", task.Title, result.PointsAwarded))
		} else {
			notify(ctx, s.repo, s.logger, userID, model.NotificationTaskRejected,
				"Aufgabe abgelehnt", fmt.Sprintf("%s: %s", task.Title, task.RejectionReason))
		}
	}

	result.Task = toTaskResponse(task)
	return result, nil
}

func participants(t *model.Task) []string {
	var ids []string
	if t.AssignedTo != nil {
		ids = append(ids, *t.AssignedTo)
	}
	if t.HelperID != nil && (t.AssignedTo == nil || *t.HelperID != *t.AssignedTo) {
		ids = append(ids, *t.HelperID)
	}
	return ids
}

// awardParticipants 负责人与协助者各得 points_value + bonus
func (s *taskService) awardParticipants(ctx context.Context, tx *repository.Repository, t *model.Task, admin Actor, now time.Time, result *dto.TaskReviewResponse) error {
	points := t.PointsValue + t.BonusPoints
	result.PointsAwarded = points
	if points == 0 {
		return nil
	}
	for _, userID := range participants(t) {
		err := s.ledger.award(ctx, tx, &model.PointsHistory{
			UserID:       userID,
			PointsChange: points,
			Reason:       "Aufgabe: " + t.Title,
			Category:     model.PointsCategoryTask,
			CreatedBy:    &admin.UserID,
			CreatedAt:    now,
		})
		if err != nil {
			return err
		}
		result.AwardedUsers = append(result.AwardedUsers, userID)
	}
	return nil
}

// reopenTask 驳回：重开指定子项；只填写说明时重开全部子项
func reopenTask(t *model.Task, rejectedItems []string, notes string) error {
	index := make(map[string]int, len(t.Items))
	for i, it := range t.Items {
		index[it.ID] = i
	}
	reject := make([]int, 0, len(t.Items))
	for _, itemID := range rejectedItems {
		i, ok := index[itemID]
		if !ok {
			return ErrTaskItemNotFound
		}
		reject = append(reject, i)
	}
	if len(rejectedItems) == 0 {
		for i := range t.Items {
			reject = append(reject, i)
		}
	}

	for _, i := range reject {
		t.Items[i].IsCompleted = false
		t.Items[i].CompletedByID = nil
		t.Items[i].CompletedAt = nil
		t.Items[i].AdminRejected = true
	}
	t.Status = model.TaskStatusInProgress
	t.ReopenedCount++
	t.CompletedAt = nil
	t.RejectionReason = notes
	if t.RejectionReason == "" {
		t.RejectionReason = defaultTaskRejectReason
	}
	return nil
}

// ────────────────────── Delete / Archive ──────────────────────

func (s *taskService) Delete(ctx context.Context, admin Actor, id string) error {
	if err := s.repo.Task.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		s.logger.Error("删除任务失败", zap.String("task_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("任务已删除", zap.String("task_id", id), zap.String("admin_id", admin.UserID))
	return nil
}

func (s *taskService) ArchiveCompleted(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.Task.ArchiveCompletedBefore(ctx, before)
	if err != nil {
		s.logger.Error("归档任务失败", zap.Time("before", before), zap.Error(err))
		return 0, err
	}
	return n, nil
}

// taskError 业务错误原样返回，其余记录日志
func (s *taskService) taskError(msg, id string, err error) error {
	switch {
	case errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrTaskAlreadyClaimed),
		errors.Is(err, ErrTaskNotEditable),
		errors.Is(err, ErrTaskItemNotFound),
		errors.Is(err, ErrTaskItemsIncomplete),
		errors.Is(err, ErrTaskNotPendingReview),
		errors.Is(err, ErrNoPermission):
		return err
	}
	s.logger.Error(msg, zap.String("task_id", id), zap.Error(err))
	return err
}
