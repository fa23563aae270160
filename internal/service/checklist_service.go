package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
	"villasun/backend/pkg/ict"
)

var (
	ErrChecklistNotFound        = errors.New("清单不存在")
	ErrChecklistNotPending      = errors.New("清单实例当前状态不可修改")
	ErrChecklistNotSubmitted    = errors.New("清单实例未提交审核")
	ErrChecklistItemsIncomplete = errors.New("清单仍有未完成的子项")
)

// ChecklistService 清单模板与每日实例业务接口
type ChecklistService interface {
	Create(ctx context.Context, admin Actor, req *dto.CreateChecklistRequest) (*dto.ChecklistResponse, error)
	List(ctx context.Context) ([]dto.ChecklistResponse, error)
	Deactivate(ctx context.Context, admin Actor, id string) error
	// Generate 为 date 当天到期的模板生成实例，已生成的跳过
	Generate(ctx context.Context, date string) (*dto.GenerateChecklistsResult, error)
	ListMine(ctx context.Context, actor Actor, date string) ([]dto.ChecklistInstanceResponse, error)
	ToggleItem(ctx context.Context, actor Actor, id, itemID string) (*dto.ChecklistInstanceResponse, error)
	Submit(ctx context.Context, actor Actor, id string, req *dto.SubmitChecklistRequest) (*dto.ChecklistInstanceResponse, error)
	ListForReview(ctx context.Context) ([]dto.ChecklistInstanceResponse, error)
	// Review 通过时为提交者记分，驳回必须填写原因并退回 pending
	Review(ctx context.Context, admin Actor, id string, req *dto.ReviewChecklistRequest) (*dto.ChecklistInstanceResponse, error)
	// ArchiveApproved 归档 date 之前已通过的实例
	ArchiveApproved(ctx context.Context, date string) (int64, error)
}

type checklistService struct {
	repo   *repository.Repository
	ledger *ledger
	now    Clock
	logger *zap.Logger
}

// NewChecklistService 创建 ChecklistService 实例
func NewChecklistService(repo *repository.Repository, dailyAchievable int, logger *zap.Logger) ChecklistService {
	return &checklistService{
		repo:   repo,
		ledger: &ledger{goals: &goalCalculator{dailyAchievable: dailyAchievable}, now: time.Now},
		now:    time.Now,
		logger: logger,
	}
}

func toChecklistResponse(c *model.Checklist) dto.ChecklistResponse {
	return dto.ChecklistResponse{
		ID:                c.ID,
		Title:             c.Title,
		Description:       c.Description,
		Category:          c.Category,
		Recurrence:        c.Recurrence,
		PointsValue:       c.PointsValue,
		Items:             toTaskItemResponses(c.Items),
		AssignedTo:        c.AssignedTo,
		StartDate:         c.StartDate.String(),
		LastGeneratedDate: c.LastGeneratedDate.String(),
		IsActive:          c.IsActive,
	}
}

func toChecklistInstanceResponse(inst *model.ChecklistInstance) dto.ChecklistInstanceResponse {
	return dto.ChecklistInstanceResponse{
		ID:              inst.ID,
		ChecklistID:     inst.ChecklistID,
		Title:           inst.Title,
		InstanceDate:    inst.InstanceDate.String(),
		AssignedTo:      inst.AssignedTo,
		Status:          inst.Status,
		Items:           toTaskItemResponses(inst.Items),
		PointsValue:     inst.PointsValue,
		PointsAwarded:   inst.PointsAwarded,
		PhotoURLs:       append([]string{}, inst.PhotoURLs...),
		AdminPhoto:      inst.AdminPhoto,
		CompletedBy:     inst.CompletedBy,
		CompletedAt:     inst.CompletedAt,
		ReviewedAt:      inst.ReviewedAt,
		RejectionReason: inst.RejectionReason,
	}
}

func toChecklistInstanceResponses(list []model.ChecklistInstance) []dto.ChecklistInstanceResponse {
	out := make([]dto.ChecklistInstanceResponse, 0, len(list))
	for i := range list {
		out = append(out, toChecklistInstanceResponse(&list[i]))
	}
	return out
}

// ────────────────────── 模板 ──────────────────────

func (s *checklistService) Create(ctx context.Context, admin Actor, req *dto.CreateChecklistRequest) (*dto.ChecklistResponse, error) {
	c := &model.Checklist{
		Title:       sanitize(req.Title),
		Description: sanitize(req.Description),
		Category:    req.Category,
		Recurrence:  req.Recurrence,
		PointsValue: req.PointsValue,
		Items:       newTaskItems(req.Items),
		StartDate:   model.Date(req.StartDate),
		IsActive:    true,
		CreatedBy:   &admin.UserID,
	}
	if c.Category == "" {
		c.Category = model.TaskCategoryExtras
	}
	if c.StartDate == "" {
		c.StartDate = model.Date(ict.DateString(s.now()))
	}
	if req.AssignedTo != "" {
		if _, err := s.repo.Profile.GetByID(ctx, req.AssignedTo); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		c.AssignedTo = &req.AssignedTo
	}

	if err := s.repo.Checklist.Create(ctx, c); err != nil {
		s.logger.Error("创建清单失败", zap.String("title", c.Title), zap.Error(err))
		return nil, err
	}
	resp := toChecklistResponse(c)
	return &resp, nil
}

func (s *checklistService) List(ctx context.Context) ([]dto.ChecklistResponse, error) {
	list, err := s.repo.Checklist.List(ctx)
	if err != nil {
		s.logger.Error("查询清单失败", zap.Error(err))
		return nil, err
	}
	out := make([]dto.ChecklistResponse, 0, len(list))
	for i := range list {
		out = append(out, toChecklistResponse(&list[i]))
	}
	return out, nil
}

func (s *checklistService) Deactivate(ctx context.Context, admin Actor, id string) error {
	if err := s.repo.Checklist.Deactivate(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChecklistNotFound
		}
		s.logger.Error("停用清单失败", zap.String("checklist_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("清单已停用", zap.String("checklist_id", id), zap.String("admin_id", admin.UserID))
	return nil
}

// ────────────────────── Generate ──────────────────────

// checklistDue 判断模板在 date 当天是否到期
// weekly 取开始日的星期几；monthly 取开始日的日号，超出当月天数时取月末
func checklistDue(c *model.Checklist, date string) bool {
	start, err := ict.ParseDate(c.StartDate.String())
	if err != nil {
		return false
	}
	day, err := ict.ParseDate(date)
	if err != nil || day.Before(start) {
		return false
	}

	switch c.Recurrence {
	case model.RecurrenceDaily:
		return true
	case model.RecurrenceWeekly:
		return day.Weekday() == start.Weekday()
	case model.RecurrenceMonthly:
		lastDay := time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, ict.Zone).Day()
		want := start.Day()
		if want > lastDay {
			want = lastDay
		}
		return day.Day() == want
	case model.RecurrenceOneTime:
		return c.LastGeneratedDate == ""
	}
	return false
}

// freshItems 复制模板子项并清除完成状态
func freshItems(items model.TaskItems) model.TaskItems {
	out := make(model.TaskItems, len(items))
	for i, it := range items {
		out[i] = model.TaskItem{ID: it.ID, Text: it.Text}
	}
	return out
}

func (s *checklistService) Generate(ctx context.Context, date string) (*dto.GenerateChecklistsResult, error) {
	if date == "" {
		date = ict.DateString(s.now())
	}
	templates, err := s.repo.Checklist.ListActive(ctx)
	if err != nil {
		s.logger.Error("查询清单模板失败", zap.Error(err))
		return nil, err
	}

	result := &dto.GenerateChecklistsResult{Date: date}
	var errs []error
	for i := range templates {
		c := &templates[i]
		if !checklistDue(c, date) {
			continue
		}
		inst := &model.ChecklistInstance{
			ChecklistID:  &c.ID,
			Title:        c.Title,
			InstanceDate: model.Date(date),
			AssignedTo:   c.AssignedTo,
			Status:       model.ChecklistStatusPending,
			Items:        freshItems(c.Items),
			PointsValue:  c.PointsValue,
		}
		created, err := s.repo.ChecklistInstance.CreateIfAbsent(ctx, inst)
		if err == nil {
			err = s.repo.Checklist.MarkGenerated(ctx, c.ID, date)
		}
		if err != nil {
			s.logger.Error("生成清单实例失败",
				zap.String("checklist_id", c.ID),
				zap.String("date", date),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		if created {
			result.Generated++
		}
	}
	return result, errors.Join(errs...)
}

// ────────────────────── 员工操作 ──────────────────────

func (s *checklistService) ListMine(ctx context.Context, actor Actor, date string) ([]dto.ChecklistInstanceResponse, error) {
	if date == "" {
		date = ict.DateString(s.now())
	}
	list, err := s.repo.ChecklistInstance.ListForUser(ctx, actor.UserID, date)
	if err != nil {
		s.logger.Error("查询我的清单失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}
	return toChecklistInstanceResponses(list), nil
}

// mutate 在事务内锁定 pending 实例，校验归属后执行 fn 并保存
func (s *checklistService) mutate(ctx context.Context, actor Actor, id string, fn func(inst *model.ChecklistInstance) error) (*model.ChecklistInstance, error) {
	var inst *model.ChecklistInstance
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		it, err := tx.ChecklistInstance.LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChecklistNotFound
			}
			return err
		}
		if it.AssignedTo != nil && *it.AssignedTo != actor.UserID {
			return ErrNoPermission
		}
		if it.Status != model.ChecklistStatusPending {
			return ErrChecklistNotPending
		}
		if err := fn(it); err != nil {
			return err
		}
		inst = it
		return tx.ChecklistInstance.Save(ctx, it)
	})
	return inst, err
}

func (s *checklistService) ToggleItem(ctx context.Context, actor Actor, id, itemID string) (*dto.ChecklistInstanceResponse, error) {
	now := s.now()
	inst, err := s.mutate(ctx, actor, id, func(inst *model.ChecklistInstance) error {
		if !toggleItem(inst.Items, itemID, actor.UserID, now) {
			return ErrTaskItemNotFound
		}
		return nil
	})
	if err != nil {
		return nil, s.instanceError("勾选清单子项失败", id, err)
	}
	resp := toChecklistInstanceResponse(inst)
	return &resp, nil
}

func (s *checklistService) Submit(ctx context.Context, actor Actor, id string, req *dto.SubmitChecklistRequest) (*dto.ChecklistInstanceResponse, error) {
	now := s.now()
	inst, err := s.mutate(ctx, actor, id, func(inst *model.ChecklistInstance) error {
		if !inst.Items.AllCompleted() {
			return ErrChecklistItemsIncomplete
		}
		inst.Status = model.ChecklistStatusCompleted
		inst.CompletedBy = &actor.UserID
		inst.CompletedAt = &now
		inst.PhotoURLs = model.StringList(req.PhotoURLs)
		return nil
	})
	if err != nil {
		return nil, s.instanceError("提交清单失败", id, err)
	}
	resp := toChecklistInstanceResponse(inst)
	return &resp, nil
}

// ────────────────────── Review ──────────────────────

func (s *checklistService) ListForReview(ctx context.Context) ([]dto.ChecklistInstanceResponse, error) {
	list, err := s.repo.ChecklistInstance.ListByStatus(ctx, model.ChecklistStatusCompleted)
	if err != nil {
		s.logger.Error("查询待审核清单失败", zap.Error(err))
		return nil, err
	}
	return toChecklistInstanceResponses(list), nil
}

func (s *checklistService) Review(ctx context.Context, admin Actor, id string, req *dto.ReviewChecklistRequest) (*dto.ChecklistInstanceResponse, error) {
	approved := req.Approved != nil && *req.Approved
	reason := sanitize(req.Reason)
	if !approved && reason == "" {
		return nil, ErrRejectReasonRequired
	}

	now := s.now()
	var inst *model.ChecklistInstance
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		it, err := tx.ChecklistInstance.LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChecklistNotFound
			}
			return err
		}
		if it.Status != model.ChecklistStatusCompleted {
			return ErrChecklistNotSubmitted
		}

		if approved {
			it.Status = model.ChecklistStatusApproved
			it.PointsAwarded = it.PointsValue
			it.RejectionReason = ""
			if it.CompletedBy != nil && it.PointsValue != 0 {
				err := s.ledger.award(ctx, tx, &model.PointsHistory{
					UserID:       *it.CompletedBy,
					PointsChange: it.PointsValue,
					Reason:       "Checkliste: " + it.Title,
					Category:     model.PointsCategoryTask,
					CreatedBy:    &admin.UserID,
					CreatedAt:    now,
				})
				if err != nil {
					return err
				}
			}
		} else {
			it.Status = model.ChecklistStatusPending
			it.RejectionReason = reason
		}
		it.ReviewedBy = &admin.UserID
		it.ReviewedAt = &now
		it.AdminPhoto = req.AdminPhoto

		if err := tx.ChecklistInstance.Save(ctx, it); err != nil {
			return err
		}
		inst = it
		return logAdminAction(ctx, tx, admin.UserID, model.AdminActionChecklistReview, it.CompletedBy, model.JSONMap{
			"instance_id": it.ID,
			"approved":    approved,
			"reason":      reason,
		})
	})
	if err != nil {
		return nil, s.instanceError("审核清单失败", id, err)
	}

	if inst.CompletedBy != nil {
		if approved {
			notify(ctx, s.repo, s.logger, *inst.CompletedBy, model.NotificationChecklistApproved,
				"Checkliste genehmigt", fmt.Sprintf("%s: +%d Punkte", inst.Title, inst.PointsAwarded))
		} else {
			notify(ctx, s.repo, s.logger, *inst.CompletedBy, model.NotificationChecklistRejected,
				"Checkliste abgelehnt", fmt.Sprintf("%s: %s", inst.Title, reason))
		}
	}

	resp := toChecklistInstanceResponse(inst)
	return &resp, nil
}

func (s *checklistService) ArchiveApproved(ctx context.Context, date string) (int64, error) {
	n, err := s.repo.ChecklistInstance.ArchiveApprovedBefore(ctx, date)
	if err != nil {
		s.logger.Error("归档清单实例失败", zap.String("before", date), zap.Error(err))
		return 0, err
	}
	return n, nil
}

func (s *checklistService) instanceError(msg, id string, err error) error {
	switch {
	case errors.Is(err, ErrChecklistNotFound),
		errors.Is(err, ErrChecklistNotPending),
		errors.Is(err, ErrChecklistNotSubmitted),
		errors.Is(err, ErrChecklistItemsIncomplete),
		errors.Is(err, ErrTaskItemNotFound),
		errors.Is(err, ErrNoPermission):
		return err
	}
	s.logger.Error(msg, zap.String("instance_id", id), zap.Error(err))
	return err
}
