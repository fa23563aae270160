package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
	"villasun/backend/pkg/ict"
)

// MaintenanceService 每日维护：补齐巡逻轮次、生成清单、刷新目标、清理旧通知、归档
type MaintenanceService interface {
	// DailyReset admin 为 nil 时表示由定时任务触发，不写管理日志
	// 单个步骤失败只记录日志并写入 FailedSteps，其余步骤照常执行
	DailyReset(ctx context.Context, admin *Actor) (*dto.DailyResetResult, error)
}

type maintenanceService struct {
	repo               *repository.Repository
	patrol             PatrolService
	goals              GoalService
	tasks              TaskService
	checklists         ChecklistService
	notificationMaxAge time.Duration
	now                Clock
	logger             *zap.Logger
}

// NewMaintenanceService 创建 MaintenanceService 实例
func NewMaintenanceService(
	repo *repository.Repository,
	patrol PatrolService,
	goals GoalService,
	tasks TaskService,
	checklists ChecklistService,
	notificationMaxAge time.Duration,
	logger *zap.Logger,
) MaintenanceService {
	return &maintenanceService{
		repo:               repo,
		patrol:             patrol,
		goals:              goals,
		tasks:              tasks,
		checklists:         checklists,
		notificationMaxAge: notificationMaxAge,
		now:                time.Now,
		logger:             logger,
	}
}

// 已完成的任务保留一周后归档
const taskArchiveAge = 7 * 24 * time.Hour

func (s *maintenanceService) DailyReset(ctx context.Context, admin *Actor) (*dto.DailyResetResult, error) {
	now := s.now()
	date := ict.DateString(now)
	result := &dto.DailyResetResult{Date: date}

	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			s.logger.Error("每日维护步骤失败",
				zap.String("step", name),
				zap.String("date", date),
				zap.Error(err),
			)
			result.FailedSteps = append(result.FailedSteps, name)
		}
	}

	step("patrol_rounds", func() (err error) {
		result.RoundsCreated, err = s.patrol.EnsureRounds(ctx, date)
		return err
	})
	step("checklists", func() error {
		gen, err := s.checklists.Generate(ctx, date)
		if gen != nil {
			result.ChecklistsGenerated = gen.Generated
		}
		return err
	})
	step("daily_goals", func() (err error) {
		result.DailyGoals, err = s.goals.RefreshDaily(ctx, date)
		return err
	})
	step("monthly_goals", func() (err error) {
		result.MonthlyGoals, err = s.goals.RefreshMonthly(ctx, ict.MonthString(now))
		return err
	})
	if s.notificationMaxAge > 0 {
		step("notifications", func() (err error) {
			result.NotificationsPurged, err = s.repo.Notification.DeleteOlderThan(ctx, now.Add(-s.notificationMaxAge))
			return err
		})
	}
	step("archive_tasks", func() (err error) {
		result.TasksArchived, err = s.tasks.ArchiveCompleted(ctx, now.Add(-taskArchiveAge))
		return err
	})
	step("archive_checklists", func() (err error) {
		result.ChecklistsArchived, err = s.checklists.ArchiveApproved(ctx, date)
		return err
	})

	if admin != nil {
		if err := logAdminAction(ctx, s.repo, admin.UserID, model.AdminActionDailyReset, nil, model.JSONMap{
			"date":                 date,
			"rounds_created":       result.RoundsCreated,
			"checklists_generated": result.ChecklistsGenerated,
			"daily_goals":          result.DailyGoals,
			"monthly_goals":        result.MonthlyGoals,
			"notifications_purged": result.NotificationsPurged,
			"tasks_archived":       result.TasksArchived,
			"checklists_archived":  result.ChecklistsArchived,
			"failed_steps":         result.FailedSteps,
		}); err != nil {
			s.logger.Warn("写入管理日志失败", zap.Error(err))
		}
	}

	s.logger.Info("每日维护完成",
		zap.String("date", date),
		zap.Int64("rounds_created", result.RoundsCreated),
		zap.Int("checklists_generated", result.ChecklistsGenerated),
		zap.Int("daily_goals", result.DailyGoals),
		zap.Int("monthly_goals", result.MonthlyGoals),
		zap.Int64("notifications_purged", result.NotificationsPurged),
		zap.Int64("tasks_archived", result.TasksArchived),
		zap.Int64("checklists_archived", result.ChecklistsArchived),
		zap.Strings("failed_steps", result.FailedSteps),
	)
	return result, nil
}
