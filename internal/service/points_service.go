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

var ErrPointsReasonRequired = errors.New("积分调整必须填写原因")

// ledger 积分流水写入：追加流水、更新总分、刷新当日目标
// 必须在调用方的事务内使用，保证三者原子
type ledger struct {
	goals *goalCalculator
	now   Clock
}

func (l *ledger) award(ctx context.Context, tx *repository.Repository, entry *model.PointsHistory) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now()
	}
	if err := tx.Points.Create(ctx, entry); err != nil {
		return fmt.Errorf("写入积分流水失败: %w", err)
	}
	if err := tx.Profile.AddPoints(ctx, entry.UserID, entry.PointsChange); err != nil {
		return fmt.Errorf("更新总积分失败: %w", err)
	}
	if _, err := l.goals.refreshDaily(ctx, tx, ict.DateString(entry.CreatedAt)); err != nil {
		return fmt.Errorf("刷新日目标失败: %w", err)
	}
	return nil
}

// PointsService 积分业务接口
type PointsService interface {
	Adjust(ctx context.Context, admin Actor, req *dto.AdjustPointsRequest) (*dto.PointsHistoryResponse, error)
	History(ctx context.Context, actor Actor, userID string, limit int) ([]dto.PointsHistoryResponse, error)
	Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error)
	ResetAll(ctx context.Context, admin Actor) (*dto.ResetPointsResponse, error)
}

type pointsService struct {
	repo   *repository.Repository
	ledger *ledger
	logger *zap.Logger
}

// NewPointsService 创建 PointsService 实例
func NewPointsService(repo *repository.Repository, dailyAchievable int, logger *zap.Logger) PointsService {
	return &pointsService{
		repo:   repo,
		ledger: &ledger{goals: &goalCalculator{dailyAchievable: dailyAchievable}, now: time.Now},
		logger: logger,
	}
}

func toPointsHistoryResponse(e *model.PointsHistory) dto.PointsHistoryResponse {
	return dto.PointsHistoryResponse{
		ID:           e.ID,
		UserID:       e.UserID,
		PointsChange: e.PointsChange,
		Reason:       e.Reason,
		Category:     e.Category,
		CreatedBy:    e.CreatedBy,
		CreatedAt:    e.CreatedAt,
	}
}

// ────────────────────── Adjust ──────────────────────

func (s *pointsService) Adjust(ctx context.Context, admin Actor, req *dto.AdjustPointsRequest) (*dto.PointsHistoryResponse, error) {
	reason := sanitize(req.Reason)
	if reason == "" {
		return nil, ErrPointsReasonRequired
	}
	category := req.Category
	if category == "" {
		category = model.PointsCategoryManual
	}

	if _, err := s.repo.Profile.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询员工失败", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	entry := &model.PointsHistory{
		UserID:       req.UserID,
		PointsChange: req.Points,
		Reason:       reason,
		Category:     category,
		CreatedBy:    &admin.UserID,
	}
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := s.ledger.award(ctx, tx, entry); err != nil {
			return err
		}
		return logAdminAction(ctx, tx, admin.UserID, model.AdminActionPointsAdjust, &req.UserID, model.JSONMap{
			"points":   req.Points,
			"reason":   reason,
			"category": category,
		})
	})
	if err != nil {
		s.logger.Error("调整积分失败", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	notify(ctx, s.repo, s.logger, req.UserID, model.NotificationPointsAdjusted,
		"积分变动", fmt.Sprintf("%+d: %s", req.Points, reason))

	resp := toPointsHistoryResponse(entry)
	return &resp, nil
}

// ────────────────────── History ──────────────────────

func (s *pointsService) History(ctx context.Context, actor Actor, userID string, limit int) ([]dto.PointsHistoryResponse, error) {
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrNoPermission
	}
	if limit <= 0 {
		limit = 50
	}

	entries, err := s.repo.Points.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger.Error("查询积分流水失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	list := make([]dto.PointsHistoryResponse, 0, len(entries))
	for i := range entries {
		list = append(list, toPointsHistoryResponse(&entries[i]))
	}
	return list, nil
}

// ────────────────────── Leaderboard ──────────────────────

func (s *pointsService) Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	profiles, err := s.repo.Profile.Leaderboard(ctx, limit)
	if err != nil {
		s.logger.Error("查询排行榜失败", zap.Error(err))
		return nil, err
	}
	list := make([]dto.LeaderboardEntry, 0, len(profiles))
	for i, p := range profiles {
		list = append(list, dto.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      p.ID,
			FullName:    p.FullName,
			AvatarColor: p.AvatarColor,
			TotalPoints: p.TotalPoints,
		})
	}
	return list, nil
}

// ────────────────────── ResetAll ──────────────────────

// ResetAll 将所有员工总分清零，流水保留
func (s *pointsService) ResetAll(ctx context.Context, admin Actor) (*dto.ResetPointsResponse, error) {
	var n int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if n, err = tx.Profile.ResetAllPoints(ctx); err != nil {
			return err
		}
		return logAdminAction(ctx, tx, admin.UserID, model.AdminActionPointsReset, nil, model.JSONMap{
			"profiles_reset": n,
		})
	})
	if err != nil {
		s.logger.Error("积分清零失败", zap.Error(err))
		return nil, err
	}
	s.logger.Info("积分已清零", zap.String("admin_id", admin.UserID), zap.Int64("profiles", n))
	return &dto.ResetPointsResponse{ProfilesReset: n}, nil
}
