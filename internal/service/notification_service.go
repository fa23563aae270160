package service

import (
	"context"

	"go.uber.org/zap"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/repository"
)

// NotificationService 通知与管理日志查询
type NotificationService interface {
	ListMine(ctx context.Context, userID string, limit int) ([]dto.NotificationResponse, error)
	// MarkRead id 为空时标记全部
	MarkRead(ctx context.Context, userID, id string) (*dto.MarkReadResponse, error)
	AdminLogs(ctx context.Context, req *dto.PaginationRequest) ([]dto.AdminLogResponse, int64, error)
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) ListMine(ctx context.Context, userID string, limit int) ([]dto.NotificationResponse, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	list, err := s.repo.Notification.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger.Error("查询通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toNotificationResponse(&list[i]))
	}
	return resp, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id string) (*dto.MarkReadResponse, error) {
	n, err := s.repo.Notification.MarkRead(ctx, userID, id)
	if err != nil {
		s.logger.Error("标记通知已读失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &dto.MarkReadResponse{Updated: n}, nil
}

func (s *notificationService) AdminLogs(ctx context.Context, req *dto.PaginationRequest) ([]dto.AdminLogResponse, int64, error) {
	list, total, err := s.repo.AdminLog.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询管理日志失败", zap.Error(err))
		return nil, 0, err
	}
	resp := make([]dto.AdminLogResponse, 0, len(list))
	for _, l := range list {
		resp = append(resp, dto.AdminLogResponse{
			ID:           l.ID,
			AdminID:      l.AdminID,
			ActionType:   l.ActionType,
			TargetUserID: l.TargetUserID,
			Details:      l.Details,
			CreatedAt:    l.CreatedAt,
		})
	}
	return resp, total, nil
}
