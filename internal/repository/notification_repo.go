package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"villasun/backend/internal/model"
)

// NotificationRepository 通知数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	// MarkRead 标记已读；id 为空时标记该用户全部通知
	MarkRead(ctx context.Context, userID, id string) (int64, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// AdminLogRepository 管理操作日志数据访问接口
type AdminLogRepository interface {
	Create(ctx context.Context, log *model.AdminLog) error
	List(ctx context.Context, offset, limit int) ([]model.AdminLog, int64, error)
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	var list []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID, id string) (int64, error) {
	db := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false)
	if id != "" {
		db = db.Where("id = ?", id)
	}
	result := db.Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *notificationRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}

type adminLogRepo struct {
	db *gorm.DB
}

// NewAdminLogRepo 创建 AdminLogRepository 实例
func NewAdminLogRepo(db *gorm.DB) AdminLogRepository {
	return &adminLogRepo{db: db}
}

func (r *adminLogRepo) Create(ctx context.Context, log *model.AdminLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *adminLogRepo) List(ctx context.Context, offset, limit int) ([]model.AdminLog, int64, error) {
	var list []model.AdminLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.AdminLog{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
