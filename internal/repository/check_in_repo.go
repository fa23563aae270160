package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"villasun/backend/internal/model"
	pkgerrors "villasun/backend/pkg/errors"
)

// CheckInRepository 签到记录数据访问接口
type CheckInRepository interface {
	Create(ctx context.Context, checkIn *model.CheckIn) error
	GetByID(ctx context.Context, id string) (*model.CheckIn, error)
	GetByUserAndDate(ctx context.Context, userID, date string) (*model.CheckIn, error)
	ListByUserRange(ctx context.Context, userID, from, to string) ([]model.CheckIn, error)
	ListByRange(ctx context.Context, from, to string) ([]model.CheckIn, error)
	ListPending(ctx context.Context) ([]model.CheckIn, error)
	// ListOpen 返回某日尚未签退的签到
	ListOpen(ctx context.Context, date string) ([]model.CheckIn, error)
	// Approve/Reject 仅对 pending 记录生效，否则返回 ErrStaleState
	Approve(ctx context.Context, id, approverID string, points int, at time.Time) error
	Reject(ctx context.Context, id, approverID, reason string, at time.Time) error
	// Checkout 仅对未签退记录生效，否则返回 ErrStaleState
	Checkout(ctx context.Context, id string, at time.Time, hours decimal.Decimal) error
}

type checkInRepo struct {
	db *gorm.DB
}

// NewCheckInRepo 创建 CheckInRepository 实例
func NewCheckInRepo(db *gorm.DB) CheckInRepository {
	return &checkInRepo{db: db}
}

func (r *checkInRepo) Create(ctx context.Context, checkIn *model.CheckIn) error {
	return r.db.WithContext(ctx).Create(checkIn).Error
}

func (r *checkInRepo) GetByID(ctx context.Context, id string) (*model.CheckIn, error) {
	var c model.CheckIn
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *checkInRepo) GetByUserAndDate(ctx context.Context, userID, date string) (*model.CheckIn, error) {
	var c model.CheckIn
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND check_in_date = ?", userID, date).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *checkInRepo) ListByUserRange(ctx context.Context, userID, from, to string) ([]model.CheckIn, error) {
	var list []model.CheckIn
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND check_in_date BETWEEN ? AND ?", userID, from, to).
		Order("check_in_date DESC").
		Find(&list).Error
	return list, err
}

func (r *checkInRepo) ListByRange(ctx context.Context, from, to string) ([]model.CheckIn, error) {
	var list []model.CheckIn
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("check_in_date BETWEEN ? AND ?", from, to).
		Order("check_in_date ASC, check_in_time ASC").
		Find(&list).Error
	return list, err
}

func (r *checkInRepo) ListPending(ctx context.Context) ([]model.CheckIn, error) {
	var list []model.CheckIn
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("status = ?", model.StatusPending).
		Order("check_in_time ASC").
		Find(&list).Error
	return list, err
}

func (r *checkInRepo) ListOpen(ctx context.Context, date string) ([]model.CheckIn, error) {
	var list []model.CheckIn
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("check_in_date = ? AND check_out_time IS NULL AND status <> ?", date, model.StatusRejected).
		Order("check_in_time ASC").
		Find(&list).Error
	return list, err
}

func (r *checkInRepo) Approve(ctx context.Context, id, approverID string, points int, at time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":         model.StatusApproved,
		"approved_by":    approverID,
		"approved_at":    at,
		"points_awarded": points,
		"updated_at":     at,
	})
}

func (r *checkInRepo) Reject(ctx context.Context, id, approverID, reason string, at time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":           model.StatusRejected,
		"approved_by":      approverID,
		"approved_at":      at,
		"points_awarded":   0,
		"rejection_reason": reason,
		"updated_at":       at,
	})
}

func (r *checkInRepo) transition(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.CheckIn{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStaleState
	}
	return nil
}

func (r *checkInRepo) Checkout(ctx context.Context, id string, at time.Time, hours decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&model.CheckIn{}).
		Where("id = ? AND check_out_time IS NULL", id).
		Updates(map[string]interface{}{
			"check_out_time": at,
			"work_hours":     hours,
			"updated_at":     at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStaleState
	}
	return nil
}
