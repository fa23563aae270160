package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"villasun/backend/internal/model"
	pkgerrors "villasun/backend/pkg/errors"
)

// DepartureRepository 离岗申请数据访问接口
type DepartureRepository interface {
	Create(ctx context.Context, req *model.DepartureRequest) error
	GetByID(ctx context.Context, id string) (*model.DepartureRequest, error)
	GetPending(ctx context.Context, userID, date string) (*model.DepartureRequest, error)
	ListPending(ctx context.Context) ([]model.DepartureRequest, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.DepartureRequest, error)
	// Decide 仅对 pending 申请生效，否则返回 ErrStaleState
	Decide(ctx context.Context, id, status, approverID, reason string, at time.Time) error
}

type departureRepo struct {
	db *gorm.DB
}

// NewDepartureRepo 创建 DepartureRepository 实例
func NewDepartureRepo(db *gorm.DB) DepartureRepository {
	return &departureRepo{db: db}
}

func (r *departureRepo) Create(ctx context.Context, req *model.DepartureRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *departureRepo) GetByID(ctx context.Context, id string) (*model.DepartureRequest, error) {
	var req model.DepartureRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *departureRepo) GetPending(ctx context.Context, userID, date string) (*model.DepartureRequest, error) {
	var req model.DepartureRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND request_date = ? AND status = ?", userID, date, model.StatusPending).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *departureRepo) ListPending(ctx context.Context) ([]model.DepartureRequest, error) {
	var list []model.DepartureRequest
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("status = ?", model.StatusPending).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *departureRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.DepartureRequest, error) {
	var list []model.DepartureRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *departureRepo) Decide(ctx context.Context, id, status, approverID, reason string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.DepartureRequest{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":           status,
			"approved_by":      approverID,
			"approved_at":      at,
			"rejection_reason": reason,
			"updated_at":       at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStaleState
	}
	return nil
}
