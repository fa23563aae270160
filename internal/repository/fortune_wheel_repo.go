package repository

import (
	"context"

	"gorm.io/gorm"

	"villasun/backend/internal/model"
)

// FortuneWheelRepository 幸运转盘数据访问接口
type FortuneWheelRepository interface {
	Create(ctx context.Context, spin *model.FortuneWheelSpin) error
	GetByUserAndDate(ctx context.Context, userID, date string) (*model.FortuneWheelSpin, error)
}

type fortuneWheelRepo struct {
	db *gorm.DB
}

// NewFortuneWheelRepo 创建 FortuneWheelRepository 实例
func NewFortuneWheelRepo(db *gorm.DB) FortuneWheelRepository {
	return &fortuneWheelRepo{db: db}
}

func (r *fortuneWheelRepo) Create(ctx context.Context, spin *model.FortuneWheelSpin) error {
	return r.db.WithContext(ctx).Create(spin).Error
}

func (r *fortuneWheelRepo) GetByUserAndDate(ctx context.Context, userID, date string) (*model.FortuneWheelSpin, error) {
	var spin model.FortuneWheelSpin
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND spin_date = ?", userID, date).
		First(&spin).Error
	if err != nil {
		return nil, err
	}
	return &spin, nil
}
