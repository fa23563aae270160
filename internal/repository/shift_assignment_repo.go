package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"villasun/backend/internal/model"
)

// ShiftAssignmentRepository 排班数据访问接口
type ShiftAssignmentRepository interface {
	// Upsert 按 (staff_id, shift_date) 插入或覆盖
	Upsert(ctx context.Context, assignments []model.ShiftAssignment) error
	GetPublished(ctx context.Context, staffID, date string) (*model.ShiftAssignment, error)
	ListByRange(ctx context.Context, from, to string) ([]model.ShiftAssignment, error)
	ListPublishedByStaff(ctx context.Context, staffID, from, to string) ([]model.ShiftAssignment, error)
	// ListWorking 返回某日已发布且非休息的排班
	ListWorking(ctx context.Context, date string) ([]model.ShiftAssignment, error)
	Publish(ctx context.Context, from, to string) (int64, error)
}

type shiftAssignmentRepo struct {
	db *gorm.DB
}

// NewShiftAssignmentRepo 创建 ShiftAssignmentRepository 实例
func NewShiftAssignmentRepo(db *gorm.DB) ShiftAssignmentRepository {
	return &shiftAssignmentRepo{db: db}
}

func (r *shiftAssignmentRepo) Upsert(ctx context.Context, assignments []model.ShiftAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "staff_id"}, {Name: "shift_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"shift", "is_published", "created_by", "updated_at"}),
		}).
		Create(&assignments).Error
}

func (r *shiftAssignmentRepo) GetPublished(ctx context.Context, staffID, date string) (*model.ShiftAssignment, error) {
	var a model.ShiftAssignment
	err := r.db.WithContext(ctx).
		Where("staff_id = ? AND shift_date = ? AND is_published = ?", staffID, date, true).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *shiftAssignmentRepo) ListByRange(ctx context.Context, from, to string) ([]model.ShiftAssignment, error) {
	var list []model.ShiftAssignment
	err := r.db.WithContext(ctx).
		Preload("Staff").
		Where("shift_date BETWEEN ? AND ?", from, to).
		Order("shift_date ASC").
		Find(&list).Error
	return list, err
}

func (r *shiftAssignmentRepo) ListPublishedByStaff(ctx context.Context, staffID, from, to string) ([]model.ShiftAssignment, error) {
	var list []model.ShiftAssignment
	err := r.db.WithContext(ctx).
		Where("staff_id = ? AND is_published = ? AND shift_date BETWEEN ? AND ?", staffID, true, from, to).
		Order("shift_date ASC").
		Find(&list).Error
	return list, err
}

func (r *shiftAssignmentRepo) ListWorking(ctx context.Context, date string) ([]model.ShiftAssignment, error) {
	var list []model.ShiftAssignment
	err := r.db.WithContext(ctx).
		Where("shift_date = ? AND is_published = ? AND shift <> ?", date, true, model.ShiftOff).
		Find(&list).Error
	return list, err
}

func (r *shiftAssignmentRepo) Publish(ctx context.Context, from, to string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ShiftAssignment{}).
		Where("shift_date BETWEEN ? AND ? AND is_published = ?", from, to, false).
		Update("is_published", true)
	return result.RowsAffected, result.Error
}
