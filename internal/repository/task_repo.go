package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"villasun/backend/internal/model"
)

// TaskRepository 任务数据访问接口
type TaskRepository interface {
	Create(ctx context.Context, t *model.Task) error
	GetByID(ctx context.Context, id string) (*model.Task, error)
	// LockByID 在事务内锁定任务行，串行化勾选、提交与审核
	LockByID(ctx context.Context, id string) (*model.Task, error)
	// List status 为空时返回所有未归档任务
	List(ctx context.Context, status string) ([]model.Task, error)
	// ListForUser 员工可见：本人负责、本人协助或未分配；截止日为空或等于 date
	ListForUser(ctx context.Context, userID, date string) ([]model.Task, error)
	Save(ctx context.Context, t *model.Task) error
	Delete(ctx context.Context, id string) error
	// ArchiveCompletedBefore 将 before 之前完成的任务归档，返回归档数量
	ArchiveCompletedBefore(ctx context.Context, before time.Time) (int64, error)
}

type taskRepo struct {
	db *gorm.DB
}

// NewTaskRepo 创建 TaskRepository 实例
func NewTaskRepo(db *gorm.DB) TaskRepository {
	return &taskRepo{db: db}
}

func (r *taskRepo) Create(ctx context.Context, t *model.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(t).Error
}

func (r *taskRepo) GetByID(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	if err := r.db.WithContext(ctx).Preload("Assignee").Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *taskRepo) LockByID(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *taskRepo) List(ctx context.Context, status string) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Preload("Assignee")
	if status != "" {
		q = q.Where("status = ?", status)
	} else {
		q = q.Where("status <> ?", model.TaskStatusArchived)
	}
	var list []model.Task
	err := q.Order("due_date ASC NULLS LAST, created_at ASC").Find(&list).Error
	return list, err
}

func (r *taskRepo) ListForUser(ctx context.Context, userID, date string) ([]model.Task, error) {
	var list []model.Task
	err := r.db.WithContext(ctx).
		Preload("Assignee").
		Where("status <> ?", model.TaskStatusArchived).
		Where("assigned_to = ? OR helper_id = ? OR assigned_to IS NULL", userID, userID).
		Where("due_date IS NULL OR due_date = ?", date).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *taskRepo) Save(ctx context.Context, t *model.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(t).Error
}

func (r *taskRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *taskRepo) ArchiveCompletedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("status = ? AND completed_at < ?", model.TaskStatusCompleted, before).
		Update("status", model.TaskStatusArchived)
	return result.RowsAffected, result.Error
}

// ────────────────────── 清单模板 ──────────────────────

// ChecklistRepository 清单模板数据访问接口
type ChecklistRepository interface {
	Create(ctx context.Context, c *model.Checklist) error
	GetByID(ctx context.Context, id string) (*model.Checklist, error)
	List(ctx context.Context) ([]model.Checklist, error)
	ListActive(ctx context.Context) ([]model.Checklist, error)
	MarkGenerated(ctx context.Context, id, date string) error
	Deactivate(ctx context.Context, id string) error
}

type checklistRepo struct {
	db *gorm.DB
}

// NewChecklistRepo 创建 ChecklistRepository 实例
func NewChecklistRepo(db *gorm.DB) ChecklistRepository {
	return &checklistRepo{db: db}
}

func (r *checklistRepo) Create(ctx context.Context, c *model.Checklist) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *checklistRepo) GetByID(ctx context.Context, id string) (*model.Checklist, error) {
	var c model.Checklist
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *checklistRepo) List(ctx context.Context) ([]model.Checklist, error) {
	var list []model.Checklist
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *checklistRepo) ListActive(ctx context.Context) ([]model.Checklist, error) {
	var list []model.Checklist
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *checklistRepo) MarkGenerated(ctx context.Context, id, date string) error {
	return r.db.WithContext(ctx).
		Model(&model.Checklist{}).
		Where("id = ?", id).
		Update("last_generated_date", date).Error
}

func (r *checklistRepo) Deactivate(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Checklist{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ────────────────────── 清单实例 ──────────────────────

// ChecklistInstanceRepository 清单实例数据访问接口
type ChecklistInstanceRepository interface {
	// CreateIfAbsent 同一模板同一天只生成一次，返回是否新建
	CreateIfAbsent(ctx context.Context, inst *model.ChecklistInstance) (bool, error)
	GetByID(ctx context.Context, id string) (*model.ChecklistInstance, error)
	LockByID(ctx context.Context, id string) (*model.ChecklistInstance, error)
	// ListForUser 当日分配给本人或未分配的实例
	ListForUser(ctx context.Context, userID, date string) ([]model.ChecklistInstance, error)
	ListByStatus(ctx context.Context, status string) ([]model.ChecklistInstance, error)
	Save(ctx context.Context, inst *model.ChecklistInstance) error
	// ArchiveApprovedBefore 归档 date 之前已通过的实例
	ArchiveApprovedBefore(ctx context.Context, date string) (int64, error)
}

type checklistInstanceRepo struct {
	db *gorm.DB
}

// NewChecklistInstanceRepo 创建 ChecklistInstanceRepository 实例
func NewChecklistInstanceRepo(db *gorm.DB) ChecklistInstanceRepository {
	return &checklistInstanceRepo{db: db}
}

func (r *checklistInstanceRepo) CreateIfAbsent(ctx context.Context, inst *model.ChecklistInstance) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "checklist_id"}, {Name: "instance_date"}},
			DoNothing: true,
		}).
		Create(inst)
	return result.RowsAffected > 0, result.Error
}

func (r *checklistInstanceRepo) GetByID(ctx context.Context, id string) (*model.ChecklistInstance, error) {
	var inst model.ChecklistInstance
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inst).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *checklistInstanceRepo) LockByID(ctx context.Context, id string) (*model.ChecklistInstance, error) {
	var inst model.ChecklistInstance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&inst).Error
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *checklistInstanceRepo) ListForUser(ctx context.Context, userID, date string) ([]model.ChecklistInstance, error) {
	var list []model.ChecklistInstance
	err := r.db.WithContext(ctx).
		Where("instance_date = ? AND status <> ?", date, model.ChecklistStatusArchived).
		Where("assigned_to = ? OR assigned_to IS NULL", userID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *checklistInstanceRepo) ListByStatus(ctx context.Context, status string) ([]model.ChecklistInstance, error) {
	var list []model.ChecklistInstance
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("instance_date ASC, created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *checklistInstanceRepo) Save(ctx context.Context, inst *model.ChecklistInstance) error {
	return r.db.WithContext(ctx).Save(inst).Error
}

func (r *checklistInstanceRepo) ArchiveApprovedBefore(ctx context.Context, date string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ChecklistInstance{}).
		Where("status = ? AND instance_date < ?", model.ChecklistStatusApproved, date).
		Update("status", model.ChecklistStatusArchived)
	return result.RowsAffected, result.Error
}
