package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// CascadeStep 删除员工时的一个清理步骤
// Delete 为 true 时删除行，否则将引用列置空（保留他人的记录）
type CascadeStep struct {
	Table  string
	Column string
	Delete bool
}

// UserCascade 删除员工数据的固定顺序：子表在前，父表在后
// 外键同样声明了 ON DELETE CASCADE / SET NULL，新增引用表时两者需同步
var UserCascade = []CascadeStep{
	{Table: "checklist_instances", Column: "assigned_to", Delete: true},
	{Table: "checklist_instances", Column: "completed_by", Delete: false},
	{Table: "checklist_instances", Column: "reviewed_by", Delete: false},
	{Table: "checklists", Column: "assigned_to", Delete: false},
	{Table: "checklists", Column: "created_by", Delete: false},
	{Table: "tasks", Column: "assigned_to", Delete: true},
	{Table: "tasks", Column: "helper_id", Delete: false},
	{Table: "tasks", Column: "created_by", Delete: false},
	{Table: "tasks", Column: "reviewed_by", Delete: false},
	{Table: "patrol_scans", Column: "user_id", Delete: true},
	{Table: "fortune_wheel_spins", Column: "user_id", Delete: true},
	{Table: "admin_logs", Column: "target_user_id", Delete: true},
	{Table: "admin_logs", Column: "admin_id", Delete: false},
	{Table: "daily_point_goals", Column: "user_id", Delete: true},
	{Table: "monthly_point_goals", Column: "user_id", Delete: true},
	{Table: "points_history", Column: "user_id", Delete: true},
	{Table: "points_history", Column: "created_by", Delete: false},
	{Table: "check_ins", Column: "user_id", Delete: true},
	{Table: "check_ins", Column: "approved_by", Delete: false},
	{Table: "check_ins", Column: "created_by", Delete: false},
	{Table: "notifications", Column: "user_id", Delete: true},
	{Table: "shift_assignments", Column: "staff_id", Delete: true},
	{Table: "shift_assignments", Column: "created_by", Delete: false},
	{Table: "patrol_rounds", Column: "assigned_to", Delete: true},
	{Table: "patrol_schedules", Column: "assigned_to", Delete: true},
	{Table: "departure_requests", Column: "user_id", Delete: true},
	{Table: "departure_requests", Column: "approved_by", Delete: false},
}

// CascadeResult 单个步骤的影响行数
type CascadeResult struct {
	Table    string `json:"table"`
	Column   string `json:"column"`
	Affected int64  `json:"affected"`
}

// UserDataRepository 员工关联数据清理接口
type UserDataRepository interface {
	// DeleteUserData 按 UserCascade 顺序清理，不删除 profiles 本身
	DeleteUserData(ctx context.Context, userID string) ([]CascadeResult, error)
}

type userDataRepo struct {
	db *gorm.DB
}

// NewUserDataRepo 创建 UserDataRepository 实例
func NewUserDataRepo(db *gorm.DB) UserDataRepository {
	return &userDataRepo{db: db}
}

func (r *userDataRepo) DeleteUserData(ctx context.Context, userID string) ([]CascadeResult, error) {
	results := make([]CascadeResult, 0, len(UserCascade))
	db := r.db.WithContext(ctx)

	for _, step := range UserCascade {
		var sql string
		if step.Delete {
			sql = fmt.Sprintf("DELETE FROM %s WHERE %s = ?", step.Table, step.Column)
		} else {
			sql = fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = ?", step.Table, step.Column, step.Column)
		}

		result := db.Exec(sql, userID)
		if result.Error != nil {
			return results, fmt.Errorf("清理 %s.%s 失败: %w", step.Table, step.Column, result.Error)
		}
		results = append(results, CascadeResult{Table: step.Table, Column: step.Column, Affected: result.RowsAffected})
	}

	return results, nil
}
