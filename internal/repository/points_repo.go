package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"villasun/backend/internal/model"
)

// PointsRepository 积分流水数据访问接口（仅追加）
type PointsRepository interface {
	Create(ctx context.Context, entry *model.PointsHistory) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.PointsHistory, error)
	// SumByUser 统计 [from, to) 区间内每个员工的积分变动合计
	SumByUser(ctx context.Context, userIDs []string, from, to time.Time) (map[string]int, error)
}

// DailyGoalRepository 每日积分目标数据访问接口
type DailyGoalRepository interface {
	Upsert(ctx context.Context, goals []model.DailyPointGoal) error
	ListByDate(ctx context.Context, date string) ([]model.DailyPointGoal, error)
	GetByUserAndDate(ctx context.Context, userID, date string) (*model.DailyPointGoal, error)
	ListByRange(ctx context.Context, from, to string) ([]model.DailyPointGoal, error)
	// DeleteByDateExcept 删除某日不在 keep 中的员工行（排班取消后清理）
	DeleteByDateExcept(ctx context.Context, date string, keep []string) error
}

// MonthlyGoalRepository 月度积分目标数据访问接口
type MonthlyGoalRepository interface {
	Upsert(ctx context.Context, goals []model.MonthlyPointGoal) error
	ListByMonth(ctx context.Context, month string) ([]model.MonthlyPointGoal, error)
}

// ── Points Repository 实现 ──

type pointsRepo struct {
	db *gorm.DB
}

// NewPointsRepo 创建 PointsRepository 实例
func NewPointsRepo(db *gorm.DB) PointsRepository {
	return &pointsRepo{db: db}
}

func (r *pointsRepo) Create(ctx context.Context, entry *model.PointsHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *pointsRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.PointsHistory, error) {
	var list []model.PointsHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *pointsRepo) SumByUser(ctx context.Context, userIDs []string, from, to time.Time) (map[string]int, error) {
	sums := make(map[string]int, len(userIDs))
	if len(userIDs) == 0 {
		return sums, nil
	}

	var rows []struct {
		UserID string
		Total  int
	}
	err := r.db.WithContext(ctx).
		Model(&model.PointsHistory{}).
		Select("user_id, COALESCE(SUM(points_change), 0) AS total").
		Where("user_id IN ? AND created_at >= ? AND created_at < ?", userIDs, from, to).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		sums[row.UserID] = row.Total
	}
	return sums, nil
}

// ── DailyGoal Repository 实现 ──

type dailyGoalRepo struct {
	db *gorm.DB
}

// NewDailyGoalRepo 创建 DailyGoalRepository 实例
func NewDailyGoalRepo(db *gorm.DB) DailyGoalRepository {
	return &dailyGoalRepo{db: db}
}

func (r *dailyGoalRepo) Upsert(ctx context.Context, goals []model.DailyPointGoal) error {
	if len(goals) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "goal_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"achievable_points", "achieved_points", "percentage", "color_status",
				"team_achievable", "team_achieved", "team_percentage", "team_color_status", "updated_at",
			}),
		}).
		Create(&goals).Error
}

func (r *dailyGoalRepo) ListByDate(ctx context.Context, date string) ([]model.DailyPointGoal, error) {
	var list []model.DailyPointGoal
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("goal_date = ?", date).
		Order("percentage DESC").
		Find(&list).Error
	return list, err
}

func (r *dailyGoalRepo) GetByUserAndDate(ctx context.Context, userID, date string) (*model.DailyPointGoal, error) {
	var goal model.DailyPointGoal
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND goal_date = ?", userID, date).
		First(&goal).Error
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *dailyGoalRepo) ListByRange(ctx context.Context, from, to string) ([]model.DailyPointGoal, error) {
	var list []model.DailyPointGoal
	err := r.db.WithContext(ctx).
		Where("goal_date BETWEEN ? AND ?", from, to).
		Find(&list).Error
	return list, err
}

func (r *dailyGoalRepo) DeleteByDateExcept(ctx context.Context, date string, keep []string) error {
	db := r.db.WithContext(ctx).Where("goal_date = ?", date)
	if len(keep) > 0 {
		db = db.Where("user_id NOT IN ?", keep)
	}
	return db.Delete(&model.DailyPointGoal{}).Error
}

// ── MonthlyGoal Repository 实现 ──

type monthlyGoalRepo struct {
	db *gorm.DB
}

// NewMonthlyGoalRepo 创建 MonthlyGoalRepository 实例
func NewMonthlyGoalRepo(db *gorm.DB) MonthlyGoalRepository {
	return &monthlyGoalRepo{db: db}
}

func (r *monthlyGoalRepo) Upsert(ctx context.Context, goals []model.MonthlyPointGoal) error {
	if len(goals) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "month"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_achievable", "total_achieved", "percentage", "color_status", "updated_at"}),
		}).
		Create(&goals).Error
}

func (r *monthlyGoalRepo) ListByMonth(ctx context.Context, month string) ([]model.MonthlyPointGoal, error) {
	var list []model.MonthlyPointGoal
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("month = ?", month).
		Order("percentage DESC").
		Find(&list).Error
	return list, err
}
