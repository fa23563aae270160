package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	AuthIdentity    AuthIdentityRepository
	Profile         ProfileRepository
	ShiftAssignment ShiftAssignmentRepository
	CheckIn         CheckInRepository
	FortuneWheel    FortuneWheelRepository
	Departure       DepartureRepository
	PatrolLocation  PatrolLocationRepository
	PatrolSchedule  PatrolScheduleRepository
	PatrolRound     PatrolRoundRepository
	PatrolScan      PatrolScanRepository
	Points          PointsRepository
	DailyGoal       DailyGoalRepository
	MonthlyGoal     MonthlyGoalRepository
	Notification    NotificationRepository
	AdminLog        AdminLogRepository
	UserData        UserDataRepository

	Task              TaskRepository
	Checklist         ChecklistRepository
	ChecklistInstance ChecklistInstanceRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:              db,
		AuthIdentity:    NewAuthIdentityRepo(db),
		Profile:         NewProfileRepo(db),
		ShiftAssignment: NewShiftAssignmentRepo(db),
		CheckIn:         NewCheckInRepo(db),
		FortuneWheel:    NewFortuneWheelRepo(db),
		Departure:       NewDepartureRepo(db),
		PatrolLocation:  NewPatrolLocationRepo(db),
		PatrolSchedule:  NewPatrolScheduleRepo(db),
		PatrolRound:     NewPatrolRoundRepo(db),
		PatrolScan:      NewPatrolScanRepo(db),
		Points:          NewPointsRepo(db),
		DailyGoal:       NewDailyGoalRepo(db),
		MonthlyGoal:     NewMonthlyGoalRepo(db),
		Notification:    NewNotificationRepo(db),
		AdminLog:        NewAdminLogRepo(db),
		UserData:        NewUserDataRepo(db),

		Task:              NewTaskRepo(db),
		Checklist:         NewChecklistRepo(db),
		ChecklistInstance: NewChecklistInstanceRepo(db),
	}
}

// Transaction 在同一事务中执行 fn，fn 返回错误时整体回滚
// db 为 nil（单元测试注入 mock 仓储）时直接以当前聚合执行 fn
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
