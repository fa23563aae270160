package service

import (
	"go.uber.org/zap"

	"villasun/backend/config"
	"villasun/backend/internal/repository"
	"villasun/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Schedule     ScheduleService
	Attendance   AttendanceService
	Wheel        WheelService
	Approval     ApprovalService
	Departure    DepartureService
	Patrol       PatrolService
	Points       PointsService
	Goal         GoalService
	Notification NotificationService
	Task         TaskService
	Checklist    ChecklistService
	Export       ExportService
	Upload       UploadService
	Maintenance  MaintenanceService
}

// Deps 可选的外部依赖；为 nil 时对应功能降级
type Deps struct {
	Blacklist    TokenBlacklist   // nil：登出不吊销 Token
	PhotoDemands PhotoDemandStore // nil：使用进程内存储
	Storage      PhotoStorage
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	deps Deps,
	logger *zap.Logger,
) *Service {
	daily := cfg.Goals.DailyAchievablePoints

	patrol := NewPatrolService(repo, &cfg.Patrol, deps.PhotoDemands, daily, logger)
	goals := NewGoalService(repo, daily, logger)
	tasks := NewTaskService(repo, daily, logger)
	checklists := NewChecklistService(repo, daily, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, deps.Blacklist, logger),
		User:         NewUserService(repo, logger),
		Schedule:     NewScheduleService(repo, &cfg.Attendance, logger),
		Attendance:   NewAttendanceService(repo, &cfg.Attendance, logger),
		Wheel:        NewWheelService(repo, daily, logger),
		Approval:     NewApprovalService(repo, daily, logger),
		Departure:    NewDepartureService(repo, logger),
		Patrol:       patrol,
		Points:       NewPointsService(repo, daily, logger),
		Goal:         goals,
		Notification: NewNotificationService(repo, logger),
		Task:         tasks,
		Checklist:    checklists,
		Export:       NewExportService(repo, logger),
		Upload:       NewUploadService(deps.Storage, logger),
		Maintenance:  NewMaintenanceService(repo, patrol, goals, tasks, checklists, cfg.Jobs.NotificationMaxAge, logger),
	}
}
