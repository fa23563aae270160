package handler

import (
	"go.uber.org/zap"

	"villasun/backend/config"
	"villasun/backend/internal/api/middleware"
	"villasun/backend/internal/realtime"
	"villasun/backend/internal/service"
	"villasun/backend/pkg/jwt"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Schedule     *ScheduleHandler
	Attendance   *AttendanceHandler
	Departure    *DepartureHandler
	Patrol       *PatrolHandler
	Points       *PointsHandler
	Notification *NotificationHandler
	Task         *TaskHandler
	Export       *ExportHandler
	Upload       *UploadHandler
	Maintenance  *MaintenanceHandler
	Realtime     *RealtimeHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(
	cfg *config.Config,
	svc *service.Service,
	jwtMgr *jwt.Manager,
	checker middleware.TokenChecker,
	hub *realtime.Hub,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User, jwtMgr, checker, logger),
		Schedule:     NewScheduleHandler(svc.Schedule),
		Attendance:   NewAttendanceHandler(svc.Attendance, svc.Wheel, svc.Approval),
		Departure:    NewDepartureHandler(svc.Departure),
		Patrol:       NewPatrolHandler(svc.Patrol),
		Points:       NewPointsHandler(svc.Points, svc.Goal),
		Notification: NewNotificationHandler(svc.Notification),
		Task:         NewTaskHandler(svc.Task, svc.Checklist),
		Export:       NewExportHandler(svc.Export),
		Upload:       NewUploadHandler(svc.Upload),
		Maintenance:  NewMaintenanceHandler(svc.Maintenance),
		Realtime:     NewRealtimeHandler(hub, cfg.Realtime.Heartbeat),
	}
}
