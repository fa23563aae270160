package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"villasun/backend/config"
	"villasun/backend/internal/api/handler"
	"villasun/backend/internal/api/middleware"
	"villasun/backend/pkg/jwt"
)

// multipart 表单头等额外开销
const uploadOverhead = 1 << 20

// Deps 路由所需的外部依赖；checker 与 limiter 可为 nil
type Deps struct {
	JWT     *jwt.Manager
	Checker middleware.TokenChecker
	Limiter middleware.RateLimiter
	DB      *gorm.DB
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(corsByPath(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.RateLimit(deps.Limiter, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger))

	auth := middleware.JWTAuth(deps.JWT, deps.Checker, logger)
	admin := middleware.AdminOnly()

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if deps.DB != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			sqlDB, err := deps.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── 上传文件静态访问 ──
	if strings.HasPrefix(cfg.Storage.PublicURL, "/") {
		r.Static(cfg.Storage.PublicURL, cfg.Storage.UploadDir)
	}

	// ── delete-user 函数（响应格式沿用前端约定，自行校验会话） ──
	functions := r.Group("/functions/v1", middleware.BodyLimit(cfg.Server.BodyLimitBytes))
	{
		functions.POST("/delete-user", h.User.DeleteUserFunction)
		functions.OPTIONS("/delete-user", func(c *gin.Context) { c.Status(http.StatusOK) })
	}

	// ── 照片上传（独立的请求体上限） ──
	uploads := r.Group("/api/v1/uploads", middleware.BodyLimit(cfg.Storage.MaxBytes+uploadOverhead), auth)
	{
		uploads.POST("/photos", h.Upload.Upload)
	}

	// ── 实时推送（EventSource 通过查询参数携带 Token） ──
	r.GET("/api/v1/realtime", middleware.TokenFromQuery(), auth, h.Realtime.Stream)

	// ── API v1 ──
	v1 := r.Group("/api/v1", middleware.BodyLimit(cfg.Server.BodyLimitBytes))
	{
		// 认证模块（无需认证）
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", h.Auth.Login)
			authGroup.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(auth)
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 排班
			schedules := authorized.Group("/schedules")
			{
				schedules.GET("/my", h.Schedule.MyWeek)
				schedules.GET("/my.ics", h.Schedule.MyCalendar)
				schedules.GET("/today", h.Schedule.Today)
			}

			// 签到与转盘
			attendance := authorized.Group("/attendance")
			{
				attendance.GET("/eligibility", h.Attendance.Eligibility)
				attendance.POST("/check-in", h.Attendance.CheckIn)
				attendance.GET("/today", h.Attendance.Today)
				attendance.GET("/history", h.Attendance.History)
			}
			wheel := authorized.Group("/wheel")
			{
				wheel.POST("/spin", h.Attendance.Spin)
				wheel.GET("/status", h.Attendance.WheelStatus)
			}

			// 离岗申请
			departures := authorized.Group("/departures")
			{
				departures.POST("", h.Departure.Create)
				departures.GET("/my", h.Departure.ListMine)
			}

			// 巡逻
			patrol := authorized.Group("/patrol")
			{
				patrol.GET("/today", h.Patrol.Today)
				patrol.POST("/scan", h.Patrol.Scan)
				patrol.GET("/locations", h.Patrol.ListLocations)
			}

			// 积分与目标
			authorized.GET("/points/history", h.Points.History)
			authorized.GET("/points/leaderboard", h.Points.Leaderboard)
			authorized.GET("/goals/my", h.Points.MyDailyGoal)

			// 通知
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListMine)
				notifications.POST("/read-all", h.Notification.MarkAllRead)
				notifications.POST("/:id/read", h.Notification.MarkRead)
			}

			// 任务与清单
			tasks := authorized.Group("/tasks")
			{
				tasks.GET("/my", h.Task.ListMine)
				tasks.POST("/:id/claim", h.Task.Claim)
				tasks.POST("/:id/items/toggle", h.Task.ToggleItem)
				tasks.POST("/:id/submit", h.Task.Submit)
			}
			checklists := authorized.Group("/checklists")
			{
				checklists.GET("/my", h.Task.ListMyChecklists)
				checklists.POST("/:id/items/toggle", h.Task.ToggleChecklistItem)
				checklists.POST("/:id/submit", h.Task.SubmitChecklist)
			}

			// 员工管理
			users := authorized.Group("/users", admin)
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.POST("/import", h.User.ImportUsers)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser)
				users.DELETE("/:id", h.User.DeleteUser)
				users.POST("/:id/reset-password", h.User.ResetPassword)
			}

			// 管理端
			adm := authorized.Group("/admin", admin)
			{
				adm.GET("/schedules/week", h.Schedule.GetWeek)
				adm.PUT("/schedules/week", h.Schedule.UpsertWeek)
				adm.POST("/schedules/publish", h.Schedule.PublishWeek)

				adm.POST("/attendance/manual", h.Attendance.ManualCheckIn)
				adm.POST("/attendance/checkout", h.Attendance.Checkout)
				adm.GET("/attendance/active", h.Attendance.ListActive)

				adm.GET("/approvals", h.Attendance.ListPending)
				adm.POST("/approvals/:id/approve", h.Attendance.Approve)
				adm.POST("/approvals/:id/reject", h.Attendance.Reject)

				adm.GET("/departures", h.Departure.ListPending)
				adm.POST("/departures/:id/approve", h.Departure.Approve)
				adm.POST("/departures/:id/reject", h.Departure.Reject)

				adm.POST("/patrol/locations", h.Patrol.CreateLocation)
				adm.GET("/patrol/schedules", h.Patrol.ListSchedules)
				adm.PUT("/patrol/schedules", h.Patrol.SetSchedule)
				adm.GET("/patrol/rounds", h.Patrol.ListRounds)
				adm.POST("/patrol/rounds", h.Patrol.EnsureRounds)
				adm.POST("/patrol/test-scan", h.Patrol.TestScan)

				adm.POST("/points/adjust", h.Points.Adjust)
				adm.POST("/points/reset", h.Points.ResetAll)
				adm.GET("/goals/daily", h.Points.DailyGoals)
				adm.GET("/goals/monthly", h.Points.MonthlyGoals)
				adm.POST("/goals/refresh", h.Points.RefreshGoals)

				adm.GET("/tasks", h.Task.List)
				adm.POST("/tasks", h.Task.Create)
				adm.POST("/tasks/:id/review", h.Task.Review)
				adm.DELETE("/tasks/:id", h.Task.Delete)
				adm.GET("/checklists", h.Task.ListChecklists)
				adm.POST("/checklists", h.Task.CreateChecklist)
				adm.DELETE("/checklists/:id", h.Task.DeactivateChecklist)
				adm.POST("/checklists/generate", h.Task.GenerateChecklists)
				adm.GET("/checklists/review", h.Task.ListChecklistReviews)
				adm.POST("/checklists/instances/:id/review", h.Task.ReviewChecklist)

				adm.GET("/logs", h.Notification.AdminLogs)
				adm.GET("/export/check-ins", h.Export.ExportCheckIns)
				adm.POST("/maintenance/daily-reset", h.Maintenance.DailyReset)
			}
		}
	}

	return r
}

// corsByPath /functions/ 下对任意来源开放，其余接口使用白名单
// 需注册为全局中间件，未注册路由的预检请求也能得到应答
func corsByPath(allowOrigins []string) gin.HandlerFunc {
	app := middleware.CORS(allowOrigins)
	functions := middleware.FunctionsCORS()
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/functions/") {
			functions(c)
			return
		}
		app(c)
	}
}
