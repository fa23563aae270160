package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"villasun/backend/config"
	"villasun/backend/internal/api/handler"
	"villasun/backend/internal/api/middleware"
	"villasun/backend/internal/api/router"
	"villasun/backend/internal/jobs"
	"villasun/backend/internal/realtime"
	"villasun/backend/internal/repository"
	"villasun/backend/internal/service"
	"villasun/backend/pkg/database"
	"villasun/backend/pkg/jwt"
	applogger "villasun/backend/pkg/logger"
	"villasun/backend/pkg/pgnotify"
	"villasun/backend/pkg/redis"
	"villasun/backend/pkg/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("VILLASUN_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	// 接口变量只在连接成功时赋值，避免 nil 指针被包装成非 nil 接口
	var (
		blacklist    service.TokenBlacklist
		photoDemands service.PhotoDemandStore
		checker      middleware.TokenChecker
		limiter      middleware.RateLimiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与分布式限流将降级", zap.Error(err))
		rdb = nil
	} else {
		blacklist, photoDemands, checker, limiter = rdb, rdb, rdb, rdb
	}

	// 5. 照片存储
	store, err := storage.NewLocal(cfg.Storage.UploadDir, cfg.Storage.PublicURL, cfg.Storage.MaxBytes)
	if err != nil {
		logger.Fatal("初始化上传目录失败", zap.Error(err))
	}

	// 6. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, service.Deps{
		Blacklist:    blacklist,
		PhotoDemands: photoDemands,
		Storage:      store,
	}, logger)

	hub := realtime.NewHub(cfg.Realtime.Buffer, logger)
	h := handler.NewHandler(cfg, svc, jwtMgr, checker, hub, logger)

	// 8. 后台任务：变更通知监听、每日重置
	bgCtx, stopBackground := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	if cfg.Realtime.Enabled {
		listener := pgnotify.NewListener(cfg.Database.URL(), cfg.Realtime.Channel, hub.HandleNotification, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			listener.Run(bgCtx)
		}()
	}

	jobs.StartDailyResetJob(bgCtx, cfg.Jobs, svc.Maintenance, logger)

	// 9. 初始化路由
	engine := router.Setup(cfg, h, router.Deps{
		JWT:     jwtMgr,
		Checker: checker,
		Limiter: limiter,
		DB:      db,
	}, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	// 实时推送为长连接，不设置 WriteTimeout
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	// 先关闭 Hub，结束所有 SSE 连接，Shutdown 才不会等待长连接
	hub.Close()
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	wg.Wait()

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
