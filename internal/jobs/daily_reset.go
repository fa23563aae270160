package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"villasun/backend/config"
	"villasun/backend/internal/dto"
	"villasun/backend/internal/service"
)

// DailyResetter 每日维护的执行方（service.MaintenanceService）
type DailyResetter interface {
	DailyReset(ctx context.Context, admin *service.Actor) (*dto.DailyResetResult, error)
}

// StartDailyResetJob 启动时先执行一次，之后按间隔重复
// 所有步骤均幂等，重复执行只会补齐缺失的数据
func StartDailyResetJob(ctx context.Context, cfg config.JobsConfig, maintenance DailyResetter, logger *zap.Logger) {
	if !cfg.DailyResetEnabled {
		logger.Info("每日维护任务未启用")
		return
	}
	interval := cfg.DailyResetInterval
	if interval <= 0 {
		interval = time.Hour
	}
	timeout := cfg.DailyResetTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	run := func() {
		tickCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		result, err := maintenance.DailyReset(tickCtx, nil)
		if err != nil {
			logger.Error("每日维护任务失败", zap.Error(err))
			return
		}
		if len(result.FailedSteps) > 0 {
			logger.Warn("每日维护部分步骤失败", zap.Strings("failed_steps", result.FailedSteps))
		}
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		run()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
