package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"villasun/backend/config"
	"villasun/backend/internal/dto"
	"villasun/backend/internal/service"
)

type fakeResetter struct {
	calls    atomic.Int32
	adminSet atomic.Bool
	err      error
}

func (f *fakeResetter) DailyReset(ctx context.Context, admin *service.Actor) (*dto.DailyResetResult, error) {
	f.calls.Add(1)
	if admin != nil {
		f.adminSet.Store(true)
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("缺少超时")
	}
	return &dto.DailyResetResult{}, f.err
}

func TestStartDailyResetJob_RunsImmediatelyAndOnTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &fakeResetter{}
	StartDailyResetJob(ctx, config.JobsConfig{
		DailyResetEnabled:  true,
		DailyResetInterval: 10 * time.Millisecond,
		DailyResetTimeout:  time.Second,
	}, fake, zap.NewNop())

	require.Eventually(t, func() bool { return fake.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.False(t, fake.adminSet.Load(), "定时任务不应携带管理员身份")

	cancel()
	time.Sleep(30 * time.Millisecond)
	stopped := fake.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, fake.calls.Load(), "ctx 取消后不应继续执行")
}

func TestStartDailyResetJob_KeepsRunningAfterError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &fakeResetter{err: errors.New("db down")}
	StartDailyResetJob(ctx, config.JobsConfig{
		DailyResetEnabled:  true,
		DailyResetInterval: 10 * time.Millisecond,
	}, fake, zap.NewNop())

	require.Eventually(t, func() bool { return fake.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestStartDailyResetJob_Disabled(t *testing.T) {
	fake := &fakeResetter{}
	StartDailyResetJob(context.Background(), config.JobsConfig{}, fake, zap.NewNop())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), fake.calls.Load())
}
