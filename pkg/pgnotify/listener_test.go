package pgnotify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// scriptedListener 按 outcomes 顺序返回会话结果，用尽后取消 ctx
func scriptedListener(t *testing.T, outcomes []bool) (*Listener, *[]time.Duration, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	l := NewListener("postgres://unused", "table_changes", func(string, string) {}, zap.NewNop())
	l.minBackoff = time.Second
	l.maxBackoff = 8 * time.Second

	calls := 0
	l.session = func(context.Context) (bool, error) {
		if calls == len(outcomes) {
			cancel()
			return false, context.Canceled
		}
		connected := outcomes[calls]
		calls++
		return connected, errors.New("connection reset")
	}

	waits := []time.Duration{}
	l.after = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
	return l, &waits, ctx
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, nextBackoff(20*time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, nextBackoff(30*time.Second, 30*time.Second))
}

func TestRun_BackoffGrowsWhileConnectFails(t *testing.T) {
	l, waits, ctx := scriptedListener(t, []bool{false, false, false, false, false})

	l.Run(ctx)

	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second,
	}, *waits)
}

func TestRun_BackoffResetsAfterEstablishedSession(t *testing.T) {
	// 三次连接失败后成功监听一段时间再断开，之后应从 minBackoff 重新计算
	l, waits, ctx := scriptedListener(t, []bool{false, false, false, true, false})

	l.Run(ctx)

	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, time.Second, 2 * time.Second,
	}, *waits)
}

func TestRun_StopsOnCancel(t *testing.T) {
	l, waits, ctx := scriptedListener(t, nil)

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run 未在 ctx 取消后返回")
	}
	assert.Empty(t, *waits)
}
