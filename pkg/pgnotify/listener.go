// Package pgnotify 基于 pgx 的 LISTEN/NOTIFY 监听器
//
// 使用一条独立连接监听指定频道，断线后按退避间隔自动重连。
package pgnotify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Handler 收到通知时的回调，payload 为 pg_notify 的原始字符串
type Handler func(channel, payload string)

// Listener 单连接频道监听器
type Listener struct {
	url        string
	channel    string
	handler    Handler
	logger     *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration

	// session 建立一次监听会话，connected 表示 LISTEN 已成功
	session func(ctx context.Context) (connected bool, err error)
	after   func(d time.Duration) <-chan time.Time
}

// NewListener 创建监听器，url 为 postgres:// 连接串
func NewListener(url, channel string, handler Handler, logger *zap.Logger) *Listener {
	l := &Listener{
		url:        url,
		channel:    channel,
		handler:    handler,
		logger:     logger,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
		after:      time.After,
	}
	l.session = l.listen
	return l
}

// Run 阻塞监听直至 ctx 取消；连接错误时重连
// 会话成功建立过则退避从 minBackoff 重新计算
func (l *Listener) Run(ctx context.Context) {
	backoff := l.minBackoff
	for {
		connected, err := l.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = l.minBackoff
		}
		l.logger.Warn("变更通知监听中断，准备重连",
			zap.String("channel", l.channel),
			zap.Bool("connected", connected),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return
		case <-l.after(backoff):
		}

		backoff = nextBackoff(backoff, l.maxBackoff)
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	cur *= 2
	if cur > max {
		return max
	}
	return cur
}

func (l *Listener) listen(ctx context.Context) (bool, error) {
	conn, err := pgx.Connect(ctx, l.url)
	if err != nil {
		return false, fmt.Errorf("连接数据库失败: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return false, fmt.Errorf("LISTEN 失败: %w", err)
	}
	l.logger.Info("开始监听变更通知", zap.String("channel", l.channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return true, nil
			}
			return true, err
		}
		l.handler(n.Channel, n.Payload)
	}
}
