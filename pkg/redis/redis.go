package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"villasun/backend/config"
)

// Client Redis 客户端封装
// 用于 Token 黑名单、分布式限流、巡逻拍照要求的短期记忆
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 滑动窗口限流 ──

// CheckRateLimit 在 key 上记录一次请求，返回窗口内是否仍未超限
// 使用 ZSET：成员为请求唯一 ID，分值为纳秒时间戳
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixNano()
	windowStart := now - window.Nanoseconds()

	var countCmd *goredis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
		pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now), Member: uuid.NewString()})
		countCmd = pipe.ZCard(ctx, key)
		pipe.PExpire(ctx, key, window)
		return nil
	})
	if err != nil {
		return false, err
	}

	return countCmd.Val() <= int64(limit), nil
}

// ── 巡逻拍照要求 ──

const photoDemandPrefix = "patrol:photo:"

func photoDemandKey(roundID, locationID string) string {
	return photoDemandPrefix + roundID + ":" + locationID
}

// RememberPhotoDemand 记录某轮某地点已要求拍照，ttl 后自动失效
func (c *Client) RememberPhotoDemand(ctx context.Context, roundID, locationID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, photoDemandKey(roundID, locationID), "1", ttl).Err()
}

// HasPhotoDemand 查询某轮某地点是否有未完成的拍照要求
func (c *Client) HasPhotoDemand(ctx context.Context, roundID, locationID string) (bool, error) {
	err := c.rdb.Get(ctx, photoDemandKey(roundID, locationID)).Err()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ClearPhotoDemand 拍照补交后清除要求
func (c *Client) ClearPhotoDemand(ctx context.Context, roundID, locationID string) error {
	return c.rdb.Del(ctx, photoDemandKey(roundID, locationID)).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
