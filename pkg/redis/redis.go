package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shelfmate/backend/config"
)

// Client Redis 客户端封装
// 当前用于发放会话锁与接口限流；后续可扩展缓存等场景
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

// ── 发放会话锁 ──

const sessionLockPrefix = "distribution:lock:"

// AcquireSessionLock 以 SETNX 获取指定会话的互斥锁
// token 用于释放校验，防止误删他人持有的锁；返回 false 表示会话已被占用
func (c *Client) AcquireSessionLock(ctx context.Context, sessionID, token string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, sessionLockPrefix+sessionID, token, ttl).Result()
}

// releaseScript 仅当锁仍由 token 持有时删除，保证释放的原子性
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleaseSessionLock 释放会话锁
func (c *Client) ReleaseSessionLock(ctx context.Context, sessionID, token string) error {
	return releaseScript.Run(ctx, c.rdb, []string{sessionLockPrefix + sessionID}, token).Err()
}

// ── 接口限流 ──

// CheckRateLimit 固定窗口限流：窗口内计数超过 limit 时返回 false
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
