// Package cache Redis 封装：被删除账号的吊销标记和评审人目录缓存。
// 未配置 Redis 时 Client 为 nil，所有函数退化为无操作
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"extension-portal/config"
	"extension-portal/internal/global/sentry/tracing"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

const (
	revokedKeyPrefix = "portal:revoked:"
	reviewersKey     = "portal:reviewers"
	// ReviewersTTL 评审人目录缓存时间
	ReviewersTTL = 5 * time.Minute
)

// Init 未配置 host 时跳过
func Init(ctx context.Context) error {
	cfg := config.Get().Redis
	if cfg.Host == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if tracing.IsEnabled() {
		rdb.AddHook(tracing.NewRedisHook())
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("连接 Redis 失败: %w", err)
	}
	Client = rdb
	return nil
}

// Revoke 标记账号已吊销，ttl 取令牌最长有效期即可
func Revoke(ctx context.Context, userID uint, ttl time.Duration) error {
	if Client == nil {
		return nil
	}
	return Client.Set(ctx, fmt.Sprintf("%s%d", revokedKeyPrefix, userID), 1, ttl).Err()
}

// IsRevoked Redis 不可用时视为未吊销，由数据库兜底
func IsRevoked(ctx context.Context, userID uint) bool {
	if Client == nil {
		return false
	}
	n, err := Client.Exists(ctx, fmt.Sprintf("%s%d", revokedKeyPrefix, userID)).Result()
	return err == nil && n > 0
}

// GetJSON 读取缓存，未命中返回 false
func GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if Client == nil {
		return false, nil
	}
	data, err := Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if Client == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return Client.Set(ctx, key, data, ttl).Err()
}

func Delete(ctx context.Context, keys ...string) error {
	if Client == nil || len(keys) == 0 {
		return nil
	}
	return Client.Del(ctx, keys...).Err()
}

// ReviewersKey 评审人目录的缓存 key，账号增删时需要失效
func ReviewersKey() string {
	return reviewersKey
}
