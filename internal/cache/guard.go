package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	webhookEventKeyPrefix = "webhook:event"
	sweepLockKeyPrefix    = "lock"
)

// MarkWebhookEventOnce 记录网关事件ID，返回是否首次出现。
// Redis 未启用时按首次处理，由数据库唯一约束兜底。
func MarkWebhookEventOnce(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if !Enabled() || eventID == "" {
		return true, nil
	}
	key := buildKey(fmt.Sprintf("%s:%s", webhookEventKeyPrefix, eventID))
	return redisClient.SetNX(ctx, key, 1, ttl).Result()
}

// AcquireSweepLock 获取定时任务互斥锁，避免多实例并发扫描。
func AcquireSweepLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	name = strings.TrimSpace(name)
	if !Enabled() || name == "" {
		return true, nil
	}
	key := buildKey(fmt.Sprintf("%s:%s", sweepLockKeyPrefix, name))
	return redisClient.SetNX(ctx, key, 1, ttl).Result()
}

// ReleaseSweepLock 释放定时任务互斥锁
func ReleaseSweepLock(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if !Enabled() || name == "" {
		return nil
	}
	return Del(ctx, fmt.Sprintf("%s:%s", sweepLockKeyPrefix, name))
}
