// Package redis 提供基于 Redis 的会话键值缓存。
// 配置了 Redis 时，过滤条件、向导状态等会话数据走这里而不落库。
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mailadmin/backend/internal/storage"
)

// SessionCache Redis 会话缓存
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache 创建会话缓存并验证连接
func NewSessionCache(addr, password string, db int, ttl time.Duration) (*SessionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	return &SessionCache{client: client, ttl: ttl}, nil
}

func sessionKey(accountID, key string) string {
	return fmt.Sprintf("session:%s:%s", accountID, key)
}

// SetSessionValue 写入会话键值，按 TTL 过期
func (c *SessionCache) SetSessionValue(accountID, key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return c.client.Set(ctx, sessionKey(accountID, key), value, c.ttl).Err()
}

// GetSessionValue 读取会话键值
func (c *SessionCache) GetSessionValue(accountID, key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	value, err := c.client.Get(ctx, sessionKey(accountID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrSessionKeyNotFound
		}
		return "", err
	}
	return value, nil
}

// DeleteSessionValue 删除会话键值
func (c *SessionCache) DeleteSessionValue(accountID, key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return c.client.Del(ctx, sessionKey(accountID, key)).Err()
}

// Close 关闭连接
func (c *SessionCache) Close() error {
	return c.client.Close()
}

// Health 健康检查
func (c *SessionCache) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}
