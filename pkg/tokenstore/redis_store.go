package tokenstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisTokenStore 基于Redis的会话令牌存储
// 键空间按租户隔离：
//
//	{prefix}:refresh:{tenant_id}:{user_id} -> 刷新令牌字符串（每用户每租户仅一个有效）
//	{prefix}:blacklist:{tenant_id}:{token} -> 占位标记，TTL等于令牌剩余有效期
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// NewRedisTokenStore 创建令牌存储实例
func NewRedisTokenStore(config *Config) *RedisTokenStore {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "authhub"
	}

	return &RedisTokenStore{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

// Ping 测试Redis连接
func (s *RedisTokenStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveRefresh 保存刷新令牌
// SET为原子替换：并发刷新时最后写入者胜出，被替换的旧令牌在下次校验时失效
func (s *RedisTokenStore) SaveRefresh(ctx context.Context, tenantID, userID uint, token string, ttl time.Duration) error {
	return s.client.Set(ctx, s.refreshKey(tenantID, userID), token, ttl).Err()
}

// GetRefresh 获取当前刷新令牌，不存在时返回空字符串
func (s *RedisTokenStore) GetRefresh(ctx context.Context, tenantID, userID uint) (string, error) {
	val, err := s.client.Get(ctx, s.refreshKey(tenantID, userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// DeleteRefresh 删除刷新令牌
func (s *RedisTokenStore) DeleteRefresh(ctx context.Context, tenantID, userID uint) error {
	return s.client.Del(ctx, s.refreshKey(tenantID, userID)).Err()
}

// VerifyRefresh 校验刷新令牌是否为当前有效令牌（精确字符串匹配）
func (s *RedisTokenStore) VerifyRefresh(ctx context.Context, tenantID, userID uint, token string) (bool, error) {
	stored, err := s.GetRefresh(ctx, tenantID, userID)
	if err != nil {
		return false, err
	}
	return stored != "" && stored == token, nil
}

// AddToBlacklist 将访问令牌加入黑名单
// TTL取令牌剩余有效期，条目随令牌自然过期，黑名单不会无限增长
func (s *RedisTokenStore) AddToBlacklist(ctx context.Context, tenantID uint, token string, ttl time.Duration) error {
	if ttl <= 0 {
		// 已过期的令牌无需入黑名单
		return nil
	}
	return s.client.Set(ctx, s.blacklistKey(tenantID, token), "1", ttl).Err()
}

// IsBlacklisted 检查访问令牌是否在黑名单中
func (s *RedisTokenStore) IsBlacklisted(ctx context.Context, tenantID uint, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.blacklistKey(tenantID, token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeAll 撤销用户的刷新令牌（尽力而为）
// 只删除刷新条目；已签发且未过期的访问令牌需调用方显式通过AddToBlacklist撤销
func (s *RedisTokenStore) RevokeAll(ctx context.Context, tenantID, userID uint) error {
	return s.DeleteRefresh(ctx, tenantID, userID)
}

func (s *RedisTokenStore) refreshKey(tenantID, userID uint) string {
	return fmt.Sprintf("%s:refresh:%d:%d", s.prefix, tenantID, userID)
}

func (s *RedisTokenStore) blacklistKey(tenantID uint, token string) string {
	return fmt.Sprintf("%s:blacklist:%d:%s", s.prefix, tenantID, token)
}

// TokenPrefix 日志用令牌前缀，避免完整令牌落入日志
func TokenPrefix(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
