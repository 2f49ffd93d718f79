package database

import (
	"sync"

	"authhub/pkg/config"
	"authhub/pkg/tokenstore"
)

var (
	tokenStoreInstance *tokenstore.RedisTokenStore
	tokenStoreOnce     sync.Once
)

// GetTokenStore 获取令牌存储的单例实例
func GetTokenStore() *tokenstore.RedisTokenStore {
	tokenStoreOnce.Do(func() {
		cfg := config.GetConfig()
		tokenStoreInstance = tokenstore.NewRedisTokenStore(&tokenstore.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	})
	return tokenStoreInstance
}

// CloseTokenStore 关闭Redis连接
func CloseTokenStore() error {
	if tokenStoreInstance != nil {
		return tokenStoreInstance.Close()
	}
	return nil
}
