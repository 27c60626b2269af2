package db

import (
	"github.com/redis/go-redis/v9"

	"github.com/ExploreWilder/MainWebsite/internal/config"
)

// ConnectRedis returns nil when no address is configured; the stream hub
// then only reaches local clients.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
