// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"rentflow/config"

	"github.com/go-redis/redis/v8"
)

var (
	// SessionCacheClient holds active wizard sessions.
	SessionCacheClient *redis.Client
	// RateLimitCacheClient holds submission lockout state.
	RateLimitCacheClient *redis.Client
)

// InitSessionCache initializes the Redis client for wizard session storage.
func InitSessionCache() {
	SessionCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSessionDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := SessionCacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Sessions): %v", err)
	}
}

// GetSessionCacheClient returns the wizard session cache client.
func GetSessionCacheClient() *redis.Client {
	if SessionCacheClient == nil {
		InitSessionCache()
	}
	return SessionCacheClient
}

// InitRateLimitCache initializes the Redis client for lockout persistence.
func InitRateLimitCache() {
	RateLimitCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisRateLimitDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := RateLimitCacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (RateLimit): %v", err)
	}
}

// GetRateLimitCacheClient returns the Redis client for lockout persistence.
func GetRateLimitCacheClient() *redis.Client {
	if RateLimitCacheClient == nil {
		InitRateLimitCache()
	}
	return RateLimitCacheClient
}

// InitRedis initializes all Redis clients eagerly at startup.
func InitRedis() {
	InitSessionCache()
	InitRateLimitCache()
}
