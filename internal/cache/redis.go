// Package cache holds the Redis-backed category tree cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Connect creates a Redis client and verifies the connection with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// ConnectOptional returns nil when addr is empty or Redis cannot be reached.
func ConnectOptional(ctx context.Context, addr, password string, db int, logger *zap.Logger) *redis.Client {
	if addr == "" {
		return nil
	}
	client, err := Connect(ctx, addr, password, db)
	if err != nil {
		logger.Warn("redis unavailable, category cache disabled", zap.Error(err))
		return nil
	}
	logger.Info("redis connected", zap.String("addr", addr))
	return client
}
