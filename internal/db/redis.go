package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedis returns a client for addr, or nil when addr is empty. A failed
// ping is logged but not fatal: callers treat redis as optional.
func NewRedis(addr, password string, db int, log *zap.Logger) *redis.Client {
	if addr == "" {
		log.Info("REDIS_ADDR not set, question set cache disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Error connecting to Redis", zap.String("addr", addr), zap.Error(err))
	}
	return client
}
