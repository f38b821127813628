package database

import (
	"context"
	"fmt"
	"time"

	"github.com/meddiag/platform/pkg/common/config"
	"github.com/meddiag/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// NewRedis builds a client and pings it once. A failed ping is logged, not
// fatal: the cache is optional for the prediction path.
func NewRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.WithError(err).Error("Failed to connect to Redis")
	} else {
		logger.Log.Info("Connected to Redis")
	}

	return client
}
