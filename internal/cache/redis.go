package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/changheecho2/banju/internal/config"
)

// ConnectRedis opens the shared Redis client used for the profile cache,
// webhook de-duplication, mock mail and the task queue.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		DB:         cfg.RedisDB,
		ClientName: "banju-" + cfg.RunMode,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.RedisAddr, err)
	}

	log.Printf("Connected to Redis at %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
	return rdb, nil
}

func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	log.Println("Redis connection closed.")
	return nil
}
