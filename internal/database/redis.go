// internal/database/redis.go
package database

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/learnhub/learnhub-backend/internal/config"
)

// NewRedisClient returns a client for the catalog read cache. The cache is
// strictly best-effort: a nil client (or an unreachable server) only disables
// caching, it never fails a request.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable, catalog cache disabled: %v", err)
		return nil
	}

	log.Println("Connected to Redis")
	return client
}
