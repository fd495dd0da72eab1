package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/storage/redis"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/GuildPay/internal/pkg/config"
)

// NewClient connects to the Redis-compatible cache and reports whether it answered.
// The client is returned even when the ping fails so callers can decide to degrade.
func NewClient(ctx context.Context, cfg config.Cache) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warnf("[Cache] Could not connect to cache at %s: %v", cfg.Addr(), err)
		return client, err
	}
	log.Infof("[Cache] Connected to %s", cfg.Addr())
	return client, nil
}

// NewLimiterStorage returns fiber storage for the rate limiter, on a separate
// database so limiter keys never mix with lease and stats keys.
func NewLimiterStorage(cfg config.Cache) *redis.Storage {
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     atoiOr(cfg.Port, 6379),
		Password: cfg.Password,
		Database: 1,
	})
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
