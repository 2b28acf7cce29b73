package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/verpflegung/meal-api/internal/config"
)

// NewRedis connects to Redis. It returns nil when Redis is not configured or
// not reachable; callers then fall back to in-process stores.
func NewRedis(cfg *config.RedisConfig, log zerolog.Logger) *redis.Client {
	log = log.With().Str("component", "redis").Logger()
	if cfg.Addr == "" {
		log.Info().Msg("Redis disabled, using in-memory stores")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis unreachable, using in-memory stores")
		client.Close()
		return nil
	}

	log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("Redis connection established")
	return client
}
