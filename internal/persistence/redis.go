package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration. The
// service tolerates Redis being down; callers that depend on it must
// degrade gracefully.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// StreamGuard serializes AI reply streams per ticket with a SETNX
// lock. Serialization is best-effort: when Redis is unreachable the
// guard reports the lock as acquired and concurrent streams proceed
// independently.
type StreamGuard struct {
	redis  *Redis
	ttl    time.Duration
	logger *zap.Logger
}

// NewStreamGuard builds a guard with the given lock TTL.
func NewStreamGuard(r *Redis, ttl time.Duration, logger *zap.Logger) *StreamGuard {
	return &StreamGuard{redis: r, ttl: ttl, logger: logger}
}

// Acquire attempts to take the per-ticket lock. It returns false only
// when another stream verifiably holds the lock.
func (g *StreamGuard) Acquire(ctx context.Context, ticketID string) bool {
	if g == nil || g.redis == nil || g.redis.Client == nil {
		return true
	}
	ok, err := g.redis.Client.SetNX(ctx, g.lockKey(ticketID), "1", g.ttl).Result()
	if err != nil {
		g.logger.Warn("stream guard unavailable", zap.Error(err))
		return true
	}
	return ok
}

// Release drops the per-ticket lock.
func (g *StreamGuard) Release(ctx context.Context, ticketID string) {
	if g == nil || g.redis == nil || g.redis.Client == nil {
		return
	}
	if err := g.redis.Client.Del(ctx, g.lockKey(ticketID)).Err(); err != nil {
		g.logger.Warn("stream guard release failed", zap.Error(err))
	}
}

func (g *StreamGuard) lockKey(ticketID string) string {
	return "ai_stream_lock:" + ticketID
}
