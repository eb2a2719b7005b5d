package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/arashthr/shelf/internal/config"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "shelf:ratelimit:"

// RedisLimiter is a fixed window limiter shared by every server instance.
type RedisLimiter struct {
	Client redis.Cmdable
	Limit  int
	Window time.Duration
}

// Connect opens a Redis client and checks it answers.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := keyPrefix + key

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("count attempt: %w", err)
	}

	count := int(incr.Val())
	remaining := ttl.Val()
	if remaining < 0 {
		// First hit of the window, or a key left without expiry.
		if err := l.Client.Expire(ctx, redisKey, l.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("set window expiry: %w", err)
		}
		remaining = l.Window
	}

	if count > l.Limit {
		return Decision{Allowed: false, Limit: l.Limit, RetryAfter: remaining}, nil
	}
	return Decision{Allowed: true, Limit: l.Limit, Remaining: l.Limit - count}, nil
}
