package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const keyPrefix = "quickmart:ratelimit:"

// counter increments key and returns the new value together with the time
// left in the current window.
type counter interface {
	incr(ctx context.Context, key string, period time.Duration) (int64, time.Duration, error)
}

type redisCounter struct {
	client redis.Cmdable
}

func (c redisCounter) incr(ctx context.Context, key string, period time.Duration) (int64, time.Duration, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, period)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

// RedisLimiter shares counters across server instances. When Redis is
// unreachable it fails open and logs the error.
type RedisLimiter struct {
	counter counter
	limit   int
	period  time.Duration
	logger  logging.Logger
}

func NewRedisLimiter(client redis.Cmdable, limit int, period time.Duration, logger logging.Logger) *RedisLimiter {
	return &RedisLimiter{
		counter: redisCounter{client: client},
		limit:   limit,
		period:  period,
		logger:  logger.With("module", "ratelimit"),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, ttl, err := l.counter.incr(ctx, keyPrefix+key, l.period)
	if err != nil {
		l.logger.Error(ctx, "rate limit counter failed", "key", key, "error", err)
		return Decision{Allowed: true, Remaining: -1}, fmt.Errorf("rate limit: %w", err)
	}
	if ttl < 0 {
		ttl = l.period
	}
	return decide(count, l.limit, ttl), nil
}

// pingRedis is a test seam.
var pingRedis = func(ctx context.Context, c *redis.Client) error {
	return c.Ping(ctx).Err()
}

// Connect parses url, pings the server with retries and returns the client.
func Connect(ctx context.Context, url string, retries uint64, logger logging.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)

	attempt := 0
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pingRedis(ctx, client); err != nil {
			logger.Warn(ctx, "redis not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info(ctx, "connected to redis", "addr", opt.Addr, "db", opt.DB)
	return client, nil
}
