package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourorg/tenantplane/internal/domain"
)

// Redis is a ResolutionCache backed by a shared Redis instance, for
// deployments running more than one control-plane replica.
type Redis struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewRedis(url string, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{rdb: rdb, logger: logger}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (*domain.ConnectionInfo, bool) {
	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("cache get failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return nil, false
	}
	var info domain.ConnectionInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		r.logger.Warn("cache entry corrupt, dropping", slog.String("key", key))
		r.rdb.Del(ctx, key)
		return nil, false
	}
	return &info, true
}

func (r *Redis) Set(ctx context.Context, key string, info *domain.ConnectionInfo, ttl time.Duration) {
	if info == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		r.logger.Warn("cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (r *Redis) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("cache delete failed", slog.String("error", err.Error()))
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
