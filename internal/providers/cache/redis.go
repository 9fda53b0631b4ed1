package cache

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redisprov "forumcore/internal/providers/redis"
)

// Redis is the provider-backed Store for deployments where several
// processes must share one cache generation. Entries persist until
// explicit invalidation unless the provider carries a default TTL.
type Redis struct {
	provider *redisprov.RedisProvider
	logger   *zap.SugaredLogger
}

func NewRedis(provider *redisprov.RedisProvider, logger *zap.Logger) *Redis {
	return &Redis{
		provider: provider,
		logger:   logger.Sugar(),
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := r.provider.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			r.logger.Warnw("Cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return raw, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.provider.Set(ctx, key, value).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.provider.Del(ctx, keys...).Err()
}

func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := prefix + "*"
	var cursor uint64
	deleted := 0
	for {
		keys, cur, err := r.provider.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			r.logger.Warnw("Cache scan failed during invalidation", "pattern", pattern, "error", err)
			return err
		}
		if len(keys) > 0 {
			n, err := r.provider.Del(ctx, keys...).Result()
			if err != nil {
				r.logger.Warnw("Failed to delete cache keys", "keys", keys, "error", err)
				return err
			}
			deleted += int(n)
		}
		if cur == 0 {
			break
		}
		cursor = cur
	}
	if deleted > 0 {
		r.logger.Debugw("Cache entries invalidated", "pattern", pattern, "deleted_keys", deleted)
	}
	return nil
}
