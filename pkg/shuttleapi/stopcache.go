package shuttleapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/shuttletrack/pkg/shuttle"
)

const stopCacheKey = "shuttletrack:stops"

type RedisStopCache struct {
	Cache *cache.Cache[string]
}

func NewRedisStopCache(client *redis.Client, expiration time.Duration) *RedisStopCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &RedisStopCache{
		Cache: cache.New[string](redisStore),
	}
}

func (s *RedisStopCache) Store(ctx context.Context, stops []shuttle.Stop) error {
	stopsJSON, err := json.Marshal(stops)
	if err != nil {
		return err
	}

	return s.Cache.Set(ctx, stopCacheKey, string(stopsJSON))
}

func (s *RedisStopCache) Load(ctx context.Context) ([]shuttle.Stop, error) {
	value, err := s.Cache.Get(ctx, stopCacheKey)
	if err != nil {
		return nil, err
	}

	var stops []shuttle.Stop
	err = json.Unmarshal([]byte(value), &stops)

	return stops, err
}
