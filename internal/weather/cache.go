package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// KV is the subset of *redis.Client the cache uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cache keeps outlooks in Redis for ttl, keyed on coordinates rounded to
// about a kilometre. Redis errors are logged and bypassed.
type Cache struct {
	next Provider
	kv   KV
	ttl  time.Duration
	log  *zap.SugaredLogger
}

func NewCache(next Provider, kv KV, ttl time.Duration, log *zap.SugaredLogger) *Cache {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Cache{next: next, kv: kv, ttl: ttl, log: log}
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("weather:outlook:%.2f:%.2f", lat, lon)
}

func (c *Cache) Outlook(ctx context.Context, lat, lon float64) (entities.WeatherOutlook, error) {
	key := cacheKey(lat, lon)
	data, err := c.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var o entities.WeatherOutlook
		if uerr := json.Unmarshal(data, &o); uerr == nil {
			return o, nil
		}
		c.log.Warnw("weather: corrupt cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.log.Warnw("weather: cache read failed", "key", key, "err", err)
	}

	o, err := c.next.Outlook(ctx, lat, lon)
	if err != nil {
		return o, err
	}
	if b, merr := json.Marshal(o); merr == nil {
		if serr := c.kv.Set(ctx, key, b, c.ttl).Err(); serr != nil {
			c.log.Warnw("weather: cache write failed", "key", key, "err", serr)
		}
	}
	return o, nil
}
