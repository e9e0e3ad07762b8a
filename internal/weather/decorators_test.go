package weather

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

type countingProvider struct {
	outlook entities.WeatherOutlook
	err     error
	calls   int
}

func (p *countingProvider) Outlook(context.Context, float64, float64) (entities.WeatherOutlook, error) {
	p.calls++
	return p.outlook, p.err
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	up := &countingProvider{err: errors.New("down")}
	b := NewBreaker(up, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := b.Outlook(ctx, 0, 0)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Outlook(ctx, 0, 0)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, up.calls)
}

func TestBreakerPassesThrough(t *testing.T) {
	up := &countingProvider{outlook: entities.WeatherOutlook{RainMM: 7, RainExpected: true}}
	o, err := NewBreaker(up, 3, time.Second).Outlook(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, o.RainExpected)
}

// memKV fakes the two Redis commands the cache issues.
type memKV struct {
	data   map[string][]byte
	ttl    time.Duration
	getErr error
}

func (m *memKV) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (m *memKV) Set(ctx context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	m.data[key] = value.([]byte)
	m.ttl = exp
	return redis.NewStatusResult("OK", nil)
}

func TestCacheStoresAndServes(t *testing.T) {
	up := &countingProvider{outlook: entities.WeatherOutlook{RainMM: 8, RainExpected: true, Window: 48 * time.Hour}}
	kv := &memKV{data: map[string][]byte{}}
	c := NewCache(up, kv, 30*time.Minute, nil)
	ctx := context.Background()

	first, err := c.Outlook(ctx, 41.9012, 12.4964)
	require.NoError(t, err)
	second, err := c.Outlook(ctx, 41.9031, 12.4951)
	require.NoError(t, err)

	assert.Equal(t, 1, up.calls)
	assert.Equal(t, first.RainMM, second.RainMM)
	assert.Equal(t, 30*time.Minute, kv.ttl)

	var stored entities.WeatherOutlook
	require.NoError(t, json.Unmarshal(kv.data["weather:outlook:41.90:12.50"], &stored))
	assert.True(t, stored.RainExpected)
}

func TestCacheBypassesRedisErrors(t *testing.T) {
	up := &countingProvider{outlook: entities.WeatherOutlook{RainMM: 1}}
	kv := &memKV{data: map[string][]byte{}, getErr: errors.New("connection refused")}
	o, err := NewCache(up, kv, time.Minute, nil).Outlook(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, o.RainMM)
	assert.Equal(t, 1, up.calls)
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	up := &countingProvider{err: errors.New("boom")}
	kv := &memKV{data: map[string][]byte{}}
	_, err := NewCache(up, kv, time.Minute, nil).Outlook(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Empty(t, kv.data)
}
