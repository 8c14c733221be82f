package database

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthpulse/healthpulse-go/internal/config"
)

func newTestRedisClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)
	client, err := NewRedisConnection(config.RedisConfig{
		Host: s.Host(),
		Port: port,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client, s
}

func TestNewRedisConnection_Unreachable(t *testing.T) {
	_, err := NewRedisConnection(config.RedisConfig{
		Host: "127.0.0.1",
		Port: 1, // nothing listens here
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestRedisClient_HealthCheck(t *testing.T) {
	client, s := newTestRedisClient(t)

	ctx := context.Background()
	require.NoError(t, client.HealthCheck(ctx))

	s.SetError("server unavailable")
	assert.Error(t, client.HealthCheck(ctx))
}

func TestRedisClient_CacheOperations(t *testing.T) {
	client, _ := newTestRedisClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "trend:glucose", "worsening", time.Minute))

	value, err := client.Get(ctx, "trend:glucose")
	require.NoError(t, err)
	assert.Equal(t, "worsening", value)

	n, err := client.Exists(ctx, "trend:glucose", "trend:sleep")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, client.Delete(ctx, "trend:glucose"))
	_, err = client.Get(ctx, "trend:glucose")
	assert.ErrorIs(t, err, redis.Nil)
}
