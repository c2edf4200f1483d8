//go:build integration

package api

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisRateLimiterTokenBucket(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRedisRateLimiter(client, "booth:test", 3, time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		d, err := rl.Allow(ctx, "user:alice")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := rl.Allow(ctx, "user:alice")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 20*time.Second, d.RetryAfter)

	d, err = rl.Allow(ctx, "user:bob")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// One token comes back per window/limit.
	now = now.Add(20 * time.Second)
	d, err = rl.Allow(ctx, "user:alice")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	ttl, err := client.TTL(ctx, "booth:test:user:alice").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}

func TestRedisRateLimiterReportsConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewRedisRateLimiter(client, "booth:test", 1, time.Minute).Allow(context.Background(), "ip:1")
	require.Error(t, err)
}
