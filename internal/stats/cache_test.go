package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a throwaway redis container
func setupRedis(t *testing.T) (*redis.Client, func()) {
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

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())

	cleanup := func() {
		client.Close()
		container.Terminate(ctx)
	}
	return client, cleanup
}

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping redis integration test in short mode")
	}

	client, cleanup := setupRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "session:keep", "1", 0).Err())

	cache := NewRedisCache(client, "stats:")
	for i := 0; i < 150; i++ {
		require.NoError(t, cache.Set(ctx, fmt.Sprintf("%d:all:all", 2000+i), []byte("{}"), time.Minute))
	}

	got, ok, err := cache.Get(ctx, "2024:all:all")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("{}"), got)

	_, ok, err = cache.Get(ctx, "1999:all:all")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Clear(ctx))

	_, ok, err = cache.Get(ctx, "2024:all:all")
	require.NoError(t, err)
	assert.False(t, ok)

	kept, err := client.Exists(ctx, "session:keep").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), kept, "keys outside the prefix survive a clear")
}

func TestEngineOverRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping redis integration test in short mode")
	}

	client, cleanup := setupRedis(t)
	defer cleanup()
	ctx := context.Background()

	src := fixture()
	engine := NewEngine(src, NewRedisCache(client, "stats:"), time.Minute)

	first, err := engine.Statistics(ctx, Filter{Year: 2024})
	require.NoError(t, err)
	second, err := engine.Statistics(ctx, Filter{Year: 2024})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), src.loads.Load())

	ttl, err := client.TTL(ctx, "stats:2024:all:all").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
