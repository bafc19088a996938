//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"formgate/internal/platform/config"
	platformredis "formgate/internal/platform/redis"
)

// Redis is a throwaway Redis instance connected through the same client
// constructor main uses.
type Redis struct {
	Container testcontainers.Container
	URL       string
	Client    *platformredis.Client
}

// StartRedis runs a Redis container for the lifetime of the test.
func StartRedis(t *testing.T) *Redis {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis connection string: %v", err)
	}

	client, err := platformredis.New(config.RedisConfig{
		URL:          url,
		PoolSize:     4,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("failed to configure redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Health(ctx); err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}

	return &Redis{Container: container, URL: url, Client: client}
}

// FlushAll removes all keys. Use between tests for isolation.
func (r *Redis) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
