package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formgate/internal/platform/config"
	"formgate/pkg/platform/sentinel"
)

func TestNewWithoutURLReturnsNil(t *testing.T) {
	client, err := New(config.RedisConfig{})

	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRejectsInvalidURL(t *testing.T) {
	_, err := New(config.RedisConfig{URL: "://not-a-url"})

	assert.Error(t, err)
}

func TestNewKeepsClientWhenServerIsDown(t *testing.T) {
	// Port 1 is reserved; nothing listens there.
	client, err := New(config.RedisConfig{
		URL:         "redis://127.0.0.1:1/0",
		DialTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = client.Health(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}
