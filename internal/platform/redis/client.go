package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"formgate/internal/platform/config"
	"formgate/pkg/platform/sentinel"
)

// Client wraps the go-redis client with health checking.
type Client struct {
	*redis.Client
}

// New creates a Redis client from configuration without dialing.
// Returns nil without error when no URL is configured; callers treat that as
// "no shared store" and the rate limiter fails open. Connections are opened
// lazily, so a server that is down at startup is picked up once it returns.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	return &Client{Client: redis.NewClient(opts)}, nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
