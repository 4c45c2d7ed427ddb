// Package redis wraps the go-redis client behind the module's configuration.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ngoconnect/internal/platform/config"
)

// Client is a configured go-redis client with a health probe. A nil *Client
// means Redis is not configured and callers should fall back to in-process
// alternatives.
type Client struct {
	*redis.Client
}

// New dials Redis from config. Returns (nil, nil) when no URL is set.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health reports whether the connection still answers.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.Client.Close()
}
