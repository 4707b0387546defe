// Package redisx wraps go-redis/v8 for the two concerns the rest of the
// module needs: the signal pub/sub bus and the wallet-grade cache.
package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Client wraps a *redis.Client, adapting it to the Broker and Cache
// interfaces declared by the signals and walletscore packages.
type Client struct {
	rdb *redis.Client
	log *zap.Logger
}

// New parses redisURL and opens a client, verifying it with a PING.
func New(ctx context.Context, redisURL string, log *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redisx: parse url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redisx: ping: %w", err)
	}

	log.Info("redisx: connected")
	return &Client{rdb: rdb, log: log}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Publish implements signals.Broker.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redisx: publish: %w", err)
	}
	return nil
}

// LPush implements signals.Broker.
func (c *Client) LPush(ctx context.Context, key string, payload []byte) error {
	if err := c.rdb.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("redisx: lpush: %w", err)
	}
	return nil
}

// LTrim implements signals.Broker.
func (c *Client) LTrim(ctx context.Context, key string, start, stop int64) error {
	if err := c.rdb.LTrim(ctx, key, start, stop).Err(); err != nil {
		return fmt.Errorf("redisx: ltrim: %w", err)
	}
	return nil
}

// LRange implements signals.Broker.
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := c.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redisx: lrange: %w", err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// Get implements walletscore.Cache. A cache miss returns ("", nil), not an
// error — callers fall through to the durable store.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redisx: get: %w", err)
	}
	return val, nil
}

// SetEX implements walletscore.Cache.
func (c *Client) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redisx: setex: %w", err)
	}
	return nil
}

// Subscribe subscribes to channel and returns a receive-only message
// channel, for a future signal-bus consumer (dashboard, secondary
// executor instance, etc).
func (c *Client) Subscribe(ctx context.Context, channel string) <-chan *redis.Message {
	sub := c.rdb.Subscribe(ctx, channel)
	return sub.Channel()
}
