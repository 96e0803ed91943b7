package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementer is the subset of redis.Cmdable used by RedisCounter.
type incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RedisCounter keeps each counter under its own key and relies on INCR
// being atomic on the server.
type RedisCounter struct {
	client    incrementer
	keyPrefix string
}

// NewRedisCounter creates a counter whose keys are "<prefix>:sequence:<name>".
func NewRedisCounter(client incrementer, keyPrefix string) *RedisCounter {
	if keyPrefix == "" {
		keyPrefix = "gateway"
	}
	return &RedisCounter{client: client, keyPrefix: keyPrefix}
}

// DialRedis parses a redis:// URL, connects and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func (c *RedisCounter) key(name string) string {
	return c.keyPrefix + ":sequence:" + name
}

// Increment implements Counter.
func (c *RedisCounter) Increment(ctx context.Context, name string) (uint64, error) {
	v, err := c.client.Incr(ctx, c.key(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", c.key(name), err)
	}
	if v < 0 {
		return 0, fmt.Errorf("redis incr %s: negative value %d", c.key(name), v)
	}
	return uint64(v), nil
}
