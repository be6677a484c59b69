package redis

import (
	"context"
	"encoding"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nathangreen1632/CareerGistPRO/common/cache"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

func New(opts cache.Options) (*Cache, error) {
	redisOpts := &redis.Options{
		Addr:     opts.RedisURL,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	}
	if strings.HasPrefix(opts.RedisURL, "redis://") || strings.HasPrefix(opts.RedisURL, "rediss://") {
		parsed, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis.ParseURL: %w", err)
		}
		redisOpts = parsed
	}

	ttl := opts.DefaultTTL
	if ttl == 0 {
		ttl = cache.DefaultOptions().DefaultTTL
	}

	return &Cache{
		client:     redis.NewClient(redisOpts),
		prefix:     opts.KeyPrefix,
		defaultTTL: ttl,
	}, nil
}

// Ping verifies connectivity. Callers may continue on failure since every
// cache error degrades to a miss.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return cache.ErrInvalidKey
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	var payload interface{}
	switch v := value.(type) {
	case string, []byte:
		payload = v
	case encoding.BinaryMarshaler:
		payload = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%w: %v", cache.ErrInvalidValue, err)
		}
		payload = data
	}

	return c.client.Set(ctx, c.prefix+key, payload, ttl).Err()
}

func (c *Cache) Get(ctx context.Context, key string, value interface{}) error {
	if key == "" {
		return cache.ErrInvalidKey
	}

	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return cache.ErrNotFound
	}
	if err != nil {
		return err
	}

	switch v := value.(type) {
	case *string:
		*v = string(val)
	case encoding.BinaryUnmarshaler:
		return v.UnmarshalBinary(val)
	default:
		if err := json.Unmarshal(val, value); err != nil {
			return fmt.Errorf("%w: %v", cache.ErrInvalidValue, err)
		}
	}

	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
