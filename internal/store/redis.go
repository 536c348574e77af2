package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces slot keys in a shared Redis database.
const DefaultRedisPrefix = "typist:"

// RedisConfig for creating a Redis gateway.
type RedisConfig struct {
	Addr     string // Redis address (e.g., "localhost:6379")
	Password string // Redis password (empty for no auth)
	DB       int    // Redis database number
	Prefix   string // Key prefix (default: DefaultRedisPrefix)
}

// RedisGateway stores each slot as a Redis string key.
// Keys never expire; a slot lasts until overwritten or cleared.
type RedisGateway struct {
	client *redis.Client
	prefix string
}

var _ Gateway = (*RedisGateway)(nil)

// NewRedisGateway creates a Redis-backed gateway. No connection is made
// until the first command; use Ping to check reachability.
func NewRedisGateway(config RedisConfig) *RedisGateway {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	return &RedisGateway{client: client, prefix: prefix}
}

func (g *RedisGateway) key(slot Slot) string {
	return g.prefix + string(slot)
}

// Read returns the slot's value, or ok=false if the key does not exist.
func (g *RedisGateway) Read(ctx context.Context, slot Slot) (string, bool, error) {
	if err := checkSlot("redis", "read", slot); err != nil {
		return "", false, err
	}

	val, err := g.client.Get(ctx, g.key(slot)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, newStorageError("redis", "read", slot, err)
	}
	return val, true, nil
}

// Write sets the slot's value with no expiry.
func (g *RedisGateway) Write(ctx context.Context, slot Slot, text string) error {
	if err := checkSlot("redis", "write", slot); err != nil {
		return err
	}
	if err := g.client.Set(ctx, g.key(slot), text, 0).Err(); err != nil {
		return newStorageError("redis", "write", slot, err)
	}
	return nil
}

// Clear deletes both slot keys.
func (g *RedisGateway) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(Slots))
	for _, slot := range Slots {
		keys = append(keys, g.key(slot))
	}
	if err := g.client.Del(ctx, keys...).Err(); err != nil {
		return newStorageError("redis", "clear", "", err)
	}
	return nil
}

// Ping checks if the Redis connection is alive.
func (g *RedisGateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (g *RedisGateway) Close() error {
	return g.client.Close()
}
