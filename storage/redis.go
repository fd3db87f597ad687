// storage/redis.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CreativeUnicorns/carprefs"
)

// redisKeyPrefix namespaces document keys.
const redisKeyPrefix = "carprefs:doc:"

// redisClient is the subset of *redis.Client used here; tests substitute a fake.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisStorage implements carprefs.Storage on Redis, one string key per user.
type RedisStorage struct {
	client redisClient
	codec  codec
	ttl    time.Duration
}

// NewRedisStorage connects to addr and verifies the connection.
func NewRedisStorage(addr string, password string, db int, opts ...Option) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to connect: %w", err)
	}

	return newRedisStorage(client, opts...), nil
}

func newRedisStorage(client redisClient, opts ...Option) *RedisStorage {
	o := buildOptions(opts)
	return &RedisStorage{
		client: client,
		codec:  codec{encryptor: o.encryptor},
		ttl:    o.ttl,
	}
}

// GetAttributes returns the user's document, or carprefs.ErrNotFound.
func (s *RedisStorage) GetAttributes(ctx context.Context, userID string) (carprefs.Document, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return carprefs.Document{}, carprefs.ErrNotFound
	}
	if err != nil {
		return carprefs.Document{}, fmt.Errorf("redis: failed to get document for user '%s': %w", userID, err)
	}

	doc, err := s.codec.decode(data)
	if err != nil {
		return carprefs.Document{}, fmt.Errorf("redis: failed to decode document for user '%s': %w", userID, err)
	}
	return doc, nil
}

// SaveAttributes replaces the user's document, refreshing the TTL if one is set.
func (s *RedisStorage) SaveAttributes(ctx context.Context, userID string, doc carprefs.Document) error {
	data, err := s.codec.encode(doc)
	if err != nil {
		return fmt.Errorf("redis: failed to encode document for user '%s': %w", userID, err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+userID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to save document for user '%s': %w", userID, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
