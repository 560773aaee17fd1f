package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "clipforge:cache:"

// RedisStore keeps entries in Redis hashes, one hash per fingerprint. Useful
// when several pipeline hosts should share one cache generation.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the server so misconfiguration surfaces
// at startup rather than mid-pipeline.
func NewRedisStore(addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Get reads an entry hash. Returns ErrMiss when the key is absent.
func (s *RedisStore) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	fields, err := s.client.HGetAll(ctx, redisKeyPrefix+fingerprint).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", fingerprint, err)
	}
	if len(fields) == 0 {
		return nil, ErrMiss
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	data := []byte(fields["data"])
	return &Entry{
		Fingerprint: fingerprint,
		Data:        data,
		ContentType: fields["content_type"],
		CreatedAt:   createdAt,
		Size:        int64(len(data)),
	}, nil
}

// Put writes the entry hash in one HSET.
func (s *RedisStore) Put(ctx context.Context, fingerprint string, data []byte, contentType string) (*Entry, error) {
	createdAt := time.Now().UTC()
	err := s.client.HSet(ctx, redisKeyPrefix+fingerprint,
		"data", data,
		"content_type", contentType,
		"created_at", createdAt.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return nil, fmt.Errorf("redis put %s: %w", fingerprint, err)
	}
	return &Entry{
		Fingerprint: fingerprint,
		Data:        data,
		ContentType: contentType,
		CreatedAt:   createdAt,
		Size:        int64(len(data)),
	}, nil
}

// Clear scans and deletes matching keys. Scope narrows to one capability.
func (s *RedisStore) Clear(ctx context.Context, scope string) error {
	pattern := redisKeyPrefix + "*"
	if scope != "" {
		pattern = redisKeyPrefix + scope + ":*"
	}

	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis clear %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
