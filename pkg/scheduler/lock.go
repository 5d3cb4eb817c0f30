package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock deduplicates trigger firing across scheduler instances. Acquire
// returns false when another instance already holds the key.
type Lock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Close() error
}

const lockKeyPrefix = "convoca:scheduler:"

// RedisLock implements Lock with SET NX, safe for multiple scheduler
// instances sharing one redis.
type RedisLock struct {
	client redis.UniversalClient
}

func NewRedisLock(ctx context.Context, redisURL string) (*RedisLock, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisLock{client: client}, nil
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, lockKeyPrefix+key, "1", ttl).Result()
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, lockKeyPrefix+key).Err()
}

func (l *RedisLock) Close() error {
	return l.client.Close()
}

// LocalLock implements Lock in process memory, for single-instance
// deployments and tests.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]time.Time)}
}

func (l *LocalLock) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expiry, ok := l.held[key]; ok && expiry.After(now) {
		return false, nil
	}

	l.held[key] = now.Add(ttl)

	return true, nil
}

func (l *LocalLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, key)

	return nil
}

func (l *LocalLock) Close() error {
	return nil
}
