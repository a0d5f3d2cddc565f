package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store holds per-device average speeds with an expiry
type Store interface {
	Get(ctx context.Context, deviceID int64) (float64, bool, error)
	Set(ctx context.Context, deviceID int64, speedKmh float64, ttl time.Duration) error
}

func speedKey(deviceID int64) string {
	return fmt.Sprintf("device:%d:avg_speed_kmh", deviceID)
}

// RedisStore keeps speed profiles in redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis and verifies the connection
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, deviceID int64) (float64, bool, error) {
	val, err := r.client.Get(ctx, speedKey(deviceID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get speed profile failed: %w", err)
	}

	speed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid speed profile for device %d: %w", deviceID, err)
	}
	return speed, true, nil
}

func (r *RedisStore) Set(ctx context.Context, deviceID int64, speedKmh float64, ttl time.Duration) error {
	val := strconv.FormatFloat(speedKmh, 'f', -1, 64)
	if err := r.client.Set(ctx, speedKey(deviceID), val, ttl).Err(); err != nil {
		return fmt.Errorf("redis set speed profile failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

type memoryEntry struct {
	speed   float64
	expires time.Time
}

// MemoryStore is a process-local Store used when redis is not configured
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int64]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, deviceID int64) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[deviceID]
	if !ok || (!e.expires.IsZero() && !m.now().Before(e.expires)) {
		return 0, false, nil
	}
	return e.speed, true, nil
}

func (m *MemoryStore) Set(_ context.Context, deviceID int64, speedKmh float64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}
	m.entries[deviceID] = memoryEntry{speed: speedKmh, expires: expires}
	return nil
}
