package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReferenceCache remembers gateway references whose payment is already
// final, mapped to the booking they finalized. It is written only after the
// ledger write succeeded, so a hit is always safe to short-circuit on.
type ReferenceCache interface {
	Lookup(ctx context.Context, reference string) (bookingID string, ok bool, err error)
	Remember(ctx context.Context, reference, bookingID string) error
}

type redisReferenceCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) ReferenceCache {
	return &redisReferenceCache{client: client, prefix: "finalized", ttl: ttl}
}

func (c *redisReferenceCache) key(reference string) string {
	return c.prefix + ":" + reference
}

func (c *redisReferenceCache) Lookup(ctx context.Context, reference string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(reference)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *redisReferenceCache) Remember(ctx context.Context, reference, bookingID string) error {
	return c.client.Set(ctx, c.key(reference), bookingID, c.ttl).Err()
}

type memoryEntry struct {
	bookingID string
	expires   time.Time
}

type memoryReferenceCache struct {
	mu     sync.Mutex
	seen   map[string]memoryEntry
	ttl    time.Duration
	nextGC time.Time
}

// NewMemory returns a process-local cache.
func NewMemory(ttl time.Duration) ReferenceCache {
	return &memoryReferenceCache{
		seen:   make(map[string]memoryEntry),
		ttl:    ttl,
		nextGC: time.Now().Add(ttl),
	}
}

func (c *memoryReferenceCache) Lookup(_ context.Context, reference string) (string, bool, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.seen[reference]
	if !ok || !e.expires.After(now) {
		return "", false, nil
	}
	return e.bookingID, true, nil
}

func (c *memoryReferenceCache) Remember(_ context.Context, reference, bookingID string) error {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen[reference] = memoryEntry{bookingID: bookingID, expires: now.Add(c.ttl)}
	if now.After(c.nextGC) {
		for ref, e := range c.seen {
			if e.expires.Before(now) {
				delete(c.seen, ref)
			}
		}
		c.nextGC = now.Add(c.ttl)
	}
	return nil
}

// New builds a Redis cache and falls back to in-memory on failure. The error
// is returned alongside the fallback so the caller can log it.
func New(addr, pass string, db int, ttl time.Duration) (ReferenceCache, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if addr == "" {
		return NewMemory(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return NewMemory(ttl), err
	}

	return NewRedis(client, ttl), nil
}
