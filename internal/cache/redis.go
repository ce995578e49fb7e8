package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Report cache keys. The version counter is bumped on every write to a shop,
// which orphans all of that shop's cached reports at once.
const (
	reportVersionKeyFmt = "reports:%s:v"
	reportKeyFmt        = "reports:%s:%d:%s"
	lockKeyFmt          = "lock:%s:%s"
)

var ErrLockNotObtained = errors.New("lock is held by another request")

// Cache wraps Redis. A nil *Cache is valid and behaves as an always-empty
// cache with no-op locks, so the server runs without Redis.
type Cache struct {
	client *redis.Client
	locker *redislock.Client
}

// New connects to Redis and pings it. On failure the client is closed and
// the error returned; callers keep a nil *Cache for graceful degradation.
func New(ctx context.Context, addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Cache{client: client, locker: redislock.New(client)}, nil
}

// Client returns the Redis client, or nil.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("redis not configured")
	}
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) reportVersion(ctx context.Context, shopID string) int64 {
	v, err := c.client.Get(ctx, fmt.Sprintf(reportVersionKeyFmt, shopID)).Int64()
	if err != nil {
		return 0
	}
	return v
}

// ReportKey names a cached report for the shop's current data version.
func (c *Cache) ReportKey(ctx context.Context, shopID, name string, params ...string) string {
	if c == nil {
		return ""
	}
	suffix := name
	if len(params) > 0 {
		suffix += ":" + strings.Join(params, ":")
	}
	return fmt.Sprintf(reportKeyFmt, shopID, c.reportVersion(ctx, shopID), suffix)
}

// GetJSON loads a cached value into dst. It reports false on a miss or any error.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) bool {
	if c == nil || key == "" {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// SetJSON caches v for ttl. Errors are dropped, a failed write is a future miss.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil || key == "" || ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, data, ttl)
}

// InvalidateReports drops every cached report of the shop.
func (c *Cache) InvalidateReports(ctx context.Context, shopID string) {
	if c == nil {
		return
	}
	c.client.Incr(ctx, fmt.Sprintf(reportVersionKeyFmt, shopID))
}

// Lock takes a distributed lock on scope:key, waiting up to wait for it.
// The returned release func is always non-nil.
func (c *Cache) Lock(ctx context.Context, scope, key string, ttl, wait time.Duration) (func(), error) {
	if c == nil {
		return func() {}, nil
	}

	strategy := redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), int(wait/(50*time.Millisecond)))
	lock, err := c.locker.Obtain(ctx, fmt.Sprintf(lockKeyFmt, scope, key), ttl, &redislock.Options{RetryStrategy: strategy})
	if errors.Is(err, redislock.ErrNotObtained) {
		return func() {}, ErrLockNotObtained
	}
	if err != nil {
		return func() {}, err
	}
	return func() {
		// Released on a fresh context so a cancelled request still frees the lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}, nil
}
