package services

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IndexCachePrefix keys every cached copy of the index page.
const IndexCachePrefix = "index_page"

// PageCache stores rendered pages. Entries expire after their TTL or when
// Clear drops everything under a prefix; writes to posts never touch it.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
	Clear(ctx context.Context, prefix string) error
}

type RedisPageCache struct {
	rdb *redis.Client
}

func NewRedisPageCache(addr string) *RedisPageCache {
	return &RedisPageCache{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *RedisPageCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisPageCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

func (c *RedisPageCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, body, ttl).Err()
}

func (c *RedisPageCache) Clear(ctx context.Context, prefix string) error {
	var cursor uint64
	removed := 0
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	log.Printf("[Cache] cleared %d keys under %q", removed, prefix)
	return nil
}

func (c *RedisPageCache) Close() error { return c.rdb.Close() }

type cacheEntry struct {
	body    []byte
	expires time.Time
}

// MemoryPageCache is the single-process cache used when no Redis address is
// configured.
type MemoryPageCache struct {
	mu    sync.Mutex
	now   func() time.Time
	items map[string]cacheEntry
}

func NewMemoryPageCache() *MemoryPageCache {
	return &MemoryPageCache{now: time.Now, items: make(map[string]cacheEntry)}
}

func (c *MemoryPageCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.body...), true, nil
}

func (c *MemoryPageCache) Set(_ context.Context, key string, body []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheEntry{body: append([]byte(nil), body...), expires: c.now().Add(ttl)}
	return nil
}

func (c *MemoryPageCache) Clear(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

// ClearOnSignal drops the pages under prefix each time a signal arrives,
// until ctx is done. The server hooks it to SIGHUP so a process-local cache
// can be flushed from outside.
func ClearOnSignal(ctx context.Context, cache PageCache, prefix string, signals <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			log.Printf("[Cache] %s received, clearing %q", sig, prefix)
			if err := cache.Clear(ctx, prefix); err != nil {
				log.Printf("ClearCache error: %v", err)
			}
		}
	}
}
