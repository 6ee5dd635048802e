package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a key/value accelerator for read-heavy endpoints. It is backed
// by Redis when a URL is configured and by an in-process TTL map otherwise,
// so handlers depend on one injected value either way.
type Cache struct {
	rdb *redis.Client

	mu  sync.RWMutex
	mem map[string]memEntry
}

type memEntry struct {
	data    []byte
	expires time.Time
}

func New(redisURL string) (*Cache, error) {
	c := &Cache{mem: make(map[string]memEntry)}

	if redisURL == "" {
		return c, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis url: %w", err)
	}
	c.rdb = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}

	return c, nil
}

func (c *Cache) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Get unmarshals the cached value for key into dest and reports whether a
// live entry was found. A cache failure is reported as a miss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	var data []byte

	if c.rdb != nil {
		b, err := c.rdb.Get(ctx, key).Bytes()
		if err != nil {
			return false
		}
		data = b
	} else {
		c.mu.RLock()
		e, ok := c.mem[key]
		c.mu.RUnlock()
		if !ok {
			return false
		}
		if time.Now().After(e.expires) {
			c.mu.Lock()
			delete(c.mem, key)
			c.mu.Unlock()
			return false
		}
		data = e.data
	}

	return json.Unmarshal(data, dest) == nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %q: %w", key, err)
	}

	if c.rdb != nil {
		return c.rdb.Set(ctx, key, data, ttl).Err()
	}

	c.mu.Lock()
	c.mem[key] = memEntry{data: data, expires: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// DeletePrefix drops every key beginning with prefix.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	if c.rdb != nil {
		iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		return iter.Err()
	}

	c.mu.Lock()
	for k := range c.mem {
		if strings.HasPrefix(k, prefix) {
			delete(c.mem, k)
		}
	}
	c.mu.Unlock()
	return nil
}

// InvalidateProducts clears product listing and search caches after a
// catalog write.
func (c *Cache) InvalidateProducts(ctx context.Context) error {
	if err := c.DeletePrefix(ctx, "products:"); err != nil {
		return err
	}
	return c.DeletePrefix(ctx, "search:")
}

func ProductsKey(page, size int, filters string) string {
	return fmt.Sprintf("products:%d:%d:%s", page, size, filters)
}

func SearchKey(query string, from, size int) string {
	return fmt.Sprintf("search:%s:%d:%d", query, from, size)
}
