package probe

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Cache memoizes probe answers in memory for as long as a file keeps its
// size and modification time. Nothing outlives the process.
type Cache struct {
	prober Prober

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	values  map[string]cachedValue
}

type cachedValue struct {
	text   string
	number int64
	found  bool
	err    error
}

func NewCache(prober Prober) *Cache {
	return &Cache{prober: prober, entries: make(map[string]*cacheEntry)}
}

func (c *Cache) Codec(ctx context.Context, path string) (string, error) {
	if v, ok := c.lookup(path, "codec"); ok {
		return v.text, v.err
	}
	codec, err := c.prober.Codec(ctx, path)
	c.store(path, "codec", cachedValue{text: codec, err: err})
	return codec, err
}

func (c *Cache) Bitrate(ctx context.Context, path string) (int64, error) {
	if v, ok := c.lookup(path, "bitrate"); ok {
		return v.number, v.err
	}
	bitrate, err := c.prober.Bitrate(ctx, path)
	c.store(path, "bitrate", cachedValue{number: bitrate, err: err})
	return bitrate, err
}

func (c *Cache) Tag(ctx context.Context, path, name string) (string, bool, error) {
	key := "tag:" + name
	if v, ok := c.lookup(path, key); ok {
		return v.text, v.found, v.err
	}
	value, found, err := c.prober.Tag(ctx, path, name)
	c.store(path, key, cachedValue{text: value, found: found, err: err})
	return value, found, err
}

// lookup returns a cached answer when the file is unchanged since it was
// recorded. A changed file drops every answer recorded for it.
func (c *Cache) lookup(path, key string) (cachedValue, bool) {
	info, err := os.Stat(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[path]
	if !ok {
		return cachedValue{}, false
	}
	if err != nil || !info.ModTime().Equal(entry.modTime) || info.Size() != entry.size {
		slog.Debug("File changed since probe, will re-probe", "path", path)
		delete(c.entries, path)
		return cachedValue{}, false
	}

	v, ok := entry.values[key]
	return v, ok
}

// store records an answer. Only real answers and ErrNoValue are kept;
// anything else is retried on the next query.
func (c *Cache) store(path, key string, v cachedValue) {
	if v.err != nil && !errors.Is(v.err, ErrNoValue) {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[path]
	if !ok || !info.ModTime().Equal(entry.modTime) || info.Size() != entry.size {
		entry = &cacheEntry{modTime: info.ModTime(), size: info.Size(), values: make(map[string]cachedValue)}
		c.entries[path] = entry
	}
	entry.values[key] = v
}
