package internal

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	tt "github.com/gnolang/symex/internal/types"
)

const (
	cacheFile     = "issues.gob"
	DefaultMaxAge = 7 * 24 * time.Hour
)

type CacheEntry struct {
	// Digest covers the engine settings and the content of every file of
	// the entry.
	Digest    string
	Issues    []tt.Issue
	CreatedAt time.Time
}

// Cache keeps the issues of analysed packages on disk, keyed by the
// package's files. An entry is reused while neither the files nor the
// engine settings change.
type Cache struct {
	Dir string

	mu      sync.Mutex
	entries map[string]CacheEntry
	maxAge  time.Duration
	now     func() time.Time
}

func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	c := &Cache{
		Dir:     dir,
		entries: make(map[string]CacheEntry),
		maxAge:  DefaultMaxAge,
		now:     time.Now,
	}
	if err := c.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return c, nil
}

func (c *Cache) path() string {
	return filepath.Join(c.Dir, cacheFile)
}

func (c *Cache) load() error {
	f, err := os.Open(c.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode %s: %w", c.path(), err)
	}
	return nil
}

func (c *Cache) save() error {
	tmp, err := os.CreateTemp(c.Dir, cacheFile+".*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if err := gob.NewEncoder(tmp).Encode(c.entries); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path())
}

// Get returns the issues stored under key when they were computed for
// digest and are not older than the maximum age.
func (c *Cache) Get(key, digest string) ([]tt.Issue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if entry.Digest != digest || c.now().Sub(entry.CreatedAt) > c.maxAge {
		delete(c.entries, key)
		return nil, false
	}
	return entry.Issues, true
}

func (c *Cache) Set(key, digest string, issues []tt.Issue) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = CacheEntry{
		Digest:    digest,
		Issues:    issues,
		CreatedAt: c.now(),
	}
	return c.save()
}

func (c *Cache) SetMaxAge(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxAge = d
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) InvalidateAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CacheEntry)
	return c.save()
}

// digest hashes settings followed by each source in order.
func digest(settings string, sources ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(settings))
	for _, src := range sources {
		fmt.Fprintf(h, "\x00%d\x00", len(src))
		h.Write(src)
	}
	return hex.EncodeToString(h.Sum(nil))
}
