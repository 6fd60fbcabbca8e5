package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
)

// Entry represents a cached HTTP response.
type Entry struct {
	Body       []byte    `json:"body"`
	ETag       string    `json:"etag,omitempty"`
	LastMod    string    `json:"last_modified,omitempty"`
	StatusCode int       `json:"status_code"`
	CachedAt   time.Time `json:"cached_at"`
}

// Store is a response cache. Get returns an expired entry with fresh=false so
// callers can revalidate it with a conditional request.
type Store interface {
	Get(ctx context.Context, key string) (entry *Entry, fresh bool)
	Set(ctx context.Context, key string, entry *Entry) error
}

// FileCache provides TTL-based file caching for HTTP responses.
type FileCache struct {
	dir string
	ttl time.Duration
}

// NewFile creates a file cache rooted at dir.
func NewFile(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &FileCache{dir: dir, ttl: ttl}, nil
}

// Get retrieves a cached entry if it exists.
func (c *FileCache) Get(_ context.Context, key string) (*Entry, bool) {
	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := sonic.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(path)
		return nil, false
	}

	return &entry, isFresh(&entry, c.ttl)
}

// Set stores an entry in the cache.
func (c *FileCache) Set(_ context.Context, key string, entry *Entry) error {
	entry.CachedAt = time.Now()
	data, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return os.WriteFile(c.path(key), data, 0o644)
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, hashKey(key))
}

func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

func isFresh(e *Entry, ttl time.Duration) bool {
	return time.Since(e.CachedAt) <= ttl
}
