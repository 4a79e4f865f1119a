package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/five82/arenaview/internal/card"
	"github.com/five82/arenaview/internal/fsutil"
	"github.com/five82/arenaview/internal/logging"
	"github.com/five82/arenaview/internal/metrics"
)

const cardsDir = "cards"

// Cache is a memory-first, disk-backed store of resolved card metadata.
type Cache struct {
	dir    string
	logger zerolog.Logger

	mu  sync.RWMutex
	mem map[card.Key]card.Metadata
}

// Open prepares the cache under root, creating root/cards if needed.
func Open(root string) (*Cache, error) {
	dir := filepath.Join(root, cardsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		dir:    dir,
		logger: logging.WithComponent("cache"),
		mem:    make(map[card.Key]card.Metadata),
	}, nil
}

// Dir returns the directory holding card files.
func (c *Cache) Dir() string { return c.dir }

// Get returns the record for key. A disk hit populates memory; unreadable or
// corrupt files count as a miss.
func (c *Cache) Get(key card.Key) (card.Metadata, bool) {
	c.mu.RLock()
	md, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		metrics.RecordCacheLookup("memory", "hit")
		return md.Clone(), true
	}

	path := filepath.Join(c.dir, FileName(key))
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("read cache file")
		}
		metrics.RecordCacheLookup("disk", "miss")
		return card.Metadata{}, false
	}
	if err := json.Unmarshal(data, &md); err != nil || md.Name == "" {
		c.logger.Debug().Err(err).Str("path", path).Msg("ignoring corrupt cache file")
		metrics.RecordCacheLookup("disk", "corrupt")
		return card.Metadata{}, false
	}
	metrics.RecordCacheLookup("disk", "hit")

	c.mu.Lock()
	if existing, ok := c.mem[key]; ok {
		md = existing
	} else {
		c.mem[key] = md
	}
	c.mu.Unlock()
	return md.Clone(), true
}

// Set stores md in memory and on disk. The memory copy is kept even when the
// disk write fails.
func (c *Cache) Set(key card.Key, md card.Metadata) error {
	md = md.Clone()
	c.mu.Lock()
	c.mem[key] = md
	c.mu.Unlock()

	data, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode card %s: %w", key, err)
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(c.dir, FileName(key)), data, 0o644); err != nil {
		return fmt.Errorf("write card %s: %w", key, err)
	}
	return nil
}

// Len reports the number of records held in memory.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mem)
}

// FileName maps a key to a filesystem-safe name: numeric values are kept
// verbatim, anything else is replaced by its SHA-256.
func FileName(key card.Key) string {
	prefix := key.Prefix()
	value := key.Value()
	if prefix == "" {
		prefix = "key"
		value = string(key)
	}
	if isDigits(value) {
		return prefix + "_" + value + ".json"
	}
	sum := sha256.Sum256([]byte(value))
	return prefix + "_" + hex.EncodeToString(sum[:]) + ".json"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
