// Package localcache is the device's fast-path mirror of the collection:
// one JSON file with a size quota, like browser local storage.
package localcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/atomicfile"
)

const FileName = "listings.json"

var ErrQuotaExceeded = domain.ErrQuotaExceeded

type Cache struct {
	path  string
	quota int64
}

// New returns a cache stored under dir. quota <= 0 means unlimited.
func New(dir string, quota int64) *Cache {
	return &Cache{path: filepath.Join(dir, FileName), quota: quota}
}

func (c *Cache) Path() string { return c.path }

// Load returns the cached collection. ok is false when nothing was cached.
// An unreadable or corrupt file returns ok=false with a non-nil error.
func (c *Cache) Load() (domain.Collection, bool, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read local cache: %w", err)
	}
	var out domain.Collection
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false, fmt.Errorf("decode local cache: %w", err)
	}
	return out, true, nil
}

// Save replaces the cached collection. It returns ErrQuotaExceeded without
// touching the existing file when the encoded document is too large.
func (c *Cache) Save(collection domain.Collection) error {
	if collection == nil {
		collection = domain.Collection{}
	}
	data, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("encode local cache: %w", err)
	}
	if c.quota > 0 && int64(len(data)) > c.quota {
		return fmt.Errorf("%w: %d bytes over a %d byte quota", ErrQuotaExceeded, len(data), c.quota)
	}
	return atomicfile.WriteFile(c.path, data)
}
