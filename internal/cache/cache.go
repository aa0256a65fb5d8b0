package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/himanishpuri/SoundAlike/internal/storage"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/models"
)

// FingerprintCache maps file base names to fingerprints. It is loaded from a
// store once, grows on cache misses and is written back on Flush. Entries are
// never invalidated when the underlying audio changes.
type FingerprintCache struct {
	store storage.Store
	log   *logger.Logger

	mu     sync.RWMutex
	byName map[string]*models.Fingerprint
	gen    uint64 // bumped on every Put
	saved  uint64 // gen at the last Load or Flush
}

func New(store storage.Store, log *logger.Logger) *FingerprintCache {
	if log == nil {
		log = logger.GetLogger()
	}
	return &FingerprintCache{
		store:  store,
		log:    log.Named("cache"),
		byName: make(map[string]*models.Fingerprint),
	}
}

// Load replaces the contents with the store's. A corrupt store is logged and
// treated as empty; other read errors are returned.
func (c *FingerprintCache) Load(ctx context.Context) error {
	fps, err := c.store.Load(ctx)
	if errors.Is(err, storage.ErrCorrupt) {
		c.log.Warnf("Fingerprint store unreadable, starting empty: %v", err)
		fps, err = make(map[string]*models.Fingerprint), nil
	}
	if err != nil {
		return fmt.Errorf("loading fingerprint store: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName = fps
	c.saved = c.gen
	c.log.Infof("Loaded %d cached fingerprints", len(fps))
	return nil
}

func (c *FingerprintCache) Get(name string) (*models.Fingerprint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fp, ok := c.byName[name]
	return fp, ok
}

// Put stores fp under name. The last writer wins.
func (c *FingerprintCache) Put(name string, fp *models.Fingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName[name] = fp
	c.gen++
}

// Flush writes the whole cache to the store if anything changed since the last Load or Flush.
func (c *FingerprintCache) Flush(ctx context.Context) error {
	c.mu.RLock()
	if c.gen == c.saved {
		c.mu.RUnlock()
		return nil
	}
	gen := c.gen
	snapshot := make(map[string]*models.Fingerprint, len(c.byName))
	for k, v := range c.byName {
		snapshot[k] = v
	}
	c.mu.RUnlock()

	if err := c.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("flushing fingerprint cache: %w", err)
	}

	c.mu.Lock()
	c.saved = max(c.saved, gen)
	c.mu.Unlock()
	c.log.Infof("Flushed %d fingerprints", len(snapshot))
	return nil
}

func (c *FingerprintCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byName)
}

// Names returns the cached names in sorted order.
func (c *FingerprintCache) Names() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.byName))
	for k := range c.byName {
		names = append(names, k)
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (c *FingerprintCache) Close() error {
	return c.store.Close()
}
