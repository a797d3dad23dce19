package cache

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/agenthands/truthseeker/internal/core/model"
	"github.com/agenthands/truthseeker/internal/logging"
	"github.com/sirupsen/logrus"
)

// Entry is the persisted shape of one cached search: {"ts": <unix seconds>, "results": [...]}.
type Entry struct {
	Timestamp float64              `json:"ts"`
	Results   []model.SearchResult `json:"results"`
}

type Snapshot map[string]Entry

// Store is a durable mirror of the in-memory cache.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Key normalizes a search into its cache key.
func Key(query string, count int, lang string) string {
	return fmt.Sprintf("%s::count=%d::lang=%s", strings.ToLower(strings.TrimSpace(query)), count, lang)
}

type Options struct {
	TTL      time.Duration
	Store    Store
	Debounce time.Duration
	Now      func() time.Time
	Logger   logrus.FieldLogger
}

// EvidenceCache is a process-wide TTL cache of search results. Expired entries are dropped
// lazily on read; there is no background sweep.
type EvidenceCache struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
	log     logrus.FieldLogger
	writer  *writer
}

// New builds the cache and, when a store is configured, reloads it once. Entries already older
// than the TTL are discarded. A failed load is logged and the cache starts empty.
func New(ctx context.Context, opts Options) *EvidenceCache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &EvidenceCache{
		entries: make(map[string]Entry),
		ttl:     opts.TTL,
		now:     opts.Now,
		log:     logging.Component(opts.Logger, "cache"),
	}

	if opts.Store == nil {
		return c
	}

	snap, err := opts.Store.Load(ctx)
	if err != nil {
		c.log.WithError(err).Warn("Failed to load cache store; continuing with empty cache")
	}
	now := epoch(c.now())
	for k, e := range snap {
		if now-e.Timestamp <= c.ttl.Seconds() {
			c.entries[k] = e
		}
	}
	c.log.WithField("entries", len(c.entries)).Debug("Cache loaded")

	c.writer = newWriter(opts.Debounce, func(ctx context.Context) error {
		return opts.Store.Save(ctx, c.snapshot())
	}, c.log)
	return c
}

// Get returns a copy of the fresh results stored under key. Expired entries are evicted.
func (c *EvidenceCache) Get(key string) ([]model.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if epoch(c.now())-e.Timestamp > c.ttl.Seconds() {
		delete(c.entries, key)
		return nil, false
	}
	return slices.Clone(e.Results), true
}

func (c *EvidenceCache) Set(key string, results []model.SearchResult) {
	c.mu.Lock()
	c.entries[key] = Entry{Timestamp: epoch(c.now()), Results: slices.Clone(results)}
	c.mu.Unlock()

	if c.writer != nil {
		c.writer.schedule()
	}
}

func (c *EvidenceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Flush writes any pending change to the store immediately.
func (c *EvidenceCache) Flush(ctx context.Context) error {
	if c.writer == nil {
		return nil
	}
	return c.writer.Flush(ctx)
}

// Close flushes pending changes and stops further persistence.
func (c *EvidenceCache) Close(ctx context.Context) error {
	if c.writer == nil {
		return nil
	}
	return c.writer.Close(ctx)
}

func (c *EvidenceCache) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := make(Snapshot, len(c.entries))
	for k, e := range c.entries {
		snap[k] = e
	}
	return snap
}

func epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
