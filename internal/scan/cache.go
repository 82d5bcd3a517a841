package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/logger"
)

// Runner executes the expensive external scan. The only reference in
// the process lives inside the Cache: construct the scan client once,
// hand it to NewCache, and keep no other copy. Every other component
// reads through GetOrRefresh, so a scan stampede cannot bypass the
// cache.
type Runner interface {
	RunScan(ctx context.Context) (*contracts.CacheEntry, error)
}

// HealthGate is consulted before starting a scan when the cache is
// configured to require healthy data sources
type HealthGate interface {
	AllHealthy() bool
}

// Sink receives successfully refreshed snapshots (redis mirror,
// postgres view). Sink failures never fail a refresh.
type Sink interface {
	Name() string
	Store(ctx context.Context, entry *contracts.CacheEntry) error
}

// ErrUnhealthy is returned by Refresh when the health gate is enforced
// and at least one data source is not OK
var ErrUnhealthy = errors.New("data sources unhealthy, scan refused")

// Cache is the single-flight TTL cache in front of the scan runner.
// Reads never block on a refresh: stale data is served while at most
// one background refresh runs.
type Cache struct {
	mu      sync.RWMutex
	entry   *contracts.CacheEntry
	running bool

	runner    Runner
	fallbacks []Fallback
	sinks     []Sink
	gate      HealthGate

	ttl            time.Duration
	timeout        time.Duration
	requireHealthy bool

	log *logger.Logger
}

// NewCache wires the scan runner into its only legitimate call path.
// fallbacks are tried in order when the live scan fails; sinks receive
// every successful live snapshot.
func NewCache(cfg config.ScanConfig, runner Runner, log *logger.Logger, opts ...Option) *Cache {
	c := &Cache{
		runner:         runner,
		ttl:            cfg.TTL,
		timeout:        cfg.Timeout,
		requireHealthy: cfg.RequireHealthy,
		log:            log.WithField("component", "scan_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures optional cache collaborators
type Option func(*Cache)

// WithFallbacks sets the ordered fallback chain
func WithFallbacks(fallbacks ...Fallback) Option {
	return func(c *Cache) { c.fallbacks = fallbacks }
}

// WithSinks sets the snapshot sinks
func WithSinks(sinks ...Sink) Option {
	return func(c *Cache) { c.sinks = sinks }
}

// WithHealthGate sets the data-source freshness gate
func WithHealthGate(gate HealthGate) Option {
	return func(c *Cache) { c.gate = gate }
}

// GetOrRefresh returns the current snapshot immediately. A stale or
// empty snapshot triggers at most one background refresh; the caller
// still gets whatever is cached right now.
func (c *Cache) GetOrRefresh(ctx context.Context) *contracts.CacheEntry {
	c.mu.RLock()
	entry := c.entry
	c.mu.RUnlock()

	if entry != nil && !entry.IsEmpty() && entry.Age(time.Now()) < c.ttl {
		return entry
	}

	c.refreshAsync()
	if entry == nil {
		return &contracts.CacheEntry{Key: "default"}
	}
	return entry
}

// refreshAsync starts a background refresh unless one is already
// running
func (c *Cache) refreshAsync() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	go func() {
		if err := c.refresh(context.Background()); err != nil {
			c.log.WithError(err).Warn("Background scan refresh failed, serving stale data")
		}
	}()
}

// Refresh runs one refresh attempt synchronously. Calling it while a
// refresh is already in flight is a no-op, not a queue.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	return c.refresh(ctx)
}

// refresh performs the scan with a hard timeout and commits the result.
// The running flag is always cleared, even on panic in the runner.
// Callers must have set running=true before entering.
func (c *Cache) refresh(ctx context.Context) error {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	if c.requireHealthy && c.gate != nil && !c.gate.AllHealthy() {
		return ErrUnhealthy
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	entry, err := c.runner.RunScan(ctx)
	if err == nil && !entry.IsEmpty() {
		entry.Source = "live"
		entry.UpdatedAt = time.Now()
		c.commit(entry)
		c.store(entry)
		c.log.WithFields(map[string]interface{}{
			"candidates": len(entry.Payload),
			"pre_filter": entry.PreFilterCount,
			"duration":   time.Since(started),
		}).Info("Scan refresh committed")
		return nil
	}

	if err != nil {
		c.log.WithError(err).Warn("Live scan failed, trying fallbacks")
	}

	for _, fb := range c.fallbacks {
		if entry, ok := fb.Attempt(ctx); ok && !entry.IsEmpty() {
			c.commit(entry)
			c.log.WithFields(map[string]interface{}{
				"source":     fb.Name(),
				"candidates": len(entry.Payload),
			}).Info("Scan refresh served from fallback")
			return nil
		}
	}

	if err != nil {
		return err
	}
	return errors.New("scan returned no candidates and no fallback had data")
}

// commit atomically swaps the snapshot; readers never see a torn entry
func (c *Cache) commit(entry *contracts.CacheEntry) {
	c.mu.Lock()
	c.entry = entry
	c.mu.Unlock()
}

// store forwards the snapshot to the configured sinks, best effort
func (c *Cache) store(entry *contracts.CacheEntry) {
	for _, sink := range c.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := sink.Store(ctx, entry); err != nil {
			c.log.WithError(err).WithField("sink", sink.Name()).Warn("Snapshot sink failed")
		}
		cancel()
	}
}

// Snapshot returns the current entry without triggering a refresh
func (c *Cache) Snapshot() *contracts.CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entry
}
