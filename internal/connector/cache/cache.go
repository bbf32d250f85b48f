// Package cache implements the connector cache: memoized live
// connector instances keyed by (prefix, shortname), with at-most-one
// spawn per key, plus a per-(prefix, shortname, addr) filter result
// cache.
//
// The memoization shape is a mutex-guarded map of entries, each with
// its own sync.Once: the map lock is released before the spawn, and
// the per-entry Once makes concurrent callers on one key share a
// single spawn.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/autoschematic-sh/autoschematic/internal/config"
	"github.com/autoschematic-sh/autoschematic/internal/connector"
	"github.com/autoschematic-sh/autoschematic/internal/keystore"
)

// Spawner constructs a live connector.Connector for the given binding.
// internal/connector/transport.Spawn satisfies this signature; tests
// typically supply a stub.
type Spawner func(ctx context.Context, shortname string, spec config.Spec, prefix string, env map[string]string, ks keystore.KeyStore) (connector.Connector, error)

type entry struct {
	once sync.Once
	conn connector.Connector
	err  error
}

type filterKey struct {
	prefix, shortname, addr string
}

// Cache memoizes live connectors and their filter responses.
type Cache struct {
	spawn  Spawner
	logger hclog.Logger
	ks     keystore.KeyStore

	mu       sync.Mutex
	entries  map[string]*entry
	filterMu sync.Mutex
	filters  map[filterKey]connector.FilterResponse
}

// New builds a Cache that uses spawn to construct new connector
// instances on first use.
func New(spawn Spawner, ks keystore.KeyStore, logger hclog.Logger) *Cache {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Cache{
		spawn:   spawn,
		logger:  logger,
		ks:      ks,
		entries: make(map[string]*entry),
		filters: make(map[filterKey]connector.FilterResponse),
	}
}

func cacheKey(prefix, shortname string) string {
	return prefix + "\x00" + shortname
}

// GetOrSpawn returns the cached connector for (prefix, shortname),
// spawning it via the configured Spawner on first use. Concurrent
// callers racing on the same key block on the same spawn and share its
// result; they never cause two spawns. If initIfSpawned is true and this call
// performed the spawn, Init() is invoked once before the connector is
// returned to any caller.
func (c *Cache) GetOrSpawn(ctx context.Context, shortname string, spec config.Spec, prefix string, env map[string]string, initIfSpawned bool) (connector.Connector, error) {
	key := cacheKey(prefix, shortname)

	c.mu.Lock()
	e, exists := c.entries[key]
	if !exists {
		e = &entry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		c.logger.Debug("spawning connector", "prefix", prefix, "shortname", shortname)
		conn, err := c.spawn(ctx, shortname, spec, prefix, env, c.ks)
		if err != nil {
			e.err = err
			return
		}
		if initIfSpawned {
			if err := conn.Init(ctx); err != nil {
				e.err = fmt.Errorf("init connector %s/%s: %w", prefix, shortname, err)
				return
			}
		}
		e.conn = conn
	})

	if e.err != nil {
		return nil, e.err
	}
	return e.conn, nil
}

// FilterCached returns the cached FilterResponse for (prefix,
// shortname, addr), calling through to the connector and memoizing the
// result on first use.
func (c *Cache) FilterCached(ctx context.Context, conn connector.Connector, shortname, prefix, addr string) (connector.FilterResponse, error) {
	key := filterKey{prefix: prefix, shortname: shortname, addr: addr}

	c.filterMu.Lock()
	if resp, ok := c.filters[key]; ok {
		c.filterMu.Unlock()
		return resp, nil
	}
	c.filterMu.Unlock()

	resp, err := conn.Filter(ctx, addr)
	if err != nil {
		return connector.FilterNone, err
	}

	c.filterMu.Lock()
	c.filters[key] = resp
	c.filterMu.Unlock()
	return resp, nil
}

// InvalidateFilter drops the memoized filter response for (prefix,
// shortname, addr), e.g. after a rename moves an address out from
// under a connector's claim.
func (c *Cache) InvalidateFilter(prefix, shortname, addr string) {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()
	delete(c.filters, filterKey{prefix: prefix, shortname: shortname, addr: addr})
}

// Evict drops the cached connector for (prefix, shortname), e.g. after
// Kill() marks it dead, so the next GetOrSpawn respawns it.
func (c *Cache) Evict(prefix, shortname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(prefix, shortname))
}

// Close terminates every live connector currently in the cache by
// passing it to kill, aggregating failures. A nil kill only empties
// the cache.
func (c *Cache) Close(ctx context.Context, kill func(context.Context, connector.Connector) error) error {
	c.mu.Lock()
	entries := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if e.conn == nil || kill == nil {
			continue
		}
		if err := kill(ctx, e.conn); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := fmt.Sprintf("%d connectors failed to close:", len(errs))
	for _, e := range errs {
		msg += "\n  " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
