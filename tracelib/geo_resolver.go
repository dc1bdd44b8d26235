package tracelib

import (
	"context"
	"errors"
	"net"
	"sync"
)

// GeoResolver resolves IP addresses into coordinates and remembers
// the results. Successful resolutions are persisted with Save and
// restored with Load. Addresses a provider knows nothing about are
// blacklisted until the end of the process.
//
// The cache and the blacklist are guarded by a mutex so Save can run
// while a trace is in progress. Lookups themselves are done outside of
// the lock.
type GeoResolver struct {
	provider   Provider
	store      Store
	logger     Logger
	metrics    *Metrics
	usageStats *UsageStats

	mutex     sync.RWMutex
	locations map[string]Coordinate
	blacklist map[string]struct{}
}

// Load replaces the cache with the content of the store. If store
// cannot be read, cache stays empty: it is better to start cold than
// to start with a half of the data.
func (g *GeoResolver) Load() {
	locations, err := g.store.Load()
	if err != nil {
		g.logger.CacheError("load", err)

		locations = map[string]Coordinate{}
	}

	g.mutex.Lock()
	g.locations = locations
	g.blacklist = map[string]struct{}{}
	g.mutex.Unlock()

	g.metrics.cacheSize(len(locations))
}

// Save writes a snapshot of the cache to the store. Failures are only
// logged.
func (g *GeoResolver) Save() {
	if err := g.store.Save(g.Locations()); err != nil {
		g.logger.CacheError("save", err)
	}
}

// Resolve returns a coordinate of the IP address. The second return
// value is false if it is unknown.
func (g *GeoResolver) Resolve(ctx context.Context, ip net.IP) (Coordinate, bool) {
	addr := ip.String()

	g.mutex.RLock()
	_, blacklisted := g.blacklist[addr]
	coord, cached := g.locations[addr]
	g.mutex.RUnlock()

	switch {
	case blacklisted:
		g.metrics.lookup(LookupOutcomeBlacklisted)

		return Coordinate{}, false
	case cached:
		g.metrics.lookup(LookupOutcomeCacheHit)

		return coord, true
	}

	result, err := g.provider.Lookup(ctx, ip)

	g.usageStats.Used(err)

	switch {
	case errors.Is(err, ErrLocationNotFound):
		g.metrics.lookup(LookupOutcomeNotFound)

		g.mutex.Lock()
		g.blacklist[addr] = struct{}{}
		g.mutex.Unlock()

		return Coordinate{}, false
	case err != nil:
		g.metrics.lookup(LookupOutcomeError)
		g.logger.LookupError(ip, g.provider.Name(), err)

		return Coordinate{}, false
	}

	g.metrics.lookup(LookupOutcomeSuccess)

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if coord, ok := g.locations[addr]; ok {
		return coord, true
	}

	g.locations[addr] = result.Coordinate
	g.metrics.cacheSize(len(g.locations))

	return result.Coordinate, true
}

// Blacklisted tells if this address is known to have no location.
func (g *GeoResolver) Blacklisted(ip net.IP) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	_, ok := g.blacklist[ip.String()]

	return ok
}

// Locations returns a copy of the cache.
func (g *GeoResolver) Locations() map[string]Coordinate {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	rv := make(map[string]Coordinate, len(g.locations))

	for k, v := range g.locations {
		rv[k] = v
	}

	return rv
}

func (g *GeoResolver) UsageStats() *UsageStats {
	return g.usageStats
}

// NewGeoResolver creates a new resolver with an empty cache. Please
// call Load to populate it from the store. metrics can be nil.
func NewGeoResolver(provider Provider, store Store, logger Logger, metrics *Metrics) *GeoResolver {
	return &GeoResolver{
		provider: provider,
		store:    store,
		logger:   logger,
		metrics:  metrics,
		usageStats: &UsageStats{
			Name: provider.Name(),
		},
		locations: map[string]Coordinate{},
		blacklist: map[string]struct{}{},
	}
}
