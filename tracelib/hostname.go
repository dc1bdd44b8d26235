package tracelib

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
)

type hostnameResolver struct {
	resolver *net.Resolver
}

func (h hostnameResolver) LookupHostname(ctx context.Context, ip net.IP) (string, error) {
	names, err := h.resolver.LookupAddr(ctx, ip.String())
	if err != nil {
		return "", fmt.Errorf("cannot resolve a hostname: %w", err)
	}

	if len(names) == 0 {
		return "", fmt.Errorf("no PTR records for %s", ip)
	}

	return strings.TrimSuffix(names[0], "."), nil
}

// NewHostnameResolver makes a reverse DNS resolver. If resolver is
// nil, net.DefaultResolver is used.
func NewHostnameResolver(resolver *net.Resolver) HostnameResolver {
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	return hostnameResolver{
		resolver: resolver,
	}
}

type cachingHostnameResolver struct {
	HostnameResolver

	cache *ristretto.Cache
	ttl   time.Duration
}

func (c cachingHostnameResolver) LookupHostname(ctx context.Context, ip net.IP) (string, error) {
	cacheKey := ip.String()

	if value, ok := c.cache.Get(cacheKey); ok {
		return value.(string), nil
	}

	hostname, err := c.HostnameResolver.LookupHostname(ctx, ip)
	if err != nil {
		return "", err
	}

	c.cache.SetWithTTL(cacheKey, hostname, 1, c.ttl)

	return hostname, nil
}

// NewCachingHostnameResolver wraps a resolver with a cache of itemsCount
// entries. Only successful lookups are cached.
func NewCachingHostnameResolver(resolver HostnameResolver, itemsCount uint, ttl time.Duration) HostnameResolver {
	cacheConfig := &ristretto.Config{
		MaxCost:     int64(itemsCount),
		NumCounters: 10 * int64(itemsCount),
		Metrics:     false,
		BufferItems: 64,
	}

	cache, err := ristretto.NewCache(cacheConfig)
	if err != nil {
		panic(err)
	}

	return cachingHostnameResolver{
		HostnameResolver: resolver,
		cache:            cache,
		ttl:              ttl,
	}
}
