package tracelib

import (
	"context"
	"net"
	"net/http"
)

// Provider resolves coordinates of the IP address. If provider knows
// for sure that there is no location for this address, it has to
// return an error which wraps ErrLocationNotFound. Any other error is
// treated as temporary.
type Provider interface {
	Name() string
	Lookup(context.Context, net.IP) (ProviderLookupResult, error)
}

// Prober discovers a path to the destination. Replies without
// responses are not returned.
type Prober interface {
	Probe(context.Context, ProbeRequest) ([]ProbeReply, error)
}

// Store is a durable storage for resolved coordinates.
type Store interface {
	Load() (map[string]Coordinate, error)
	Save(map[string]Coordinate) error
}

type HostnameResolver interface {
	LookupHostname(context.Context, net.IP) (string, error)
}

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

type Logger interface {
	LookupError(ip net.IP, name string, err error)
	CacheError(operation string, err error)
	HostnameError(ip net.IP, err error)
	RouteInfo(destination net.IP, msg string)
}
