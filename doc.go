// Tracemap traces network routes to IP addresses and puts each hop on
// a map.
//
// It sends TTL-limited UDP probes, collects ICMP replies from routers
// on the way and resolves each replying address into a coordinate with
// a geolocation provider. A result is a route record with latitudes,
// longitudes and labels ready to be drawn by any map renderer.
//
// Tool itself is organized into 3 logical parts:
//
// Tracelib
//
// tracelib is a main package of the application. It has GeoResolver
// which resolves and caches coordinates of IP addresses and
// RouteTracer which correlates probe replies with these coordinates.
// It also has an HTTP handler which exposes tracing as an API.
//
// Providers and prober
//
// providers package has implementations of geolocation providers:
// geolocation-db.com (default), ipinfo.io and offline MaxMind
// databases. prober package sends probes and reads ICMP replies.
//
// Tracemap
//
// A main package wires everything together. It has 2 commands: trace
// prints routes as JSON and serve runs HTTP API.
//
// Please pay attention that probing requires raw sockets so binary has
// to run as root or with CAP_NET_RAW capability.
package main
