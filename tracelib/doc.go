// This package provides a set of structs and functions which are used
// to trace a route to a given IP address and put every hop of this
// route on a map.
//
// tracelib is core of the tracemap project. The rest of the application
// shows how to use this library: how to pass parameters from CLI and
// HTTP requests, how to implement geolocation providers and how to
// send probes.
//
// GeoResolver owns a cache of IP coordinates. It knows how to load and
// save this cache, which addresses cannot be resolved and when it is
// required to ask a provider.
//
// RouteTracer accepts a destination, asks a prober for a route and
// returns RouteRecord: an ordered list of hops with coordinates which
// can be plotted as is.
package tracelib
