package tracelib

import (
	"context"
	"fmt"
	"math"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMaxHops is a maximal TTL of the probe.
	DefaultMaxHops = 32

	// DefaultProbePort is a destination port of each probe.
	DefaultProbePort = 53
)

type TraceRequest struct {
	Destination  net.IP
	Hits         int64
	ByteCount    int64
	Timeout      time.Duration
	DisplayNames bool
}

// RouteTracerOpts defines dependencies of RouteTracer. Zero MaxHops and
// Port mean defaults. Hostnames and Metrics are optional.
type RouteTracerOpts struct {
	Prober    Prober
	Resolver  *GeoResolver
	Hostnames HostnameResolver
	Logger    Logger
	Metrics   *Metrics
	MaxHops   int
	Port      int
}

// RouteTracer builds routes: it probes a destination and puts each hop
// on a map.
type RouteTracer struct {
	prober    Prober
	resolver  *GeoResolver
	hostnames HostnameResolver
	logger    Logger
	metrics   *Metrics
	maxHops   int
	port      int
}

// Trace builds a route to the destination. Hops which cannot be
// resolved are skipped. The only error it returns is a probe failure.
func (r *RouteTracer) Trace(ctx context.Context, req TraceRequest) (RouteRecord, error) {
	startedAt := time.Now()
	record, err := r.trace(ctx, req)

	r.metrics.trace(err, len(record.Hops), time.Since(startedAt).Seconds())

	return record, err
}

func (r *RouteTracer) trace(ctx context.Context, req TraceRequest) (RouteRecord, error) {
	destination := req.Destination
	rv := RouteRecord{
		Destination: destination,
		Hits:        req.Hits,
		ByteCount:   req.ByteCount,
		Hops:        []RouteHop{},
		Marker: Marker{
			Size:   MarkerSize,
			Symbol: MarkerSymbol,
		},
	}

	replies, err := r.prober.Probe(ctx, ProbeRequest{
		Destination: destination,
		Family:      FamilyOf(destination),
		MaxHops:     r.maxHops,
		Port:        r.port,
		Timeout:     req.Timeout,
	})
	if err != nil {
		return rv, fmt.Errorf("%w to %s: %v", ErrProbeFailed, destination, err)
	}

	sort.SliceStable(replies, func(i, j int) bool {
		return replies[i].TTL < replies[j].TTL
	})

	summary := strings.Builder{}
	destinationSeen := false

	summary.WriteString("Route to " + destination.String() + ": ")

	for _, reply := range replies {
		coord, ok := r.resolver.Resolve(ctx, reply.Source)
		if !ok {
			continue
		}

		hop := RouteHop{
			Coordinate: coord,
			Address:    reply.Source,
			Index:      len(rv.Hops) + 1,
		}

		if req.DisplayNames {
			hop.Label = reply.Source.String()
		}

		rv.Hops = append(rv.Hops, hop)

		summary.WriteString(reply.Destination.String() + " " + coord.String() + ", ")

		if reply.Source.Equal(destination) {
			destinationSeen = true
		}
	}

	if !destinationSeen {
		if coord, ok := r.resolver.Resolve(ctx, destination); ok {
			rv.Hops = append(rv.Hops, RouteHop{
				Coordinate: coord,
				Address:    destination,
				Index:      len(rv.Hops) + 1,
				Label:      destination.String(),
			})
		}
	}

	rv.Summary = strings.TrimSuffix(summary.String(), ", ")
	r.logger.RouteInfo(destination, rv.Summary)

	if len(rv.Hops) == 1 {
		rv.Mode = RenderModeMarkers
	} else {
		rv.Mode = RenderModeMarkersLines
	}

	rv.Name = r.makeName(ctx, req)
	rv.LineWidth = LineWidth(req.ByteCount)

	return rv, nil
}

func (r *RouteTracer) makeName(ctx context.Context, req TraceRequest) string {
	builder := strings.Builder{}

	if req.DisplayNames {
		hostname, err := r.hostnames.LookupHostname(ctx, req.Destination)
		if err != nil {
			r.logger.HostnameError(req.Destination, err)
		} else {
			builder.WriteString(hostname + " | ")
		}
	}

	builder.WriteString(req.Destination.String())
	builder.WriteString(" ")
	builder.WriteString(strconv.FormatInt(req.Hits, 10))
	builder.WriteString(" packets, ")
	builder.WriteString(strconv.FormatInt(req.ByteCount, 10))
	builder.WriteString(" bytes")

	return builder.String()
}

// LineWidth suggests a width of the line which connects hops. It grows
// logarithmically with a number of bytes. Values less than 1 byte are
// treated as 1 byte.
func LineWidth(byteCount int64) float64 {
	if byteCount < 1 {
		byteCount = 1
	}

	return math.Floor(math.Log(float64(byteCount))) / 2
}

func NewRouteTracer(opts RouteTracerOpts) *RouteTracer {
	rv := &RouteTracer{
		prober:    opts.Prober,
		resolver:  opts.Resolver,
		hostnames: opts.Hostnames,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		maxHops:   opts.MaxHops,
		port:      opts.Port,
	}

	if rv.hostnames == nil {
		rv.hostnames = NewHostnameResolver(nil)
	}

	if rv.maxHops <= 0 {
		rv.maxHops = DefaultMaxHops
	}

	if rv.port <= 0 {
		rv.port = DefaultProbePort
	}

	return rv
}
