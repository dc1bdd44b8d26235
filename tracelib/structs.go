package tracelib

import (
	"encoding/json"
	"net"
	"strconv"
	"time"
)

// Coordinate is a pair of latitude and longitude. Nobody validates
// these values, they are passed as is from a provider.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinate) String() string {
	return "[" + strconv.FormatFloat(c.Latitude, 'f', -1, 64) +
		", " + strconv.FormatFloat(c.Longitude, 'f', -1, 64) + "]"
}

type ProviderLookupResult struct {
	Coordinate
}

// Family is an address family of the probe.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
)

func (f Family) String() string {
	if f == FamilyIPv6 {
		return "ipv6"
	}

	return "ipv4"
}

// FamilyOf detects an address family of the given IP.
func FamilyOf(ip net.IP) Family {
	if ip.To4() != nil {
		return FamilyIPv4
	}

	return FamilyIPv6
}

type ProbeRequest struct {
	Destination net.IP
	Family      Family
	MaxHops     int
	Port        int
	Timeout     time.Duration
}

// ProbeReply is a pair of a sent probe and a received reply.
// Destination is where probe was sent to, Source is who has replied.
type ProbeReply struct {
	TTL         int
	Destination net.IP
	Source      net.IP
}

type RenderMode string

const (
	RenderModeMarkers      RenderMode = "markers"
	RenderModeMarkersLines RenderMode = "markers+lines"
)

type RouteHop struct {
	Coordinate

	Address net.IP `json:"address"`
	Index   int    `json:"index"`
	Label   string `json:"label"`
}

// Text returns a text which is shown near the hop on the map.
func (r RouteHop) Text() string {
	return "hop " + strconv.Itoa(r.Index) + ": " + r.Label
}

// Default hints for hop markers.
const (
	MarkerSize   = 10
	MarkerSymbol = "square"
)

type Marker struct {
	Size   int    `json:"size"`
	Symbol string `json:"symbol"`
}

type RouteRecord struct {
	Destination net.IP     `json:"destination"`
	Hits        int64      `json:"hits"`
	ByteCount   int64      `json:"bytes"`
	Hops        []RouteHop `json:"hops"`
	Mode        RenderMode `json:"mode"`
	Name        string     `json:"name"`
	Summary     string     `json:"summary"`
	LineWidth   float64    `json:"line_width"`
	Marker      Marker     `json:"marker"`
}

func (r RouteRecord) Latitudes() []float64 {
	rv := make([]float64, len(r.Hops))

	for i := range r.Hops {
		rv[i] = r.Hops[i].Latitude
	}

	return rv
}

func (r RouteRecord) Longitudes() []float64 {
	rv := make([]float64, len(r.Hops))

	for i := range r.Hops {
		rv[i] = r.Hops[i].Longitude
	}

	return rv
}

func (r RouteRecord) Labels() []string {
	rv := make([]string, len(r.Hops))

	for i := range r.Hops {
		rv[i] = r.Hops[i].Text()
	}

	return rv
}

func (r RouteRecord) MarshalJSON() ([]byte, error) {
	type alias RouteRecord

	hops := r.Hops
	if hops == nil {
		hops = []RouteHop{}
	}

	value := struct {
		alias

		Hops       []RouteHop `json:"hops"`
		Latitudes  []float64  `json:"lat"`
		Longitudes []float64  `json:"lon"`
		Labels     []string   `json:"text"`
	}{
		alias:      alias(r),
		Hops:       hops,
		Latitudes:  r.Latitudes(),
		Longitudes: r.Longitudes(),
		Labels:     r.Labels(),
	}

	return json.Marshal(&value)
}
