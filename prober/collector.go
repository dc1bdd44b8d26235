package prober

import (
	"net"
	"sort"

	"github.com/9seconds/tracemap/tracelib"
)

// collector matches ICMP replies to the probes we have sent.
type collector struct {
	destination net.IP
	port        int
	maxHops     int

	portToTTL      map[int]int
	replies        map[int]tracelib.ProbeReply
	destinationTTL int
}

func (c *collector) sent(ttl, sourcePort int) {
	c.portToTTL[sourcePort] = ttl
}

// add returns false if reply does not belong to this probe. Only the
// first reply for each TTL is kept.
func (c *collector) add(q quote, source net.IP) bool {
	if !q.Destination.Equal(c.destination) || q.DestinationPort != c.port {
		return false
	}

	ttl, ok := c.portToTTL[q.SourcePort]
	if !ok {
		return false
	}

	if _, ok := c.replies[ttl]; ok {
		return true
	}

	c.replies[ttl] = tracelib.ProbeReply{
		TTL:         ttl,
		Destination: c.destination,
		Source:      source,
	}

	if (q.Reached || source.Equal(c.destination)) && (c.destinationTTL == 0 || ttl < c.destinationTTL) {
		c.destinationTTL = ttl
	}

	return true
}

// done tells that there is no point to wait for more replies: either
// all TTLs were answered or everything before the destination was.
func (c *collector) done() bool {
	limit := c.maxHops
	if c.destinationTTL > 0 {
		limit = c.destinationTTL
	}

	for ttl := 1; ttl <= limit; ttl++ {
		if _, ok := c.replies[ttl]; !ok {
			return false
		}
	}

	return true
}

// result returns replies sorted by TTL. Everything after the
// destination is dropped: these are duplicate replies of the
// destination itself.
func (c *collector) result() []tracelib.ProbeReply {
	rv := make([]tracelib.ProbeReply, 0, len(c.replies))

	for ttl, reply := range c.replies {
		if c.destinationTTL > 0 && ttl > c.destinationTTL {
			continue
		}

		rv = append(rv, reply)
	}

	sort.Slice(rv, func(i, j int) bool {
		return rv[i].TTL < rv[j].TTL
	})

	return rv
}

func newCollector(destination net.IP, port, maxHops int) *collector {
	return &collector{
		destination: destination,
		port:        port,
		maxHops:     maxHops,
		portToTTL:   map[int]int{},
		replies:     map[int]tracelib.ProbeReply{},
	}
}
