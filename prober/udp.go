package prober

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/9seconds/tracemap/tracelib"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	readBufferSize = 1500

	// DefaultPayloadSize is a size of the UDP payload in each probe.
	DefaultPayloadSize = 32
)

type UDPProber struct {
	payload []byte
}

// Probe sends all probes at once and collects ICMP replies until
// timeout expires or every hop before the destination has replied.
// Timeout is not an error: replies collected so far are returned.
func (u *UDPProber) Probe(ctx context.Context, req tracelib.ProbeRequest) ([]tracelib.ProbeReply, error) {
	network, address := "ip4:icmp", "0.0.0.0"
	if req.Family == tracelib.FamilyIPv6 {
		network, address = "ip6:ipv6-icmp", "::"
	}

	icmpConn, err := icmp.ListenPacket(network, address)
	if err != nil {
		return nil, fmt.Errorf("cannot open ICMP socket: %w", err)
	}

	defer icmpConn.Close()

	deadline := time.Now().Add(req.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := icmpConn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("cannot set read deadline: %w", err)
	}

	coll := newCollector(req.Destination, req.Port, req.MaxHops)

	conns, err := u.send(req, coll)

	defer func() {
		for _, v := range conns {
			v.Close()
		}
	}()

	if err != nil {
		return nil, err
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-readCtx.Done()
		icmpConn.SetReadDeadline(time.Now()) // nolint: errcheck
	}()

	if err := u.receive(icmpConn, req.Family, coll); err != nil {
		return nil, err
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, ctx.Err()
	}

	return coll.result(), nil
}

func (u *UDPProber) send(req tracelib.ProbeRequest, coll *collector) ([]net.PacketConn, error) {
	network := "udp4"
	if req.Family == tracelib.FamilyIPv6 {
		network = "udp6"
	}

	addr := &net.UDPAddr{
		IP:   req.Destination,
		Port: req.Port,
	}
	conns := make([]net.PacketConn, 0, req.MaxHops)

	for ttl := 1; ttl <= req.MaxHops; ttl++ {
		conn, err := net.ListenPacket(network, ":0")
		if err != nil {
			return conns, fmt.Errorf("cannot open UDP socket: %w", err)
		}

		conns = append(conns, conn)

		if req.Family == tracelib.FamilyIPv6 {
			err = ipv6.NewPacketConn(conn).SetHopLimit(ttl)
		} else {
			err = ipv4.NewPacketConn(conn).SetTTL(ttl)
		}

		if err != nil {
			return conns, fmt.Errorf("cannot set TTL %d: %w", ttl, err)
		}

		coll.sent(ttl, conn.LocalAddr().(*net.UDPAddr).Port)

		if _, err := conn.WriteTo(u.payload, addr); err != nil {
			return conns, fmt.Errorf("cannot send probe with TTL %d: %w", ttl, err)
		}
	}

	return conns, nil
}

func (u *UDPProber) receive(conn *icmp.PacketConn, family tracelib.Family, coll *collector) error {
	buf := make([]byte, readBufferSize)

	for !coll.done() {
		n, peer, err := conn.ReadFrom(buf)

		var netErr net.Error

		switch {
		case errors.As(err, &netErr) && netErr.Timeout():
			return nil
		case err != nil:
			return fmt.Errorf("cannot read ICMP reply: %w", err)
		}

		q, err := parseICMP(family, buf[:n])
		if err != nil {
			continue
		}

		coll.add(q, peerIP(peer))
	}

	return nil
}

func peerIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPAddr:
		return v.IP
	case *net.UDPAddr:
		return v.IP
	}

	return nil
}

// NewUDPProber makes a prober which sends payloadSize bytes in each
// probe. Non-positive size means DefaultPayloadSize.
func NewUDPProber(payloadSize int) *UDPProber {
	if payloadSize <= 0 {
		payloadSize = DefaultPayloadSize
	}

	return &UDPProber{
		payload: make([]byte, payloadSize),
	}
}
