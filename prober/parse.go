package prober

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/9seconds/tracemap/tracelib"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	protocolICMP     = 1
	protocolIPv6ICMP = 58
	protocolUDP      = 17

	ipv6HeaderLen = 40
	udpHeaderLen  = 8
)

// quote is what we can learn about our own probe from an ICMP reply.
type quote struct {
	Destination     net.IP
	SourcePort      int
	DestinationPort int
	Reached         bool
}

func parseICMP(family tracelib.Family, data []byte) (quote, error) {
	proto := protocolICMP
	if family == tracelib.FamilyIPv6 {
		proto = protocolIPv6ICMP
	}

	msg, err := icmp.ParseMessage(proto, data)
	if err != nil {
		return quote{}, fmt.Errorf("cannot parse ICMP message: %w", err)
	}

	var (
		payload []byte
		reached bool
	)

	switch body := msg.Body.(type) {
	case *icmp.TimeExceeded:
		payload = body.Data
	case *icmp.DstUnreach:
		payload = body.Data
		reached = true
	default:
		return quote{}, fmt.Errorf("%w: %v", ErrUnexpectedType, msg.Type)
	}

	var rv quote

	if family == tracelib.FamilyIPv6 {
		rv, err = parseQuoteIPv6(payload)
	} else {
		rv, err = parseQuoteIPv4(payload)
	}

	rv.Reached = reached

	return rv, err
}

func parseQuoteIPv4(data []byte) (quote, error) {
	header, err := ipv4.ParseHeader(data)
	if err != nil {
		return quote{}, fmt.Errorf("cannot parse quoted IPv4 header: %w", err)
	}

	if header.Protocol != protocolUDP {
		return quote{}, ErrNotQuotedUDP
	}

	return parseQuoteUDP(header.Dst, data[header.Len:])
}

func parseQuoteIPv6(data []byte) (quote, error) {
	if len(data) < ipv6HeaderLen {
		return quote{}, ErrShortQuote
	}

	header, err := ipv6.ParseHeader(data)
	if err != nil {
		return quote{}, fmt.Errorf("cannot parse quoted IPv6 header: %w", err)
	}

	// extension headers are not expected in our own probes
	if header.NextHeader != protocolUDP {
		return quote{}, ErrNotQuotedUDP
	}

	return parseQuoteUDP(header.Dst, data[ipv6HeaderLen:])
}

// RFC 792 guarantees at least 8 bytes of the original datagram after
// the IP header: this is exactly UDP header.
func parseQuoteUDP(destination net.IP, data []byte) (quote, error) {
	if len(data) < udpHeaderLen {
		return quote{}, ErrShortQuote
	}

	return quote{
		Destination:     destination,
		SourcePort:      int(binary.BigEndian.Uint16(data[0:2])),
		DestinationPort: int(binary.BigEndian.Uint16(data[2:4])),
	}, nil
}
