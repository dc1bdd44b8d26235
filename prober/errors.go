package prober

import "errors"

var (
	ErrNotQuotedUDP   = errors.New("quoted datagram is not UDP")
	ErrShortQuote     = errors.New("quoted datagram is too short")
	ErrUnexpectedType = errors.New("unexpected ICMP message type")
)
