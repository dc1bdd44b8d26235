// Package prober discovers network paths with TTL-limited UDP probes.
//
// For each TTL from 1 to a maximal number of hops, prober opens its own
// UDP socket, sets TTL (or hop limit for IPv6) and sends a single
// datagram to the destination. Routers on the way drop these datagrams
// and reply with ICMP Time Exceeded; the destination itself replies
// with ICMP Destination Unreachable. Each ICMP message quotes the
// headers of the dropped datagram so source port of the quoted UDP
// header tells which TTL was used.
//
// Reading ICMP requires a raw socket so the process needs either root
// or CAP_NET_RAW.
package prober
