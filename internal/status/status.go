// Package status reports the peers visible on the mesh network.
package status

import (
	"context"
	"net/netip"
	"time"
)

// Peer is one machine on the tailnet as reported by the mesh backend.
type Peer struct {
	ID       string       `json:"id"`
	HostName string       `json:"host_name"`
	DNSName  string       `json:"dns_name,omitempty"`
	OS       string       `json:"os,omitempty"`
	Addrs    []netip.Addr `json:"addrs,omitempty"`
	Online   bool         `json:"online"`
	LastSeen time.Time    `json:"last_seen,omitzero"`
}

// IPv4 returns the peer's first IPv4 address, if any.
func (p Peer) IPv4() (netip.Addr, bool) {
	for _, a := range p.Addrs {
		if a.Is4() {
			return a, true
		}
	}
	return netip.Addr{}, false
}

// IPv6 returns the peer's first IPv6 address, if any.
func (p Peer) IPv6() (netip.Addr, bool) {
	for _, a := range p.Addrs {
		if a.Is6() && !a.Is4In6() {
			return a, true
		}
	}
	return netip.Addr{}, false
}

// Summary is one snapshot of the tailnet. Errors carries backend health
// warnings; a non-empty list means the snapshot must not be trusted.
type Summary struct {
	TailnetName    string   `json:"tailnet_name,omitempty"`
	MagicDNSSuffix string   `json:"magic_dns_suffix,omitempty"`
	Peers          []Peer   `json:"peers"`
	Errors         []string `json:"errors,omitempty"`
}

// Client answers tailnet status queries. Every call returns a fresh
// snapshot; nothing is cached at this layer.
type Client interface {
	Status(ctx context.Context) (*Summary, error)
}
