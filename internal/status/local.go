package status

import (
	"context"
	"fmt"
	"sort"

	"github.com/WebP2P/dexnet/client/local"
	"github.com/WebP2P/dexnet/ipn/ipnstate"
)

// LocalClient queries the mesh daemon over its LocalAPI socket.
type LocalClient struct {
	lc local.Client
}

// NewLocalClient creates a client for the daemon listening at socketPath.
// An empty socketPath uses the platform default.
func NewLocalClient(socketPath string) *LocalClient {
	c := &LocalClient{}
	if socketPath != "" {
		c.lc = local.Client{Socket: socketPath, UseSocketOnly: true}
	}
	return c
}

// Status fetches the current tailnet snapshot.
func (c *LocalClient) Status(ctx context.Context) (*Summary, error) {
	st, err := c.lc.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: local api: %w", err)
	}
	return fromIPNState(st), nil
}

// fromIPNState translates the backend status into a Summary.
func fromIPNState(st *ipnstate.Status) *Summary {
	s := &Summary{
		Errors: st.Health,
	}
	if st.CurrentTailnet != nil {
		s.TailnetName = st.CurrentTailnet.Name
		s.MagicDNSSuffix = st.CurrentTailnet.MagicDNSSuffix
	}

	s.Peers = make([]Peer, 0, len(st.Peer))
	for _, ps := range st.Peer {
		s.Peers = append(s.Peers, Peer{
			ID:       string(ps.ID),
			HostName: ps.HostName,
			DNSName:  ps.DNSName,
			OS:       ps.OS,
			Addrs:    ps.TailscaleIPs,
			Online:   ps.Online,
			LastSeen: ps.LastSeen,
		})
	}
	sort.Slice(s.Peers, func(i, j int) bool {
		return s.Peers[i].HostName < s.Peers[j].HostName
	})
	return s
}
