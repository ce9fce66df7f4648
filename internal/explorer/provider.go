package explorer

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"meshview/internal/hostui"
	"meshview/internal/remotefs"
	"meshview/internal/status"
)

// Signal tells the frontend what to re-request: the whole tree, or the
// listed nodes' subtrees. The two cases never overlap.
type Signal struct {
	All   bool   `json:"all"`
	Nodes []Node `json:"nodes,omitempty"`
}

// Store persists per-host explorer settings. Implementations must
// tolerate unknown hosts by returning the zero value.
type Store interface {
	// RootOverride returns the stored root directory for host, or ""
	// if none is set.
	RootOverride(host string) (string, error)
	SetRootOverride(host, dir string) error
	// LogConnection records that the user opened a terminal or window
	// on host.
	LogConnection(host, action string) error
}

// Config holds provider settings.
type Config struct {
	// DefaultRootDir is the root directory mounted for peers without a
	// stored override. Empty or "~" means the peer's home directory.
	DefaultRootDir string

	// HideGlobs are doublestar patterns; directory entries whose name
	// matches any of them are omitted from listings.
	HideGlobs []string
}

// Provider answers tree expansion queries. It owns the host-name to
// peer mapping for the current refresh cycle and the change signal
// stream the frontend subscribes to.
type Provider struct {
	statusClient status.Client
	resolver     *PathResolver
	fs           remotefs.FS
	store        Store
	notifier     hostui.Notifier
	cfg          Config
	logf         func(format string, args ...any)

	mu      sync.Mutex
	gen     uint64
	tailnet string
	peers   map[string]status.Peer

	subMu   sync.Mutex
	subs    []chan Signal
	onTitle func(tailnet string)
}

// NewProvider creates a provider. store may be nil; notifier must not be.
func NewProvider(sc status.Client, resolver *PathResolver, fs remotefs.FS, store Store, notifier hostui.Notifier, cfg Config, logf func(format string, args ...any)) *Provider {
	if logf == nil {
		logf = log.Printf
	}
	return &Provider{
		statusClient: sc,
		resolver:     resolver,
		fs:           fs,
		store:        store,
		notifier:     notifier,
		cfg:          cfg,
		logf:         logf,
		peers:        make(map[string]status.Peer),
	}
}

// SetTitleFunc registers the callback invoked with the tailnet name
// discovered on each successful root refresh.
func (p *Provider) SetTitleFunc(fn func(tailnet string)) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.onTitle = fn
}

// Subscribe returns a channel of change signals. Slow subscribers drop
// signals rather than block the provider.
func (p *Provider) Subscribe() <-chan Signal {
	ch := make(chan Signal, 16)
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subs = append(p.subs, ch)
	return ch
}

// RefreshAll invalidates the whole tree.
func (p *Provider) RefreshAll() {
	p.notify(Signal{All: true})
}

// RefreshNodes invalidates the subtrees rooted at the given nodes.
func (p *Provider) RefreshNodes(nodes ...Node) {
	if len(nodes) == 0 {
		return
	}
	p.notify(Signal{Nodes: nodes})
}

func (p *Provider) notify(sig Signal) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- sig:
		default:
		}
	}
}

// Tailnet returns the tailnet name from the most recent refresh.
func (p *Provider) Tailnet() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tailnet
}

// PeerByHost looks up a peer in the current refresh cycle's mapping.
// Node references from before the last refresh re-resolve through this;
// they never trust cached identity.
func (p *Provider) PeerByHost(host string) (status.Peer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	peer, ok := p.peers[host]
	return peer, ok
}

// GetTreeItem renders a node for display.
func (p *Provider) GetTreeItem(n Node) Item {
	return n.Item()
}

// GetChildren returns the children of node, or the root peer list when
// node is nil. All failures are surfaced as notifications and yield an
// empty list; the tree is never left partially populated.
func (p *Provider) GetChildren(ctx context.Context, node *Node) ([]Node, error) {
	switch {
	case node == nil:
		return p.rootChildren(ctx), nil
	// Nodes arrive as frontend JSON; a node may claim the peer kind
	// without carrying its payload.
	case node.Kind == KindPeer && node.Peer != nil:
		return p.peerChildren(ctx, *node), nil
	case node.IsDirectory():
		return p.directoryChildren(ctx, *node), nil
	default:
		return nil, nil
	}
}

// rootChildren queries the status backend and rebuilds the peer list.
// Overlapping refreshes are possible when the user mashes refresh; a
// generation counter makes sure only the newest query installs its
// peer mapping.
func (p *Provider) rootChildren(ctx context.Context) []Node {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	sum, err := p.statusClient.Status(ctx)
	if err != nil {
		p.logf("explorer: status query failed: %v", err)
		p.notifier.Error("Failed to query mesh status: " + err.Error())
		return []Node{}
	}
	if len(sum.Errors) > 0 {
		p.logf("explorer: status reported errors: %v", sum.Errors)
		p.notifier.Error("Mesh status reported errors: " + strings.Join(sum.Errors, "; "))
		return []Node{}
	}

	peers := make(map[string]status.Peer, len(sum.Peers))
	for _, peer := range sum.Peers {
		peers[peer.HostName] = peer
	}

	p.mu.Lock()
	stale := gen != p.gen
	if !stale {
		p.peers = peers
		p.tailnet = sum.TailnetName
	}
	p.mu.Unlock()
	if stale {
		// A newer refresh finished first; keep its mapping.
		p.logf("explorer: discarding stale refresh result")
		return []Node{}
	}

	p.subMu.Lock()
	onTitle := p.onTitle
	p.subMu.Unlock()
	if onTitle != nil {
		onTitle(sum.TailnetName)
	}

	nodes := make([]Node, 0, len(sum.Peers))
	for _, peer := range sum.Peers {
		nodes = append(nodes, PeerNode(peer))
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Peer.HostName < nodes[j].Peer.HostName
	})
	return nodes
}

// peerChildren mounts the peer's root directory: exactly one file node
// with the root context and the abbreviated path as its description.
func (p *Provider) peerChildren(ctx context.Context, node Node) []Node {
	host := node.Peer.HostName

	declared := p.cfg.DefaultRootDir
	if p.store != nil {
		override, err := p.store.RootOverride(host)
		if err != nil {
			p.logf("explorer: root override lookup for %s: %v", host, err)
		} else if override != "" {
			declared = override
		}
	}

	absolute, display := p.resolver.ResolveRoot(ctx, host, declared)

	root := FileNode(remotefs.NewURI(p.Tailnet(), host, absolute), remotefs.EntryDir, ContextRoot)
	root.Description = display
	return []Node{root}
}

func (p *Provider) directoryChildren(ctx context.Context, node Node) []Node {
	entries, err := p.fs.ReadDirectory(ctx, node.URI)
	if err != nil {
		p.logf("explorer: list %s: %v", node.URI, err)
		p.notifier.Error("Failed to list directory: " + err.Error())
		return []Node{}
	}

	// Filter into a fresh slice; the FS implementation may hand out a
	// slice it still owns.
	kept := make([]remotefs.DirEntry, 0, len(entries))
	for _, e := range entries {
		if !p.hidden(e.Name) {
			kept = append(kept, e)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		di, dj := kept[i].Type == remotefs.EntryDir, kept[j].Type == remotefs.EntryDir
		if di != dj {
			return di
		}
		return kept[i].Name < kept[j].Name
	})

	nodes := make([]Node, 0, len(kept))
	for _, e := range kept {
		nodes = append(nodes, FileNode(node.URI.Join(e.Name), e.Type, ContextChild))
	}
	return nodes
}

func (p *Provider) hidden(name string) bool {
	for _, pattern := range p.cfg.HideGlobs {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
