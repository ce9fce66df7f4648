// Package explorer builds the machine-explorer tree: one node per mesh
// peer, and under each peer a lazily expanded view of its remote
// filesystem.
package explorer

import (
	"fmt"
	"strings"

	"meshview/internal/remotefs"
	"meshview/internal/status"
)

// Kind discriminates the node variants.
type Kind string

const (
	// KindPeer is a top-level node wrapping one mesh peer.
	KindPeer Kind = "peer"
	// KindFile is a filesystem entry under a peer.
	KindFile Kind = "file"
	// KindDetail is a static informational row.
	KindDetail Kind = "detail"
)

// File context tags. The root node of a peer's filesystem offers a
// different command set than its descendants.
const (
	ContextRoot  = "root"
	ContextChild = "child"
)

// Node is one tree node. It is a tagged variant: exactly the fields for
// its Kind are set. Nodes are pure view objects, rebuilt on every
// expansion, and round-trip losslessly through JSON so the frontend can
// hand them back on later calls.
type Node struct {
	Kind Kind `json:"kind"`

	// KindPeer
	Peer *status.Peer `json:"peer,omitempty"`

	// KindFile
	URI       remotefs.URI       `json:"uri,omitzero"`
	EntryType remotefs.EntryType `json:"entry_type,omitempty"`
	Context   string             `json:"context,omitempty"`

	// KindFile and KindDetail
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}

// PeerNode wraps a peer record as a tree node.
func PeerNode(p status.Peer) Node {
	return Node{Kind: KindPeer, Peer: &p}
}

// FileNode builds a filesystem node.
func FileNode(u remotefs.URI, entryType remotefs.EntryType, context string) Node {
	return Node{
		Kind:      KindFile,
		Label:     u.Name(),
		URI:       u,
		EntryType: entryType,
		Context:   context,
	}
}

// DetailNode builds an informational row.
func DetailNode(label, description string) Node {
	return Node{Kind: KindDetail, Label: label, Description: description}
}

// Item is the displayable form of a node, consumed by the frontend's
// tree renderer.
type Item struct {
	Label        string `json:"label"`
	Tooltip      string `json:"tooltip,omitempty"`
	Description  string `json:"description,omitempty"`
	ContextValue string `json:"context_value,omitempty"`
	Expandable   bool   `json:"expandable"`
	Openable     bool   `json:"openable"`
}

// Item renders the node for display.
func (n Node) Item() Item {
	switch n.Kind {
	case KindPeer:
		p := n.Peer
		if p == nil {
			// Frontend JSON claimed the kind without the payload.
			return Item{}
		}
		state := "offline"
		if p.Online {
			state = "online"
		}
		tooltip := state
		if dns := strings.TrimSuffix(p.DNSName, "."); dns != "" {
			tooltip = fmt.Sprintf("%s (%s)", dns, state)
		}
		return Item{
			Label:        p.HostName,
			Tooltip:      tooltip,
			ContextValue: "peer",
			Expandable:   true,
		}
	case KindFile:
		return Item{
			Label:        n.Label,
			Description:  n.Description,
			ContextValue: "file-" + n.Context,
			Expandable:   n.EntryType == remotefs.EntryDir,
			Openable:     n.EntryType == remotefs.EntryFile,
		}
	default:
		return Item{
			Label:        n.Label,
			Description:  n.Description,
			ContextValue: n.Context,
		}
	}
}

// HostName returns the host the node belongs to, or "" for detail nodes.
func (n Node) HostName() string {
	switch n.Kind {
	case KindPeer:
		if n.Peer == nil {
			return ""
		}
		return n.Peer.HostName
	case KindFile:
		return n.URI.Host
	default:
		return ""
	}
}

// IsDirectory reports whether n is an expandable filesystem node.
func (n Node) IsDirectory() bool {
	return n.Kind == KindFile && n.EntryType == remotefs.EntryDir
}
