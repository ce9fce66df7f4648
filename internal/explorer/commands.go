package explorer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"meshview/internal/hostui"
	"meshview/internal/remotefs"
)

// Command names the frontend can invoke.
const (
	CmdRefresh          = "refresh"
	CmdDelete           = "delete"
	CmdCopyIPv4         = "copy-ipv4"
	CmdCopyIPv6         = "copy-ipv6"
	CmdCopyHostname     = "copy-hostname"
	CmdCopyDNSName      = "copy-dnsname"
	CmdOpenTerminal     = "open-terminal"
	CmdOpenRemoteCode   = "open-remote-code"
	CmdOpenRemoteCodeAt = "open-remote-code-at"
	CmdOpenAdminConsole = "open-admin-console"
	CmdSetRootDir       = "set-root-dir"
)

// DefaultAdminConsoleURL is the admin page machines are linked from.
const DefaultAdminConsoleURL = "https://login.tailscale.com/admin/machines"

// Commands implements the user-invocable actions on tree nodes. Every
// action is isolated: failures become notifications and never propagate
// past the command boundary.
type Commands struct {
	provider *Provider
	fs       remotefs.FS
	store    Store
	host     hostui.Host
	adminURL string
	logf     func(format string, args ...any)
}

// NewCommands creates the command set. adminURL may be empty to use the
// default; store may be nil, which disables set-root-dir persistence
// and connection logging.
func NewCommands(provider *Provider, fs remotefs.FS, store Store, host hostui.Host, adminURL string, logf func(format string, args ...any)) *Commands {
	if adminURL == "" {
		adminURL = DefaultAdminConsoleURL
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Commands{
		provider: provider,
		fs:       fs,
		store:    store,
		host:     host,
		adminURL: adminURL,
		logf:     logf,
	}
}

// Run dispatches a named command. node may be nil for refresh; arg
// carries the new directory for set-root-dir. An error is returned only
// for an unknown command or a node of the wrong kind; operational
// failures are surfaced as notifications instead.
func (c *Commands) Run(ctx context.Context, name string, node *Node, arg string) error {
	switch name {
	case CmdRefresh:
		c.provider.RefreshAll()
		return nil
	case CmdDelete:
		return c.withFile(node, func(n Node) { c.delete(ctx, n) })
	case CmdCopyIPv4:
		return c.withPeer(node, c.copyIPv4)
	case CmdCopyIPv6:
		return c.withPeer(node, c.copyIPv6)
	case CmdCopyHostname:
		return c.withPeer(node, c.copyHostname)
	case CmdCopyDNSName:
		return c.withPeer(node, c.copyDNSName)
	case CmdOpenTerminal:
		return c.withPeer(node, c.openTerminal)
	case CmdOpenRemoteCode:
		return c.withPeer(node, func(host string) { c.openRemote(host, "") })
	case CmdOpenRemoteCodeAt:
		return c.withFile(node, func(n Node) { c.openRemote(n.URI.Host, n.URI.Path) })
	case CmdOpenAdminConsole:
		return c.withPeer(node, c.openAdminConsole)
	case CmdSetRootDir:
		return c.withPeer(node, func(host string) { c.setRootDir(host, arg) })
	default:
		return fmt.Errorf("explorer: unknown command %q", name)
	}
}

func (c *Commands) withFile(node *Node, fn func(Node)) error {
	if node == nil || node.Kind != KindFile {
		return fmt.Errorf("explorer: command needs a file node")
	}
	fn(*node)
	return nil
}

// withPeer re-resolves the peer through the current refresh cycle's
// mapping instead of trusting the record embedded in the node, which
// may predate the last refresh.
func (c *Commands) withPeer(node *Node, fn func(host string)) error {
	if node == nil || node.Kind != KindPeer || node.Peer == nil {
		return fmt.Errorf("explorer: command needs a peer node")
	}
	host := node.Peer.HostName
	if _, ok := c.provider.PeerByHost(host); !ok {
		c.host.Notifier.Error("Machine " + host + " is no longer visible on the tailnet")
		return nil
	}
	fn(host)
	return nil
}

func (c *Commands) delete(ctx context.Context, node Node) {
	if err := c.fs.Delete(ctx, node.URI); err != nil {
		c.logf("explorer: %v", err)
		c.host.Notifier.Error(fmt.Sprintf("Failed to delete %s: %v", node.Label, err))
		return
	}
	// Refresh the containing directory, not the entry that just went away.
	parent := FileNode(node.URI.Parent(), remotefs.EntryDir, ContextChild)
	c.provider.RefreshNodes(parent)
}

func (c *Commands) copyIPv4(host string) {
	peer, _ := c.provider.PeerByHost(host)
	addr, ok := peer.IPv4()
	if !ok {
		c.host.Notifier.Error("Machine " + host + " has no IPv4 address")
		return
	}
	c.writeClipboard(addr.String())
}

func (c *Commands) copyIPv6(host string) {
	peer, _ := c.provider.PeerByHost(host)
	addr, ok := peer.IPv6()
	if !ok {
		c.host.Notifier.Error("Machine " + host + " has no IPv6 address")
		return
	}
	c.writeClipboard(addr.String())
}

func (c *Commands) copyHostname(host string) {
	c.writeClipboard(host)
}

func (c *Commands) copyDNSName(host string) {
	peer, _ := c.provider.PeerByHost(host)
	dns := strings.TrimSuffix(peer.DNSName, ".")
	if dns == "" {
		c.host.Notifier.Error("Machine " + host + " has no DNS name")
		return
	}
	c.writeClipboard(dns)
}

func (c *Commands) writeClipboard(text string) {
	if err := c.host.Clipboard.WriteText(text); err != nil {
		c.logf("explorer: clipboard write: %v", err)
		c.host.Notifier.Error("Failed to write to the clipboard")
	}
}

func (c *Commands) openTerminal(host string) {
	if err := c.host.Terminal.Open(host, "ssh "+host); err != nil {
		c.host.Notifier.Error("Failed to open a terminal for " + host)
		return
	}
	c.logConnection(host, "terminal")
}

func (c *Commands) openRemote(host, path string) {
	if err := c.host.Windows.OpenRemote(host, path, true); err != nil {
		c.host.Notifier.Error("Failed to open a window on " + host)
		return
	}
	c.logConnection(host, "window")
}

func (c *Commands) openAdminConsole(host string) {
	peer, _ := c.provider.PeerByHost(host)
	if len(peer.Addrs) == 0 {
		c.host.Notifier.Error("Machine " + host + " has no address")
		return
	}
	url := c.adminURL + "/" + peer.Addrs[0].String()
	if err := c.host.Browser.OpenExternal(url); err != nil {
		c.host.Notifier.Error("Failed to open " + url)
	}
}

func (c *Commands) setRootDir(host, dir string) {
	if dir == "" {
		c.host.Notifier.Error("No directory given")
		return
	}
	if c.store == nil {
		c.host.Notifier.Error("Root directory overrides are not available")
		return
	}
	if err := c.store.SetRootOverride(host, dir); err != nil {
		c.logf("explorer: save root override for %s: %v", host, err)
		c.host.Notifier.Error("Failed to save the root directory for " + host)
		return
	}
	c.provider.RefreshAll()
}

func (c *Commands) logConnection(host, action string) {
	if c.store == nil {
		return
	}
	if err := c.store.LogConnection(host, action); err != nil {
		c.logf("explorer: connection log: %v", err)
	}
}
