// Package sshexec runs commands on mesh peers over SSH and maintains a
// small cache of client connections for reuse by higher layers.
package sshexec

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultDialTimeout bounds connection establishment when the caller's
// context carries no deadline.
const DefaultDialTimeout = 15 * time.Second

// Config holds SSH connection settings.
type Config struct {
	// User is the login name. Empty means the current OS user.
	User string

	// Port is the SSH port. Zero means 22.
	Port int

	// KeyPath is the private key file. Empty means the usual
	// candidates under ~/.ssh are tried in order.
	KeyPath string

	// KnownHostsPath is the known_hosts file for host key checks.
	// If the file does not exist, host keys are not verified; peer
	// identity on the tailnet comes from the mesh itself.
	KnownHostsPath string

	// DialTimeout overrides DefaultDialTimeout when positive.
	DialTimeout time.Duration

	// Logf is the logging function. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

// Client executes remote commands, reusing one SSH connection per host.
type Client struct {
	cfg  Config
	logf func(format string, args ...any)

	mu    sync.Mutex
	conns map[string]*ssh.Client
}

// NewClient creates a client with the given configuration.
func NewClient(cfg Config) *Client {
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Client{
		cfg:   cfg,
		logf:  logf,
		conns: make(map[string]*ssh.Client),
	}
}

// Run executes name with args on host and returns the captured stdout
// with the trailing newline trimmed.
func (c *Client) Run(ctx context.Context, host, name string, args ...string) (string, error) {
	conn, err := c.Dial(ctx, host)
	if err != nil {
		return "", err
	}

	sess, err := conn.NewSession()
	if err != nil {
		// The cached connection may have gone stale; retry once
		// on a fresh one.
		c.drop(host)
		if conn, err = c.Dial(ctx, host); err != nil {
			return "", err
		}
		if sess, err = conn.NewSession(); err != nil {
			return "", fmt.Errorf("sshexec: session on %s: %w", host, err)
		}
	}
	defer sess.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			sess.Close()
		case <-done:
		}
	}()

	out, err := sess.Output(CommandLine(name, args...))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("sshexec: %s on %s: %w", name, host, err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// Dial returns the cached SSH connection for host, establishing one if
// needed.
func (c *Client) Dial(ctx context.Context, host string) (*ssh.Client, error) {
	c.mu.Lock()
	if conn, ok := c.conns[host]; ok {
		c.mu.Unlock()
		return conn, nil
	}
	c.mu.Unlock()

	conn, err := c.dial(ctx, host)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.conns[host]; ok {
		// Lost the race with another dial; keep the first.
		_ = conn.Close()
		return prev, nil
	}
	c.conns[host] = conn
	return conn, nil
}

func (c *Client) dial(ctx context.Context, host string) (*ssh.Client, error) {
	auth, err := c.authMethods()
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := c.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	user := c.cfg.User
	if user == "" {
		user = os.Getenv("USER")
	}
	port := c.cfg.Port
	if port == 0 {
		port = 22
	}

	timeout := c.cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(host, fmt.Sprint(port))
	var d net.Dialer
	tcp, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sshexec: dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(tcp, addr, &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	})
	if err != nil {
		_ = tcp.Close()
		return nil, fmt.Errorf("sshexec: handshake with %s: %w", addr, err)
	}

	c.logf("sshexec: connected to %s as %s", addr, user)
	return ssh.NewClient(sshConn, chans, reqs), nil
}

func (c *Client) authMethods() ([]ssh.AuthMethod, error) {
	candidates := []string{c.cfg.KeyPath}
	if c.cfg.KeyPath == "" {
		home, _ := os.UserHomeDir()
		candidates = []string{
			filepath.Join(home, ".ssh", "id_ed25519"),
			filepath.Join(home, ".ssh", "id_rsa"),
		}
	}

	var signers []ssh.Signer
	for _, p := range candidates {
		if p == "" {
			continue
		}
		key, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			c.logf("sshexec: skipping unreadable key %s: %v", p, err)
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) == 0 {
		return nil, fmt.Errorf("sshexec: no usable private key (tried %s)", strings.Join(candidates, ", "))
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signers...)}, nil
}

func (c *Client) hostKeyCallback() (ssh.HostKeyCallback, error) {
	p := c.cfg.KnownHostsPath
	if p == "" {
		home, _ := os.UserHomeDir()
		p = filepath.Join(home, ".ssh", "known_hosts")
	}
	if _, err := os.Stat(p); err != nil {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(p)
	if err != nil {
		return nil, fmt.Errorf("sshexec: known_hosts %s: %w", p, err)
	}
	return cb, nil
}

// drop discards the cached connection for host.
func (c *Client) drop(host string) {
	c.mu.Lock()
	conn, ok := c.conns[host]
	delete(c.conns, host)
	c.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

// Close closes all cached connections.
func (c *Client) Close() error {
	c.mu.Lock()
	conns := c.conns
	c.conns = make(map[string]*ssh.Client)
	c.mu.Unlock()

	var firstErr error
	for host, conn := range conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sshexec: close %s: %w", host, err)
		}
	}
	return firstErr
}

// CommandLine quotes name and args into a single shell command line.
func CommandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(name))
	for _, a := range args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	// Tilde stays unquoted so the remote shell expands it.
	if !strings.ContainsAny(s, " \t\n\"'`$\\&|;<>()*?[]#!{}") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
