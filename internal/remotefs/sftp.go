package remotefs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// ErrIsDirectory is returned by Copy when the source names a directory.
var ErrIsDirectory = errors.New("remotefs: source is a directory")

// Dialer provides SSH connections to peers. *sshexec.Client satisfies it.
type Dialer interface {
	Dial(ctx context.Context, host string) (*ssh.Client, error)
}

// SFTP implements FS over per-host SFTP sessions. Clients are cached
// and re-established when a session goes stale.
type SFTP struct {
	dialer Dialer
	logf   func(format string, args ...any)

	mu      sync.Mutex
	clients map[string]*sftp.Client
}

// NewSFTP creates an SFTP filesystem over the given dialer.
func NewSFTP(dialer Dialer, logf func(format string, args ...any)) *SFTP {
	if logf == nil {
		logf = log.Printf
	}
	return &SFTP{
		dialer:  dialer,
		logf:    logf,
		clients: make(map[string]*sftp.Client),
	}
}

// ReadDirectory lists the entries of the directory at u.
func (s *SFTP) ReadDirectory(ctx context.Context, u URI) ([]DirEntry, error) {
	client, err := s.client(ctx, u.Host)
	if err != nil {
		return nil, err
	}
	infos, err := client.ReadDir(u.Path)
	if err != nil {
		return nil, fmt.Errorf("remotefs: list %s: %w", u, err)
	}
	entries := make([]DirEntry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, DirEntry{Name: fi.Name(), Type: entryType(fi.Mode())})
	}
	return entries, nil
}

// Stat returns the entry for u itself.
func (s *SFTP) Stat(ctx context.Context, u URI) (DirEntry, error) {
	client, err := s.client(ctx, u.Host)
	if err != nil {
		return DirEntry{}, err
	}
	fi, err := client.Lstat(u.Path)
	if err != nil {
		return DirEntry{}, fmt.Errorf("remotefs: stat %s: %w", u, err)
	}
	return DirEntry{Name: u.Name(), Type: entryType(fi.Mode())}, nil
}

// Delete removes the entry at u. Directories are removed recursively.
func (s *SFTP) Delete(ctx context.Context, u URI) error {
	client, err := s.client(ctx, u.Host)
	if err != nil {
		return err
	}
	fi, err := client.Lstat(u.Path)
	if err != nil {
		return fmt.Errorf("remotefs: stat %s: %w", u, err)
	}
	if fi.IsDir() {
		if err := s.removeAll(ctx, client, u.Path); err != nil {
			return fmt.Errorf("remotefs: delete %s: %w", u, err)
		}
		return nil
	}
	if err := client.Remove(u.Path); err != nil {
		return fmt.Errorf("remotefs: delete %s: %w", u, err)
	}
	return nil
}

func (s *SFTP) removeAll(ctx context.Context, client *sftp.Client, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	infos, err := client.ReadDir(p)
	if err != nil {
		return err
	}
	for _, fi := range infos {
		child := path.Join(p, fi.Name())
		if fi.IsDir() {
			if err := s.removeAll(ctx, client, child); err != nil {
				return err
			}
			continue
		}
		if err := client.Remove(child); err != nil {
			return err
		}
	}
	return client.RemoveDirectory(p)
}

// Copy streams the file at src into the directory dstDir, which may be
// on a different host. The destination entry keeps the source name.
func (s *SFTP) Copy(ctx context.Context, src, dstDir URI) error {
	srcClient, err := s.client(ctx, src.Host)
	if err != nil {
		return err
	}
	fi, err := srcClient.Stat(src.Path)
	if err != nil {
		return fmt.Errorf("remotefs: stat %s: %w", src, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("remotefs: copy %s: %w", src, ErrIsDirectory)
	}

	dstClient := srcClient
	if dstDir.Host != src.Host {
		if dstClient, err = s.client(ctx, dstDir.Host); err != nil {
			return err
		}
	}

	in, err := srcClient.Open(src.Path)
	if err != nil {
		return fmt.Errorf("remotefs: open %s: %w", src, err)
	}
	defer in.Close()

	dst := dstDir.Join(src.Name())
	out, err := dstClient.Create(dst.Path)
	if err != nil {
		return fmt.Errorf("remotefs: create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = dstClient.Remove(dst.Path)
		return fmt.Errorf("remotefs: copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("remotefs: close %s: %w", dst, err)
	}
	if err := dstClient.Chmod(dst.Path, fi.Mode().Perm()); err != nil {
		s.logf("remotefs: chmod %s: %v", dst, err)
	}
	return nil
}

// client returns the cached SFTP client for host, validating it with a
// cheap round trip and reconnecting if it has gone stale.
func (s *SFTP) client(ctx context.Context, host string) (*sftp.Client, error) {
	s.mu.Lock()
	client, ok := s.clients[host]
	s.mu.Unlock()

	if ok {
		if _, err := client.Getwd(); err == nil {
			return client, nil
		}
		s.logf("remotefs: sftp session to %s went stale, reconnecting", host)
		s.mu.Lock()
		if s.clients[host] == client {
			delete(s.clients, host)
		}
		s.mu.Unlock()
		_ = client.Close()
	}

	conn, err := s.dialer.Dial(ctx, host)
	if err != nil {
		return nil, err
	}
	client, err = sftp.NewClient(conn)
	if err != nil {
		return nil, fmt.Errorf("remotefs: sftp to %s: %w", host, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.clients[host]; ok {
		_ = client.Close()
		return prev, nil
	}
	s.clients[host] = client
	return client, nil
}

// Close closes all cached SFTP clients.
func (s *SFTP) Close() error {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]*sftp.Client)
	s.mu.Unlock()

	var firstErr error
	for host, client := range clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remotefs: close %s: %w", host, err)
		}
	}
	return firstErr
}

func entryType(mode os.FileMode) EntryType {
	switch {
	case mode.IsDir():
		return EntryDir
	case mode&os.ModeSymlink != 0:
		return EntrySymlink
	case mode.IsRegular():
		return EntryFile
	default:
		return EntryUnknown
	}
}
