// Package remotefs provides access to the filesystems of mesh peers
// through mesh-fs:// resource locators.
package remotefs

import (
	"fmt"
	"path"
	"strings"
)

// Scheme is the URI scheme for remote filesystem resources.
const Scheme = "mesh-fs"

// URI locates one filesystem entry on one peer. The authority is the
// tailnet name; the first path segment is the peer's host name; the
// remainder is the absolute path on that host.
type URI struct {
	Tailnet string
	Host    string
	Path    string
}

// NewURI builds a URI for an absolute path on the given host.
func NewURI(tailnet, host, p string) URI {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return URI{Tailnet: tailnet, Host: host, Path: path.Clean(p)}
}

// ParseURI parses the string form mesh-fs://<tailnet>/<host><path>.
func ParseURI(s string) (URI, error) {
	rest, ok := strings.CutPrefix(s, Scheme+"://")
	if !ok {
		return URI{}, fmt.Errorf("remotefs: not a %s URI: %q", Scheme, s)
	}
	tailnet, rest, ok := strings.Cut(rest, "/")
	if !ok || tailnet == "" {
		return URI{}, fmt.Errorf("remotefs: missing authority in %q", s)
	}
	host, p, _ := strings.Cut(rest, "/")
	if host == "" {
		return URI{}, fmt.Errorf("remotefs: missing host segment in %q", s)
	}
	return NewURI(tailnet, host, "/"+p), nil
}

// String renders the URI in its wire form.
func (u URI) String() string {
	return fmt.Sprintf("%s://%s/%s%s", Scheme, u.Tailnet, u.Host, u.Path)
}

// Join returns the URI for a child entry under u.
func (u URI) Join(name string) URI {
	return URI{Tailnet: u.Tailnet, Host: u.Host, Path: path.Join(u.Path, name)}
}

// Parent returns the URI for the directory containing u.
// The parent of the root is the root itself.
func (u URI) Parent() URI {
	return URI{Tailnet: u.Tailnet, Host: u.Host, Path: path.Dir(u.Path)}
}

// Name returns the last path element.
func (u URI) Name() string {
	return path.Base(u.Path)
}

// IsZero reports whether u is the zero URI.
func (u URI) IsZero() bool {
	return u == URI{}
}

// MarshalText renders the wire form, so URIs embed in JSON as strings.
func (u URI) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText parses the wire form.
func (u *URI) UnmarshalText(text []byte) error {
	parsed, err := ParseURI(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
