package explorer

import (
	"context"
	"sync"

	"meshview/internal/hostui"
	"meshview/internal/remotefs"
	"meshview/internal/status"
)

func discardLogf(string, ...any) {}

// fakeRunner resolves home directories without a network.
type fakeRunner struct {
	mu    sync.Mutex
	home  string
	err   error
	calls int
}

func (f *fakeRunner) Run(ctx context.Context, host, name string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.home, nil
}

// fakeStatus serves canned tailnet snapshots.
type fakeStatus struct {
	mu      sync.Mutex
	summary *status.Summary
	err     error
	calls   int
}

func (f *fakeStatus) Status(ctx context.Context) (*status.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.summary == nil {
		return &status.Summary{}, nil
	}
	return f.summary, nil
}

// fakeFS is an in-memory remote filesystem keyed by URI string.
type fakeFS struct {
	mu        sync.Mutex
	dirs      map[string][]remotefs.DirEntry
	listErr   error
	deleteErr error
	copyErr   map[string]error // keyed by source URI string
	deleted   []remotefs.URI
	copies    [][2]remotefs.URI
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		dirs:    make(map[string][]remotefs.DirEntry),
		copyErr: make(map[string]error),
	}
}

func (f *fakeFS) ReadDirectory(ctx context.Context, u remotefs.URI) ([]remotefs.DirEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.dirs[u.String()], nil
}

func (f *fakeFS) Stat(ctx context.Context, u remotefs.URI) (remotefs.DirEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dirs[u.String()]; ok {
		return remotefs.DirEntry{Name: u.Name(), Type: remotefs.EntryDir}, nil
	}
	return remotefs.DirEntry{Name: u.Name(), Type: remotefs.EntryFile}, nil
}

func (f *fakeFS) Delete(ctx context.Context, u remotefs.URI) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, u)
	return nil
}

func (f *fakeFS) Copy(ctx context.Context, src, dstDir remotefs.URI) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.copyErr[src.String()]; err != nil {
		return err
	}
	f.copies = append(f.copies, [2]remotefs.URI{src, dstDir})
	return nil
}

func (f *fakeFS) copyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.copies)
}

// recorder implements every host surface and records the calls.
type recorder struct {
	mu        sync.Mutex
	infos     []string
	errs      []string
	clipboard []string
	clipErr   error
	terminals [][2]string // name, command line
	windows   [][2]string // host, path
	urls      []string
}

func (r *recorder) Info(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, msg)
}

func (r *recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, msg)
}

func (r *recorder) WriteText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clipErr != nil {
		return r.clipErr
	}
	r.clipboard = append(r.clipboard, text)
	return nil
}

func (r *recorder) Open(name, commandLine string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminals = append(r.terminals, [2]string{name, commandLine})
	return nil
}

func (r *recorder) OpenRemote(host, path string, newWindow bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, [2]string{host, path})
	return nil
}

func (r *recorder) OpenExternal(url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, url)
	return nil
}

func (r *recorder) Run(title string, fn func()) { fn() }

func (r *recorder) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func (r *recorder) host() hostui.Host {
	return hostui.Host{
		Notifier:  r,
		Clipboard: r,
		Terminal:  r,
		Windows:   r,
		Browser:   r,
		Progress:  r,
	}
}

// memStore keeps overrides and the connection log in memory.
type memStore struct {
	mu        sync.Mutex
	overrides map[string]string
	log       [][2]string
	err       error
}

func newMemStore() *memStore {
	return &memStore{overrides: make(map[string]string)}
}

func (s *memStore) RootOverride(host string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.overrides[host], nil
}

func (s *memStore) SetRootOverride(host, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.overrides[host] = dir
	return nil
}

func (s *memStore) LogConnection(host, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.log = append(s.log, [2]string{host, action})
	return nil
}
