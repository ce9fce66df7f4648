package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"net/netip"
	"reflect"
	"testing"

	"meshview/internal/remotefs"
	"meshview/internal/status"
)

func mustAddr(t *testing.T, s string) netip.Addr {
	t.Helper()
	a, err := netip.ParseAddr(s)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func testSummary(t *testing.T) *status.Summary {
	return &status.Summary{
		TailnetName: "corp.example.com",
		Peers: []status.Peer{
			{
				ID:       "n1",
				HostName: "box1",
				DNSName:  "box1.corp.example.com.",
				Addrs:    []netip.Addr{mustAddr(t, "100.64.0.1"), mustAddr(t, "fd7a::1")},
				Online:   true,
			},
			{
				ID:       "n2",
				HostName: "box2",
				Online:   false,
			},
		},
	}
}

func newTestProvider(sc status.Client, runner Runner, fs remotefs.FS, store Store, rec *recorder, cfg Config) *Provider {
	return NewProvider(sc, NewPathResolver(runner, discardLogf), fs, store, rec, cfg, discardLogf)
}

func TestGetChildrenRoot(t *testing.T) {
	rec := &recorder{}
	sc := &fakeStatus{summary: testSummary(t)}
	p := newTestProvider(sc, &fakeRunner{home: "/home/alice"}, newFakeFS(), nil, rec, Config{})

	var tailnet string
	p.SetTitleFunc(func(tn string) { tailnet = tn })

	nodes, err := p.GetChildren(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
	if nodes[0].Kind != KindPeer || nodes[0].Peer.HostName != "box1" {
		t.Errorf("first node = %+v", nodes[0])
	}
	if nodes[1].Peer.HostName != "box2" {
		t.Errorf("second node = %+v", nodes[1])
	}
	if tailnet != "corp.example.com" {
		t.Errorf("title = %q, want tailnet name", tailnet)
	}
	if p.Tailnet() != "corp.example.com" {
		t.Errorf("Tailnet() = %q", p.Tailnet())
	}
	if _, ok := p.PeerByHost("box1"); !ok {
		t.Error("box1 missing from peer mapping")
	}
	if rec.errorCount() != 0 {
		t.Errorf("unexpected notifications: %v", rec.errs)
	}
}

func TestGetChildrenRootStatusErrors(t *testing.T) {
	rec := &recorder{}
	sum := testSummary(t)
	sum.Errors = []string{"backend starting"}
	p := newTestProvider(&fakeStatus{summary: sum}, &fakeRunner{}, newFakeFS(), nil, rec, Config{})

	nodes, err := p.GetChildren(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(nodes) != 0 {
		t.Errorf("got %d nodes, want 0 on status errors", len(nodes))
	}
	if rec.errorCount() != 1 {
		t.Errorf("got %d error notifications, want 1", rec.errorCount())
	}
}

func TestGetChildrenRootQueryFails(t *testing.T) {
	rec := &recorder{}
	p := newTestProvider(&fakeStatus{err: errors.New("socket gone")}, &fakeRunner{}, newFakeFS(), nil, rec, Config{})

	nodes, _ := p.GetChildren(context.Background(), nil)
	if len(nodes) != 0 {
		t.Errorf("got %d nodes, want 0", len(nodes))
	}
	if rec.errorCount() != 1 {
		t.Errorf("got %d error notifications, want 1", rec.errorCount())
	}
}

func TestPeerMappingReplacedWholesale(t *testing.T) {
	rec := &recorder{}
	sc := &fakeStatus{summary: testSummary(t)}
	p := newTestProvider(sc, &fakeRunner{home: "/home/alice"}, newFakeFS(), nil, rec, Config{})

	ctx := context.Background()
	if _, err := p.GetChildren(ctx, nil); err != nil {
		t.Fatal(err)
	}

	// box2 disappears on the next refresh.
	sc.mu.Lock()
	sc.summary = &status.Summary{
		TailnetName: "corp.example.com",
		Peers:       []status.Peer{{ID: "n1", HostName: "box1", Online: true}},
	}
	sc.mu.Unlock()

	if _, err := p.GetChildren(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.PeerByHost("box2"); ok {
		t.Error("box2 still resolvable after refresh dropped it")
	}
}

func TestGetChildrenPeerMountsRoot(t *testing.T) {
	rec := &recorder{}
	p := newTestProvider(&fakeStatus{summary: testSummary(t)}, &fakeRunner{home: "/home/alice"}, newFakeFS(), nil, rec, Config{})

	ctx := context.Background()
	if _, err := p.GetChildren(ctx, nil); err != nil {
		t.Fatal(err)
	}

	peer := PeerNode(status.Peer{HostName: "box1"})
	nodes, err := p.GetChildren(ctx, &peer)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes, want exactly 1 root", len(nodes))
	}

	root := nodes[0]
	if root.Kind != KindFile || root.Context != ContextRoot {
		t.Errorf("root node = %+v", root)
	}
	wantURI := "mesh-fs://corp.example.com/box1/home/alice"
	if root.URI.String() != wantURI {
		t.Errorf("URI = %q, want %q", root.URI, wantURI)
	}
	if root.Description != "~" {
		t.Errorf("description = %q, want %q", root.Description, "~")
	}
	if root.EntryType != remotefs.EntryDir {
		t.Errorf("entry type = %v, want dir", root.EntryType)
	}
}

func TestGetChildrenPeerUsesOverride(t *testing.T) {
	rec := &recorder{}
	store := newMemStore()
	store.overrides["box1"] = "/home/alice/projects"
	p := newTestProvider(&fakeStatus{summary: testSummary(t)}, &fakeRunner{home: "/home/alice"}, newFakeFS(), store, rec, Config{DefaultRootDir: "/srv"})

	ctx := context.Background()
	if _, err := p.GetChildren(ctx, nil); err != nil {
		t.Fatal(err)
	}

	peer := PeerNode(status.Peer{HostName: "box1"})
	nodes, err := p.GetChildren(ctx, &peer)
	if err != nil {
		t.Fatal(err)
	}
	if got := nodes[0].URI.Path; got != "/home/alice/projects" {
		t.Errorf("path = %q, want override", got)
	}
	if got := nodes[0].Description; got != "~/projects" {
		t.Errorf("description = %q, want %q", got, "~/projects")
	}
}

func TestGetChildrenPeerMissingPayload(t *testing.T) {
	rec := &recorder{}
	p := newTestProvider(&fakeStatus{summary: testSummary(t)}, &fakeRunner{home: "/home/alice"}, newFakeFS(), nil, rec, Config{})

	// The frontend can hand back any JSON it likes; a peer node without
	// its record must not take the peer-expansion path.
	var node Node
	if err := json.Unmarshal([]byte(`{"kind":"peer"}`), &node); err != nil {
		t.Fatal(err)
	}
	nodes, err := p.GetChildren(context.Background(), &node)
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if nodes != nil {
		t.Errorf("children = %v, want none", nodes)
	}
}

func TestGetChildrenDirectory(t *testing.T) {
	rec := &recorder{}
	fs := newFakeFS()
	dir := remotefs.NewURI("corp.example.com", "box1", "/home/alice")
	fs.dirs[dir.String()] = []remotefs.DirEntry{
		{Name: "zebra.txt", Type: remotefs.EntryFile},
		{Name: "docs", Type: remotefs.EntryDir},
		{Name: "apple.txt", Type: remotefs.EntryFile},
		{Name: "bin", Type: remotefs.EntryDir},
	}
	p := newTestProvider(&fakeStatus{summary: testSummary(t)}, &fakeRunner{}, fs, nil, rec, Config{})

	node := FileNode(dir, remotefs.EntryDir, ContextRoot)
	nodes, err := p.GetChildren(context.Background(), &node)
	if err != nil {
		t.Fatal(err)
	}

	var labels []string
	for _, n := range nodes {
		labels = append(labels, n.Label)
		if n.Context != ContextChild {
			t.Errorf("%s context = %q, want child", n.Label, n.Context)
		}
		if n.URI.Host != "box1" || n.URI.Tailnet != "corp.example.com" {
			t.Errorf("%s has wrong identity: %+v", n.Label, n.URI)
		}
	}
	want := []string{"bin", "docs", "apple.txt", "zebra.txt"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("labels = %v, want %v (dirs first, then by name)", labels, want)
	}
}

func TestGetChildrenDirectoryIdempotent(t *testing.T) {
	rec := &recorder{}
	fs := newFakeFS()
	dir := remotefs.NewURI("tn", "box1", "/data")
	fs.dirs[dir.String()] = []remotefs.DirEntry{
		{Name: "a", Type: remotefs.EntryFile},
		{Name: "b", Type: remotefs.EntryDir},
	}
	p := newTestProvider(&fakeStatus{}, &fakeRunner{}, fs, nil, rec, Config{})

	node := FileNode(dir, remotefs.EntryDir, ContextChild)
	first, err := p.GetChildren(context.Background(), &node)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.GetChildren(context.Background(), &node)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("consecutive listings differ: %v vs %v", first, second)
	}
}

func TestGetChildrenDirectoryHidesGlobs(t *testing.T) {
	rec := &recorder{}
	fs := newFakeFS()
	dir := remotefs.NewURI("tn", "box1", "/home/alice")
	fs.dirs[dir.String()] = []remotefs.DirEntry{
		{Name: ".git", Type: remotefs.EntryDir},
		{Name: "main.go", Type: remotefs.EntryFile},
		{Name: "main.o", Type: remotefs.EntryFile},
	}
	p := newTestProvider(&fakeStatus{}, &fakeRunner{}, fs, nil, rec, Config{HideGlobs: []string{".git", "*.o"}})

	node := FileNode(dir, remotefs.EntryDir, ContextChild)
	nodes, err := p.GetChildren(context.Background(), &node)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0].Label != "main.go" {
		t.Errorf("nodes = %+v, want only main.go", nodes)
	}
}

func TestGetChildrenDirectoryLeavesEntriesIntact(t *testing.T) {
	rec := &recorder{}
	fs := newFakeFS()
	dir := remotefs.NewURI("tn", "box1", "/home/alice")
	entries := []remotefs.DirEntry{
		{Name: ".git", Type: remotefs.EntryDir},
		{Name: "main.go", Type: remotefs.EntryFile},
	}
	fs.dirs[dir.String()] = entries
	p := newTestProvider(&fakeStatus{}, &fakeRunner{}, fs, nil, rec, Config{HideGlobs: []string{".git"}})

	node := FileNode(dir, remotefs.EntryDir, ContextChild)
	if _, err := p.GetChildren(context.Background(), &node); err != nil {
		t.Fatal(err)
	}

	// Filtering must not rearrange the slice the filesystem returned; a
	// caching implementation keeps handing out the same one.
	want := []remotefs.DirEntry{
		{Name: ".git", Type: remotefs.EntryDir},
		{Name: "main.go", Type: remotefs.EntryFile},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("listing mutated the filesystem's slice: %v", entries)
	}
}

func TestGetChildrenDirectoryListFails(t *testing.T) {
	rec := &recorder{}
	fs := newFakeFS()
	fs.listErr = errors.New("permission denied")
	p := newTestProvider(&fakeStatus{}, &fakeRunner{}, fs, nil, rec, Config{})

	node := FileNode(remotefs.NewURI("tn", "box1", "/root"), remotefs.EntryDir, ContextChild)
	nodes, err := p.GetChildren(context.Background(), &node)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 0 {
		t.Errorf("got %d nodes, want 0", len(nodes))
	}
	if rec.errorCount() != 1 {
		t.Errorf("got %d error notifications, want 1", rec.errorCount())
	}
}

func TestGetChildrenLeaves(t *testing.T) {
	rec := &recorder{}
	p := newTestProvider(&fakeStatus{}, &fakeRunner{}, newFakeFS(), nil, rec, Config{})

	file := FileNode(remotefs.NewURI("tn", "box1", "/etc/hosts"), remotefs.EntryFile, ContextChild)
	if nodes, _ := p.GetChildren(context.Background(), &file); nodes != nil {
		t.Errorf("file children = %v, want none", nodes)
	}

	detail := DetailNode("OS", "linux")
	if nodes, _ := p.GetChildren(context.Background(), &detail); nodes != nil {
		t.Errorf("detail children = %v, want none", nodes)
	}
}

func TestSignals(t *testing.T) {
	rec := &recorder{}
	p := newTestProvider(&fakeStatus{}, &fakeRunner{}, newFakeFS(), nil, rec, Config{})
	ch := p.Subscribe()

	p.RefreshAll()
	sig := <-ch
	if !sig.All || len(sig.Nodes) != 0 {
		t.Errorf("RefreshAll signal = %+v", sig)
	}

	node := FileNode(remotefs.NewURI("tn", "box1", "/data"), remotefs.EntryDir, ContextChild)
	p.RefreshNodes(node)
	sig = <-ch
	if sig.All || len(sig.Nodes) != 1 || sig.Nodes[0].URI != node.URI {
		t.Errorf("RefreshNodes signal = %+v", sig)
	}

	// Empty refresh is a no-op, not an all-refresh.
	p.RefreshNodes()
	select {
	case sig := <-ch:
		t.Errorf("unexpected signal %+v", sig)
	default:
	}
}
