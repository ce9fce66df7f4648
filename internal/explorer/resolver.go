package explorer

import (
	"context"
	"log"
	"strings"
)

// Runner executes a command on a mesh peer and returns its stdout.
// *sshexec.Client satisfies it.
type Runner interface {
	Run(ctx context.Context, host, name string, args ...string) (string, error)
}

// PathResolver turns a peer's declared root directory into the absolute
// path to mount and a short display form with the home directory
// abbreviated to "~".
type PathResolver struct {
	runner Runner
	logf   func(format string, args ...any)
}

// NewPathResolver creates a resolver over the given runner.
func NewPathResolver(runner Runner, logf func(format string, args ...any)) *PathResolver {
	if logf == nil {
		logf = log.Printf
	}
	return &PathResolver{runner: runner, logf: logf}
}

// ResolveRoot resolves declared for host. The peer's home directory is
// fetched on every call; staleness is worse than the round trip. If the
// lookup fails the resolver degrades to ("~", "~") so the tree still
// renders, and never returns an error.
func (r *PathResolver) ResolveRoot(ctx context.Context, host, declared string) (absolute, display string) {
	home, err := r.runner.Run(ctx, host, "echo", "~")
	if err != nil {
		r.logf("explorer: home dir lookup on %s failed: %v", host, err)
		return "~", "~"
	}
	home = strings.TrimSpace(home)
	if home == "" {
		r.logf("explorer: empty home dir from %s", host)
		return "~", "~"
	}

	if declared == "" || declared == "~" {
		return home, "~"
	}
	if rest, ok := strings.CutPrefix(declared, home); ok {
		return declared, "~" + rest
	}
	return declared, declared
}
