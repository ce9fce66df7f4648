package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"meshview/internal/hostui"
	"meshview/internal/metrics"
	"meshview/internal/remotefs"
)

// MIME types the controller declares. Drops accept URI lists; drags
// carry tree nodes only. File entries are not draggable out of the tree
// yet; dragging them is a future extension.
const (
	DropURIListMIME = "text/uri-list"
	DragNodesMIME   = "application/vnd.meshview.nodes+json"
)

// Transfer is a drag-and-drop payload keyed by MIME type.
type Transfer map[string][]byte

// DropOp tracks one drop operation. The individual copies run as
// independent tasks; there is deliberately no aggregate status beyond
// the counters.
type DropOp struct {
	ID string

	done   chan struct{}
	copied atomic.Int64
	failed atomic.Int64
}

// Wait blocks until every copy in the operation has finished.
func (op *DropOp) Wait() {
	<-op.done
}

// Copied returns the number of completed copies so far.
func (op *DropOp) Copied() int { return int(op.copied.Load()) }

// Failed returns the number of failed copies so far.
func (op *DropOp) Failed() int { return int(op.failed.Load()) }

// DragDrop serializes cross-host file copies dropped onto directory
// nodes through the remote filesystem's copy primitive.
type DragDrop struct {
	fs       remotefs.FS
	provider *Provider
	notifier hostui.Notifier
	progress hostui.Progress
	logf     func(format string, args ...any)
}

// NewDragDrop creates the controller.
func NewDragDrop(fs remotefs.FS, provider *Provider, notifier hostui.Notifier, progress hostui.Progress, logf func(format string, args ...any)) *DragDrop {
	if logf == nil {
		logf = log.Printf
	}
	return &DragDrop{fs: fs, provider: provider, notifier: notifier, progress: progress, logf: logf}
}

// HandleDrag packages the selected nodes into a transfer payload for an
// intra-tree drag.
func (d *DragDrop) HandleDrag(nodes []Node) (Transfer, error) {
	data, err := json.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("explorer: marshal drag payload: %w", err)
	}
	return Transfer{DragNodesMIME: data}, nil
}

// HandleDrop copies each dropped URI into the target directory. The
// copies run concurrently and resolve independently: one failure is
// reported on its own and does not abort the rest. A change signal
// scoped to the target fires after each item so the frontend re-lists
// it. HandleDrop returns as soon as the copies are launched; callers
// that need completion use the returned op.
func (d *DragDrop) HandleDrop(ctx context.Context, target Node, uris []string) (*DropOp, error) {
	if !target.IsDirectory() {
		return nil, fmt.Errorf("explorer: drop target %q is not a directory", target.Label)
	}

	op := &DropOp{
		ID:   uuid.NewString(),
		done: make(chan struct{}),
	}

	var wg sync.WaitGroup
	for _, raw := range uris {
		src, err := remotefs.ParseURI(raw)
		if err != nil {
			d.logf("explorer: drop: %v", err)
			d.notifier.Error("Cannot copy " + raw + ": not a remote file")
			op.failed.Add(1)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			d.copyOne(ctx, op, src, target)
		}()
	}

	go func() {
		wg.Wait()
		close(op.done)
	}()
	return op, nil
}

func (d *DragDrop) copyOne(ctx context.Context, op *DropOp, src remotefs.URI, target Node) {
	// The copy primitive streams file contents; reject directory
	// sources up front instead of failing mid-transfer. A stat failure
	// falls through and lets the copy report the real error.
	if info, err := d.fs.Stat(ctx, src); err == nil && info.Type == remotefs.EntryDir {
		d.notifier.Error("Cannot copy " + src.Name() + ": directories are not supported")
		op.failed.Add(1)
		metrics.RecordCopy(false)
		return
	}

	title := fmt.Sprintf("Copying %s to %s", src.Name(), target.URI.Host)
	d.progress.Run(title, func() {
		if err := d.fs.Copy(ctx, src, target.URI); err != nil {
			d.logf("explorer: %v", err)
			d.notifier.Error(fmt.Sprintf("Failed to copy %s: %v", src.Name(), err))
			op.failed.Add(1)
			metrics.RecordCopy(false)
		} else {
			op.copied.Add(1)
			metrics.RecordCopy(true)
		}
		// Re-list the target either way; a partial drop still changes it.
		d.provider.RefreshNodes(target)
	})
}
