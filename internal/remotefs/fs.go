package remotefs

import (
	"context"
)

// EntryType classifies a directory entry.
type EntryType int

const (
	EntryUnknown EntryType = iota
	EntryFile
	EntryDir
	EntrySymlink
)

// String returns a short name for the entry type.
func (t EntryType) String() string {
	switch t {
	case EntryFile:
		return "file"
	case EntryDir:
		return "dir"
	case EntrySymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// DirEntry is one entry in a remote directory listing.
type DirEntry struct {
	Name string    `json:"name"`
	Type EntryType `json:"type"`
}

// FS is the filesystem surface the explorer depends on. Copy moves a
// single file between hosts: dstDir names the directory that receives
// the entry, which keeps its source name.
type FS interface {
	ReadDirectory(ctx context.Context, u URI) ([]DirEntry, error)
	Stat(ctx context.Context, u URI) (DirEntry, error)
	Delete(ctx context.Context, u URI) error
	Copy(ctx context.Context, src, dstDir URI) error
}
