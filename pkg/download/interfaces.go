package download

import (
	"context"
)

// Manager defines the interface for streaming a remote artifact to disk with
// progress reporting and atomic commit.
type Manager interface {
	// Fetch streams the item to its destination path and returns the number
	// of bytes written. The destination never holds a partial file: content
	// is staged in a temporary sibling and renamed into place on success.
	Fetch(ctx context.Context, item Item) (int64, error)
}

// Item represents one remote resource to download.
type Item struct {
	URL  string // source URL to download
	Dest string // absolute destination path for the finished file

	// Checksum is an optional hex-encoded SHA-256 checksum. If provided, it
	// is verified before the file is committed.
	Checksum string

	// ExpectedSize is the size reported by resolution, 0 when unknown. The
	// Content-Length of the transfer response takes precedence when present.
	ExpectedSize int64

	// OnProgress, if set, receives fractional progress in [0.0, 1.0] after
	// each chunk whenever the total size is known.
	OnProgress func(progress float64)
}
