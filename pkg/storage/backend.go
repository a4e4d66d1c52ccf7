package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo describes one file of a transfer directory
type FileInfo struct {
	// Path is the absolute local path
	Path string
	// RelativePath is relative to the backend root, always slash-separated
	RelativePath string
	Size         int64
	ModTime      time.Time
	// ContentType is derived from the file extension
	ContentType string
}

// Backend is the local side of a transfer: uploads read from it and
// downloads write into it. All paths are slash-separated and relative to
// Root unless stated otherwise.
type Backend interface {
	Root() string

	// Rel maps an absolute path under Root back to a relative one
	Rel(absPath string) (string, error)

	// List returns the content files under path, skipping hidden entries,
	// system directories and excluded patterns
	List(ctx context.Context, path string) ([]FileInfo, error)

	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or replaces a file. A negative size skips the
	// length check.
	Write(ctx context.Context, path string, reader io.Reader, size int64) error
}

var _ Backend = (*Local)(nil)
