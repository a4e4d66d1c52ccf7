package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrOutsideRoot is returned for paths that resolve outside the backend root
var ErrOutsideRoot = errors.New("path escapes storage root")

// Local is a filesystem-based storage backend
type Local struct {
	rootPath string
	exclude  []string
}

// NewLocal creates a new local filesystem backend rooted at an existing directory
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return &Local{rootPath: absPath}, nil
}

// Root returns the absolute root directory
func (l *Local) Root() string {
	return l.rootPath
}

// SetExcludePatterns sets glob patterns skipped by List
func (l *Local) SetExcludePatterns(patterns []string) {
	l.exclude = patterns
}

// List returns all content files under path recursively, sorted by relative path
func (l *Local) List(ctx context.Context, path string) ([]FileInfo, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	var files []FileInfo

	err = filepath.WalkDir(fullPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p == fullPath {
			return nil
		}

		relPath, err := filepath.Rel(l.rootPath, p)
		if err != nil {
			return err
		}

		if skipEntry(d.Name()) || shouldExclude(relPath, l.exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		files = append(files, FileInfo{
			Path:         p,
			RelativePath: filepath.ToSlash(relPath),
			Size:         info.Size(),
			ModTime:      info.ModTime(),
			ContentType:  ContentType(d.Name()),
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})
	return files, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Write creates or overwrites a file. The file is removed again when the
// copy fails or comes up short.
func (l *Local) Write(ctx context.Context, path string, reader io.Reader, size int64) error {
	fullPath, err := l.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(file, reader)
	if err == nil && size >= 0 && written != size {
		err = fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	} else if err != nil {
		err = fmt.Errorf("failed to write file: %w", err)
	}

	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err != nil {
		os.Remove(fullPath)
		return err
	}
	return nil
}

// resolve maps a slash-separated relative path onto the root, rejecting
// paths that would escape it
func (l *Local) resolve(path string) (string, error) {
	fullPath := filepath.Join(l.rootPath, filepath.FromSlash(path))
	rel, err := filepath.Rel(l.rootPath, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return fullPath, nil
}

// Rel maps an absolute path under the root back to a slash-separated
// relative path
func (l *Local) Rel(absPath string) (string, error) {
	rel, err := filepath.Rel(l.rootPath, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, absPath)
	}
	return filepath.ToSlash(rel), nil
}
