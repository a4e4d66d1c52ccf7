package compare

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"
)

// Hasher short-circuits the pixel differ for byte-identical screenshot pairs
type Hasher struct {
	buffers sync.Pool
}

// NewHasher creates a hasher reading files in chunks of bufferSize bytes
// (at least 4 KiB)
func NewHasher(bufferSize int) *Hasher {
	size := max(bufferSize, 4096)
	h := &Hasher{}
	h.buffers.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return h
}

// Identical reports whether baseline and current hold the same bytes.
// Files of different sizes are never read.
func (h *Hasher) Identical(ctx context.Context, baseline, current string) (bool, error) {
	sizes := [2]int64{}
	for i, p := range [2]string{baseline, current} {
		info, err := os.Stat(p)
		if err != nil {
			return false, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		sizes[i] = info.Size()
	}
	if sizes[0] != sizes[1] {
		return false, nil
	}

	want, err := h.digest(ctx, baseline)
	if err != nil {
		return false, err
	}
	got, err := h.digest(ctx, current)
	if err != nil {
		return false, err
	}
	return want == got, nil
}

func (h *Hasher) digest(ctx context.Context, path string) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte

	f, err := os.Open(path)
	if err != nil {
		return sum, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	bufPtr := h.buffers.Get().(*[]byte)
	defer h.buffers.Put(bufPtr)

	hash := sha256.New()
	if _, err := io.CopyBuffer(hash, ctxReader{ctx: ctx, r: f}, *bufPtr); err != nil {
		return sum, fmt.Errorf("failed to read %s: %w", path, err)
	}
	copy(sum[:], hash.Sum(nil))
	return sum, nil
}

// ctxReader stops a copy between chunks once ctx is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
