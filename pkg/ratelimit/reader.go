// Package ratelimit throttles transfer streams with a shared token bucket.
package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

// minBucket keeps small limits from degenerating into tiny reads
const minBucket = 64 * 1024

// Limiter is a token bucket shared by every stream of a transfer batch
type Limiter struct {
	bytesPerSecond int64
	bucketSize     int64

	mu         sync.Mutex
	tokens     int64
	lastUpdate time.Time
}

// NewLimiter creates a limiter for the given rate. A non-positive rate
// disables limiting and returns nil.
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	bucketSize := bytesPerSecond
	if bucketSize < minBucket {
		bucketSize = minBucket
	}

	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		bucketSize:     bucketSize,
		tokens:         bucketSize,
		lastUpdate:     time.Now(),
	}
}

// Rate returns the configured bytes per second
func (l *Limiter) Rate() int64 {
	if l == nil {
		return 0
	}
	return l.bytesPerSecond
}

// wait blocks until n tokens are available or ctx is done, then takes them
func (l *Limiter) wait(ctx context.Context, n int64) error {
	for {
		l.mu.Lock()
		l.refill(time.Now())
		if l.tokens >= n {
			l.tokens -= n
			l.mu.Unlock()
			return nil
		}
		deficit := n - l.tokens
		l.mu.Unlock()

		delay := time.Duration(float64(deficit) / float64(l.bytesPerSecond) * float64(time.Second))
		if delay < time.Millisecond {
			delay = time.Millisecond
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refund returns tokens that were reserved but not consumed by a short read
func (l *Limiter) refund(n int64) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens += n
	if l.tokens > l.bucketSize {
		l.tokens = l.bucketSize
	}
}

// refill adds tokens for the time elapsed since the last update (lock held)
func (l *Limiter) refill(now time.Time) {
	elapsed := now.Sub(l.lastUpdate)
	add := int64(elapsed.Seconds() * float64(l.bytesPerSecond))
	if add <= 0 {
		return
	}
	l.tokens += add
	if l.tokens > l.bucketSize {
		l.tokens = l.bucketSize
	}
	l.lastUpdate = now
}

// Reader throttles reads from an underlying reader
type Reader struct {
	ctx     context.Context
	reader  io.Reader
	limiter *Limiter
}

// NewReader wraps reader with the limiter. A nil limiter returns reader unchanged.
func NewReader(ctx context.Context, reader io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return reader
	}
	return &Reader{ctx: ctx, reader: reader, limiter: limiter}
}

// Read reserves tokens for the chunk, reads, and refunds what went unused
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return r.reader.Read(p)
	}

	chunk := int64(len(p))
	if chunk > r.limiter.bucketSize {
		chunk = r.limiter.bucketSize
	}

	if err := r.limiter.wait(r.ctx, chunk); err != nil {
		return 0, err
	}

	n, err := r.reader.Read(p[:chunk])
	r.limiter.refund(chunk - int64(n))
	return n, err
}

// ReadCloser throttles an io.ReadCloser
type ReadCloser struct {
	Reader
	closer io.Closer
}

// NewReadCloser wraps rc with the limiter. A nil limiter returns rc unchanged.
func NewReadCloser(ctx context.Context, rc io.ReadCloser, limiter *Limiter) io.ReadCloser {
	if limiter == nil {
		return rc
	}
	return &ReadCloser{
		Reader: Reader{ctx: ctx, reader: rc, limiter: limiter},
		closer: rc,
	}
}

// Close closes the underlying reader
func (rc *ReadCloser) Close() error {
	return rc.closer.Close()
}
