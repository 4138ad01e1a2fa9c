package media

import (
	"context"
	"io"
	"runtime"
)

// Limiter caps how many uploads are decoded at once.
//
// A decoded avatar can take up to maxSourcePixels*4 bytes of memory, so a
// burst of uploads must queue instead of all decoding in parallel. The slots
// are a buffered channel: a send takes a slot, a receive gives it back.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter returns a Limiter with n slots. n <= 0 means one slot per CPU.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Limiter{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release gives back a slot taken by Acquire.
func (l *Limiter) Release() {
	<-l.slots
}

// InUse reports how many slots are taken.
func (l *Limiter) InUse() int {
	return len(l.slots)
}

// Normalize is the package-level Normalize run inside a slot.
func (l *Limiter) Normalize(ctx context.Context, r io.Reader, maxBytes int64) (*Avatar, error) {
	if err := l.Acquire(ctx); err != nil {
		return nil, err
	}
	defer l.Release()
	return Normalize(r, maxBytes)
}
