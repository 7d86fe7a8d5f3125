package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/recaplabs/recapd/internal/job"
	"golang.org/x/sync/semaphore"
)

// AcceleratorLease grants exclusive use of the shared inference accelerator.
// Capacity is one: no two transcription inferences ever run concurrently,
// while work that does not touch the accelerator proceeds freely.
type AcceleratorLease struct {
	sem     *semaphore.Weighted
	maxWait time.Duration
}

func NewAcceleratorLease(maxWait time.Duration) *AcceleratorLease {
	return &AcceleratorLease{
		sem:     semaphore.NewWeighted(1),
		maxWait: maxWait,
	}
}

// Acquire blocks until the accelerator is free, the bounded wait elapses, or
// the caller's context ends. The returned release func must be called on
// every exit path; it is safe to call exactly once.
func (l *AcceleratorLease) Acquire(ctx context.Context) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: gave up waiting for accelerator: %v", job.ErrTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("%w: accelerator not free within %s", job.ErrResourceBusy, l.maxWait)
	}
	return func() { l.sem.Release(1) }, nil
}

// TryAcquire reports accelerator availability without waiting.
func (l *AcceleratorLease) TryAcquire() (func(), bool) {
	if !l.sem.TryAcquire(1) {
		return nil, false
	}
	return func() { l.sem.Release(1) }, true
}
