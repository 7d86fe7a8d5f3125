package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/recaplabs/recapd/internal/job"
)

func TestLeaseAcquireRelease(t *testing.T) {
	l := NewAcceleratorLease(time.Second)
	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()

	release, err = l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	release()
}

func TestLeaseBusyAfterWait(t *testing.T) {
	l := NewAcceleratorLease(20 * time.Millisecond)
	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	start := time.Now()
	if _, err := l.Acquire(context.Background()); !errors.Is(err, job.ErrResourceBusy) {
		t.Fatalf("error = %v, want ErrResourceBusy", err)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("gave up after %v, before the wait window expired", elapsed)
	}
}

func TestLeaseParentCancellation(t *testing.T) {
	l := NewAcceleratorLease(5 * time.Second)
	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx); !errors.Is(err, job.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout when the caller's context dies", err)
	}
}

func TestLeaseTryAcquire(t *testing.T) {
	l := NewAcceleratorLease(time.Second)
	release, ok := l.TryAcquire()
	if !ok {
		t.Fatal("try on idle lease failed")
	}
	if _, ok := l.TryAcquire(); ok {
		t.Fatal("second try succeeded while lease held")
	}
	release()
	if release, ok = l.TryAcquire(); !ok {
		t.Fatal("try after release failed")
	}
	release()
}
