package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiterAcquireRelease(t *testing.T) {
	l := NewImportLimiter(2, time.Second)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}

	if l.ActiveCount() != 2 {
		t.Errorf("ActiveCount = %d, want 2", l.ActiveCount())
	}
	if l.Available() != 0 {
		t.Errorf("Available = %d, want 0", l.Available())
	}

	l.Release()
	if l.ActiveCount() != 1 {
		t.Errorf("ActiveCount after release = %d, want 1", l.ActiveCount())
	}
}

func TestLimiterRejectsWhenFull(t *testing.T) {
	l := NewImportLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	err := l.Acquire(ctx)
	if !errors.Is(err, ErrTooManyImports) {
		t.Errorf("Acquire on full limiter = %v, want ErrTooManyImports", err)
	}
}

func TestLimiterContextCancellation(t *testing.T) {
	l := NewImportLimiter(1, time.Minute)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire with cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestLimiterDefaults(t *testing.T) {
	l := NewImportLimiter(0, 0)
	if cap(l.semaphore) != DefaultMaxConcurrentImports {
		t.Errorf("default capacity = %d, want %d", cap(l.semaphore), DefaultMaxConcurrentImports)
	}
	if l.maxWait != DefaultMaxWaitTime {
		t.Errorf("default maxWait = %v, want %v", l.maxWait, DefaultMaxWaitTime)
	}
}

func TestLimiterWaitForDrain(t *testing.T) {
	l := NewImportLimiter(1, time.Second)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	go func() {
		time.Sleep(150 * time.Millisecond)
		l.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain: %v", err)
	}
}

func TestLimiterWaitForDrainTimeout(t *testing.T) {
	l := NewImportLimiter(1, time.Second)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if err := l.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForDrain = %v, want deadline exceeded", err)
	}
}
