package ingest

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/logger"
)

type countingRunner struct {
	runs  atomic.Int32
	block chan struct{}
}

func (r *countingRunner) Name() string { return "counting" }

func (r *countingRunner) Run(ctx context.Context) (*Result, error) {
	r.runs.Add(1)
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &Result{}, nil
}

func TestSchedulerRunsJob(t *testing.T) {
	r := &countingRunner{}
	s, err := NewScheduler(r, "@every 1s", logger.Nop())
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	if next := s.Next(); !next.IsZero() {
		t.Fatalf("Next before Start = %v", next)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Second) }()

	deadline := time.Now().Add(5 * time.Second)
	for r.runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("job never ran")
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestSchedulerStopCancelsRun(t *testing.T) {
	r := &countingRunner{block: make(chan struct{})}
	s, err := NewScheduler(r, "@every 1s", logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	s.Start(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for r.runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("job never ran")
		}
		time.Sleep(20 * time.Millisecond)
	}

	// The blocked run returns once its context is cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if n := r.runs.Load(); n > 2 {
		t.Fatalf("overlapping runs were not skipped: %d", n)
	}
}

func TestSchedulerInvalidSpec(t *testing.T) {
	_, err := NewScheduler(&countingRunner{}, "not a schedule", logger.Nop())
	if !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
}
