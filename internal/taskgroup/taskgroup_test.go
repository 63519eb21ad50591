package taskgroup

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_BoundedConcurrency(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int64

	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = Task{
			Name: fmt.Sprintf("task-%d", i),
			Fn: func(ctx context.Context) error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			},
		}
	}

	sum := Run(context.Background(), limit, tasks)
	if sum.Total != 20 || sum.Succeeded != 20 || sum.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if p := peak.Load(); p > limit {
		t.Errorf("expected at most %d in flight, saw %d", limit, p)
	}
}

func TestRun_FailuresIsolated(t *testing.T) {
	errBroken := errors.New("broken")
	tasks := []Task{
		{Name: "ok-1", Fn: func(ctx context.Context) error { return nil }},
		{Name: "bad", Fn: func(ctx context.Context) error { return errBroken }},
		{Name: "ok-2", Fn: func(ctx context.Context) error { return nil }},
	}

	sum := Run(context.Background(), 2, tasks)
	if sum.Total != 3 || sum.Succeeded != 2 || sum.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if len(sum.Failures) != 1 || sum.Failures[0].Name != "bad" {
		t.Fatalf("unexpected failures: %+v", sum.Failures)
	}
	if !errors.Is(sum.Failures[0].Err, errBroken) {
		t.Errorf("expected wrapped sentinel, got %v", sum.Failures[0].Err)
	}
	if sum.Failures[0].Error() != "broken" {
		t.Errorf("unexpected rendered message %q", sum.Failures[0].Error())
	}
}

func TestRun_PanicRecovered(t *testing.T) {
	tasks := []Task{
		{Name: "boom", Fn: func(ctx context.Context) error { panic("kaput") }},
		{Name: "ok", Fn: func(ctx context.Context) error { return nil }},
	}
	sum := Run(context.Background(), 1, tasks)
	if sum.Failed != 1 || sum.Succeeded != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.Failures[0].Name != "boom" {
		t.Errorf("expected the panicking task to fail, got %+v", sum.Failures)
	}
}

func TestRun_CancelledContextStopsLaunching(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int64
	tasks := make([]Task, 5)
	for i := range tasks {
		tasks[i] = Task{
			Name: fmt.Sprintf("task-%d", i),
			Fn: func(ctx context.Context) error {
				ran.Add(1)
				return nil
			},
		}
	}
	sum := Run(ctx, 2, tasks)
	if sum.Total != 5 || sum.Succeeded+sum.Failed != 5 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	// Skipped tasks report the cancellation; any that raced in and
	// ran still count in the summary.
	if int(ran.Load()) != sum.Succeeded {
		t.Errorf("expected %d launched tasks to succeed, summary says %d", ran.Load(), sum.Succeeded)
	}
	for _, f := range sum.Failures {
		if !errors.Is(f.Err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", f.Err)
		}
	}
}

func TestRun_NoTasks(t *testing.T) {
	sum := Run(context.Background(), 4, nil)
	if sum.Total != 0 || sum.Failed != 0 || sum.Succeeded != 0 {
		t.Fatalf("unexpected summary for empty batch: %+v", sum)
	}
}
