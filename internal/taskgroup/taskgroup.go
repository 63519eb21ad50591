// Package taskgroup runs a batch of independent work units with
// bounded concurrency and collects per-unit outcomes. One unit
// failing never aborts the others; the caller gets a summary to
// aggregate or report. Maintenance paths such as the session counter
// audit fan out over it.
package taskgroup

import (
	"context"
	"fmt"
	"sync"
)

// Task is one named unit of work.
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Result pairs a task name with its outcome.
type Result struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// Error renders the failure message for JSON responses.
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Summary aggregates the outcomes of one Run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Failures  []Result
}

// Run executes tasks with at most limit running concurrently. A
// limit below one runs everything sequentially. Context cancellation
// stops launching new tasks; tasks already running are left to
// observe ctx themselves. Run returns once every launched task has
// finished.
func Run(ctx context.Context, limit int, tasks []Task) Summary {
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	results := make([]error, len(tasks))
	var wg sync.WaitGroup

	for i, t := range tasks {
		select {
		case <-ctx.Done():
			results[i] = ctx.Err()
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, t Task) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if p := recover(); p != nil {
					results[i] = fmt.Errorf("task %s panicked: %v", t.Name, p)
				}
			}()
			results[i] = t.Fn(ctx)
		}(i, t)
	}
	wg.Wait()

	sum := Summary{Total: len(tasks)}
	for i, err := range results {
		if err != nil {
			sum.Failed++
			sum.Failures = append(sum.Failures, Result{Name: tasks[i].Name, Err: err})
		} else {
			sum.Succeeded++
		}
	}
	return sum
}
