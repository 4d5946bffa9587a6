// Package fileproc provides the executors the comparison engine schedules
// per-file work on.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// FileError represents an error that occurred while processing a file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects file errors that were skipped rather than
// aborting the run.
type ProcessingErrors struct {
	Errors []*FileError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, &FileError{Path: path, Err: err})
	e.mu.Unlock()
}

// Len returns the number of collected errors.
func (e *ProcessingErrors) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors)
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e *ProcessingErrors) Unwrap() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		errs[i] = fe
	}
	return errs
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
const DefaultWorkerMultiplier = 2

// Executor runs n independent jobs. Implementations stop starting jobs once
// ctx is done or a job has failed, wait for jobs already running, and
// return ctx.Err() or the error of the lowest failing job index.
type Executor interface {
	Run(ctx context.Context, n int, job func(i int) error) error
}

// Parallel returns an executor backed by a bounded goroutine pool.
// If workers is <= 0, defaults to 2x NumCPU.
func Parallel(workers int) Executor {
	if workers <= 0 {
		workers = runtime.NumCPU() * DefaultWorkerMultiplier
	}
	return &parallel{workers: workers}
}

type parallel struct {
	workers int
}

func (p *parallel) Run(ctx context.Context, n int, job func(i int) error) error {
	if n == 0 {
		return ctx.Err()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make([]error, n)
	wp := pool.New().WithMaxGoroutines(p.workers)
	for i := 0; i < n; i++ {
		// Go blocks while the pool is saturated, so this check runs
		// between job starts.
		if runCtx.Err() != nil {
			break
		}
		wp.Go(func() {
			if err := job(i); err != nil {
				errs[i] = err
				cancel()
			}
		})
	}
	wp.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Sequential returns an executor that runs jobs inline, in index order.
func Sequential() Executor {
	return sequential{}
}

type sequential struct{}

func (sequential) Run(ctx context.Context, n int, job func(i int) error) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := job(i); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Map applies fn to every item on exec and returns the results in input
// order. On error no partial results are returned.
func Map[T, R any](ctx context.Context, exec Executor, items []T, fn func(T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, ctx.Err()
	}
	results := make([]R, len(items))
	err := exec.Run(ctx, len(items), func(i int) error {
		r, err := fn(items[i])
		if err != nil {
			return err
		}
		results[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
