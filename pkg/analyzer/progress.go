package analyzer

import (
	"context"
	"sync"
)

// ProgressFunc receives progress updates. stage names the running phase,
// current and total count the files of that phase and path is the file
// just finished.
type ProgressFunc func(stage string, current, total int, path string)

// Tracker counts finished files per phase of a comparison run. It is safe
// for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	stage    string
	current  int
	total    int
	callback ProgressFunc
}

// NewTracker creates a tracker reporting to callback, which may be nil.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Begin starts a phase with both counters at zero.
func (t *Tracker) Begin(stage string) {
	t.mu.Lock()
	t.stage, t.current, t.total = stage, 0, 0
	t.mu.Unlock()
}

// Stage returns the running phase.
func (t *Tracker) Stage() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

// Add grows the phase total by n.
func (t *Tracker) Add(n int) {
	t.mu.Lock()
	t.total += n
	t.mu.Unlock()
}

// Tick records one finished file. The callback sees a consistent
// stage/current/total triple but runs outside the lock.
func (t *Tracker) Tick(path string) {
	t.mu.Lock()
	t.current++
	stage, current, total := t.stage, t.current, t.total
	t.mu.Unlock()
	if t.callback != nil {
		t.callback(stage, current, total, path)
	}
}

// Current returns the number of files finished in the running phase.
func (t *Tracker) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Total returns the file count of the running phase.
func (t *Tracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

type trackerKey struct{}

// WithTracker attaches t to ctx.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker attached to ctx, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}

// BeginStage starts stage on the context's tracker, if any.
func BeginStage(ctx context.Context, stage string) {
	if t := TrackerFromContext(ctx); t != nil {
		t.Begin(stage)
	}
}
