// Package progress renders comparison progress on the terminal.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/panbanda/winnow/pkg/analyzer"
)

// Tracker wraps a progress bar for one labelled operation.
type Tracker struct {
	bar   *progressbar.ProgressBar
	label string
	w     io.Writer
}

// NewTracker creates a progress bar with the given label and total count.
func NewTracker(w io.Writer, label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label, w: w}
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	t.bar.Add(1)
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	t.bar.Finish()
	t.bar.Clear()
}

// FinishError clears the bar and prints an error message.
func (t *Tracker) FinishError(err error) {
	t.bar.Finish()
	t.bar.Clear()
	fmt.Fprintf(t.w, "  %s error: %v\n", t.label, err)
}

// Stages follows the stages of an analyzer.Tracker, drawing one bar per
// stage labelled "<pass>: <stage>".
type Stages struct {
	mu    sync.Mutex
	w     io.Writer
	pass  string
	stage string
	cur   *Tracker
}

// NewStages creates a stage renderer writing to w.
func NewStages(w io.Writer) *Stages {
	return &Stages{w: w}
}

// Track returns an analyzer.Tracker for pass whose progress is drawn by s.
func (s *Stages) Track(pass string) *analyzer.Tracker {
	s.mu.Lock()
	s.pass = pass
	s.stage = ""
	s.mu.Unlock()
	return analyzer.NewTracker(s.update)
}

func (s *Stages) update(stage string, current, total int, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil || stage != s.stage {
		if s.cur != nil {
			s.cur.FinishSuccess()
		}
		s.stage = stage
		s.cur = NewTracker(s.w, fmt.Sprintf("%s: %s", s.pass, stage), total)
	}
	s.cur.bar.ChangeMax(total)
	s.cur.bar.Set(current)
}

// Done clears the bar of the last stage.
func (s *Stages) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		s.cur.FinishSuccess()
		s.cur = nil
	}
}

// Fail clears the bar of the last stage and reports err.
func (s *Stages) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		s.cur.FinishError(err)
		s.cur = nil
		return
	}
	fmt.Fprintf(s.w, "  %s error: %v\n", s.pass, err)
}
