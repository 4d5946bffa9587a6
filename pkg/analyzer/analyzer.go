// Package analyzer defines the comparator contract shared by every pass and
// the plumbing comparators are built from: per-file token loading on an
// executor, ranking and transitive grouping of matched spans.
package analyzer

import (
	"context"

	"github.com/panbanda/winnow/internal/fileproc"
	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/preprocess"
	"github.com/panbanda/winnow/pkg/source"
)

// Comparator is the interface every pass implements. Score ranks all
// submission pairs; Compare maps the matching regions of the given pairs.
type Comparator interface {
	// Score returns the Input.Top highest scoring pairs, or all of them
	// when Top <= 0. Archive submissions are never paired with each other.
	Score(ctx context.Context, in *Input) ([]models.Score, error)

	// Compare produces one Comparison per score, in the same order.
	Compare(ctx context.Context, in *Input, scores []models.Score) ([]models.Comparison, error)
}

// Input is everything a comparator needs for one run.
type Input struct {
	Submissions []*models.Submission
	Archive     []*models.Submission
	Ignored     []*models.File // distro files

	Source     source.ContentSource
	Preprocess preprocess.Pipeline
	Executor   fileproc.Executor

	Top int

	// SkipUnreadable logs and skips files that cannot be read or lexed
	// instead of failing the run.
	SkipUnreadable bool
}

// NumSubmissions returns the number of current and archive submissions.
func (in *Input) NumSubmissions() int {
	return len(in.Submissions) + len(in.Archive)
}

// Exec returns the configured executor, a default parallel one if unset.
func (in *Input) Exec() fileproc.Executor {
	if in.Executor == nil {
		return fileproc.Parallel(0)
	}
	return in.Executor
}
