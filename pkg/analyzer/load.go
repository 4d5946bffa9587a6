package analyzer

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/panbanda/winnow/internal/fileproc"
	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/preprocess"
	"github.com/panbanda/winnow/pkg/token"
)

// TokenizedFile is a file read, lexed and preprocessed for one pass.
type TokenizedFile struct {
	File   *models.File
	Family string        // lexer name; plain text files share the fallback family
	Raw    []token.Token // lexer output
	Tokens []token.Token // after the pass pipeline
}

// Missing returns the regions of the file the pass pipeline dropped.
func (f *TokenizedFile) Missing() []models.Span {
	return preprocess.MissingSpans(f.File.ID, f.Raw, f.Tokens)
}

// MapFiles tokenizes every file on the input's executor and hands it to fn
// on the same worker. Results are returned in file order. Files that cannot
// be read fail the run unless Input.SkipUnreadable is set, in which case
// fn is not called and the file's result is the zero value.
func MapFiles[R any](ctx context.Context, in *Input, files []*models.File, fn func(*TokenizedFile) (R, error)) ([]R, error) {
	tracker := TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(files))
	}

	skipped := &fileproc.ProcessingErrors{}
	results, err := fileproc.Map(ctx, in.Exec(), files, func(f *models.File) (R, error) {
		var zero R
		if tracker != nil {
			defer tracker.Tick(f.Path)
		}

		tf, err := Tokenize(f, in)
		if err != nil {
			if !in.SkipUnreadable {
				return zero, &fileproc.FileError{Path: f.Path, Err: err}
			}
			skipped.Add(f.Path, err)
			log.Warn().Err(err).Str("path", f.Path).Msg("skipping unreadable file")
			return zero, nil
		}
		return fn(tf)
	})
	if err != nil {
		return nil, err
	}
	if n := skipped.Len(); n > 0 {
		log.Debug().Int("skipped", n).Msg("files skipped")
	}
	return results, nil
}

// Tokenize reads, lexes and preprocesses a single file.
func Tokenize(f *models.File, in *Input) (*TokenizedFile, error) {
	lexer, err := f.Lexer(in.Source)
	if err != nil {
		return nil, err
	}
	tf := &TokenizedFile{File: f, Family: lexer.Name()}
	if lexer == nil {
		return tf, nil
	}
	_, raw, err := f.Tokens(in.Source)
	if err != nil {
		return nil, err
	}
	tf.Raw = raw
	tf.Tokens = in.Preprocess.Apply(raw)
	return tf, nil
}

// Families returns the distinct non-empty families of files, sorted.
func Families(files []*TokenizedFile) []string {
	var families []string
	for _, f := range files {
		if f != nil && f.Family != "" {
			families = append(families, f.Family)
		}
	}
	slices.Sort(families)
	return slices.Compact(families)
}

// SubmissionFiles returns the distinct files of subs in first-seen order.
func SubmissionFiles(subs ...[]*models.Submission) []*models.File {
	seen := make(map[int]bool)
	var files []*models.File
	for _, list := range subs {
		for _, s := range list {
			for _, f := range s.Files {
				if !seen[f.ID] {
					seen[f.ID] = true
					files = append(files, f)
				}
			}
		}
	}
	return files
}
