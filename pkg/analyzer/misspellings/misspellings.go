// Package misspellings implements a comparator that pairs submissions by
// the misspelled words their comments share.
package misspellings

import (
	"context"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/rs/zerolog/log"

	"github.com/panbanda/winnow/internal/fileproc"
	"github.com/panbanda/winnow/pkg/analyzer"
	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/token"
)

// Analyzer scores a pair of submissions by the number of distinct
// misspelled words both use and distro code does not.
type Analyzer struct {
	dict *Dictionary
}

var _ analyzer.Comparator = (*Analyzer)(nil)

// New creates a misspellings analyzer checking words against dict.
func New(dict *Dictionary) *Analyzer {
	return &Analyzer{dict: dict}
}

// vocabulary interns words to dense IDs so word sets can be bitmaps.
type vocabulary struct {
	mu  sync.Mutex
	ids map[string]uint32
}

func newVocabulary() *vocabulary {
	return &vocabulary{ids: make(map[string]uint32)}
}

// id interns word as spelled in files of family. The same word in two
// families gets two IDs, so only same-family files share misspellings.
func (v *vocabulary) id(family, word string) uint32 {
	word = family + "\x00" + word
	v.mu.Lock()
	defer v.mu.Unlock()
	id, ok := v.ids[word]
	if !ok {
		id = uint32(len(v.ids))
		v.ids[word] = id
	}
	return id
}

// misspelled returns the tokens of tf whose value is not in the dictionary.
func (a *Analyzer) misspelled(tf *analyzer.TokenizedFile) []token.Token {
	var out []token.Token
	for _, t := range tf.Tokens {
		if !a.dict.Contains(t.Val) {
			out = append(out, t)
		}
	}
	return out
}

// wordSets computes the set of misspelled words of every file.
func (a *Analyzer) wordSets(ctx context.Context, in *analyzer.Input, files []*models.File, vocab *vocabulary) ([]*roaring.Bitmap, error) {
	return analyzer.MapFiles(ctx, in, files, func(tf *analyzer.TokenizedFile) (*roaring.Bitmap, error) {
		bm := roaring.New()
		for _, t := range a.misspelled(tf) {
			bm.Add(vocab.id(tf.Family, t.Val))
		}
		return bm, nil
	})
}

// Score counts, for every pair of submissions, the misspelled words they
// have in common within one lexer family. Words misspelled in distro code
// of the same family do not count.
func (a *Analyzer) Score(ctx context.Context, in *analyzer.Input) ([]models.Score, error) {
	analyzer.BeginStage(ctx, "spellchecking")
	vocab := newVocabulary()

	distro := roaring.New()
	sets, err := a.wordSets(ctx, in, in.Ignored, vocab)
	if err != nil {
		return nil, err
	}
	for _, bm := range sets {
		if bm != nil {
			distro.Or(bm)
		}
	}

	files := analyzer.SubmissionFiles(in.Submissions, in.Archive)
	sets, err = a.wordSets(ctx, in, files, vocab)
	if err != nil {
		return nil, err
	}
	byFile := make(map[int]*roaring.Bitmap, len(files))
	for i, f := range files {
		byFile[f.ID] = sets[i]
	}
	words := func(subs []*models.Submission) []*roaring.Bitmap {
		out := make([]*roaring.Bitmap, len(subs))
		for i, s := range subs {
			bm := roaring.New()
			for _, f := range s.Files {
				if set := byFile[f.ID]; set != nil {
					bm.Or(set)
				}
			}
			bm.AndNot(distro)
			out[i] = bm
		}
		return out
	}
	current, archive := words(in.Submissions), words(in.Archive)

	var scores []models.Score
	add := func(x, y *models.Submission, bx, by *roaring.Bitmap) {
		if n := bx.AndCardinality(by); n > 0 {
			scores = append(scores, models.NewScore(x, y, float64(n)))
		}
	}
	for i, x := range in.Submissions {
		for j := i + 1; j < len(in.Submissions); j++ {
			add(x, in.Submissions[j], current[i], current[j])
		}
		for j, y := range in.Archive {
			add(x, y, current[i], archive[j])
		}
	}

	log.Debug().Int("distro_words", int(distro.GetCardinality())).Int("pairs", len(scores)).Msg("scored misspellings")
	return analyzer.TopScores(scores, in.Top), nil
}

type preparedFile struct {
	*analyzer.TokenizedFile
	occurrences map[string][]models.Span
}

// Compare pairs every occurrence of every misspelled word two files of the
// same family share. Regions outside the spellchecked words are ignored.
func (a *Analyzer) Compare(ctx context.Context, in *analyzer.Input, scores []models.Score) ([]models.Comparison, error) {
	if len(scores) == 0 {
		return nil, ctx.Err()
	}

	analyzer.BeginStage(ctx, "comparing")
	vocab := newVocabulary()
	distroSets, err := a.wordSets(ctx, in, in.Ignored, vocab)
	if err != nil {
		return nil, err
	}
	distro := roaring.New()
	for _, bm := range distroSets {
		if bm != nil {
			distro.Or(bm)
		}
	}

	var subs []*models.Submission
	for _, s := range scores {
		subs = append(subs, s.SubA, s.SubB)
	}
	prepared, err := analyzer.MapFiles(ctx, in, analyzer.SubmissionFiles(subs), func(tf *analyzer.TokenizedFile) (*preparedFile, error) {
		p := &preparedFile{TokenizedFile: tf, occurrences: make(map[string][]models.Span)}
		for _, t := range a.misspelled(tf) {
			if distro.Contains(vocab.id(tf.Family, t.Val)) {
				continue
			}
			p.occurrences[t.Val] = append(p.occurrences[t.Val], models.Span{File: tf.File.ID, Start: t.Start, End: t.End})
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	files := make(map[int]*preparedFile, len(prepared))
	for _, p := range prepared {
		if p != nil {
			files[p.File.ID] = p
		}
	}

	return fileproc.Map(ctx, in.Exec(), scores, func(s models.Score) (models.Comparison, error) {
		return compareFiles(s, files), nil
	})
}

func compareFiles(s models.Score, files map[int]*preparedFile) models.Comparison {
	var matches []models.SpanPair
	var ignored []models.Span

	for _, fa := range s.SubA.Files {
		pa := files[fa.ID]
		if pa == nil {
			continue
		}
		ignored = append(ignored, pa.Missing()...)
		for _, fb := range s.SubB.Files {
			pb := files[fb.ID]
			if pb == nil || pa.Family == "" || pa.Family != pb.Family {
				continue
			}
			for word, spansA := range pa.occurrences {
				for _, a := range spansA {
					for _, b := range pb.occurrences[word] {
						matches = append(matches, models.SpanPair{A: a, B: b})
					}
				}
			}
		}
	}
	for _, fb := range s.SubB.Files {
		if pb := files[fb.ID]; pb != nil {
			ignored = append(ignored, pb.Missing()...)
		}
	}

	matches = models.SortPairs(matches)
	return models.Comparison{
		SubA:    s.SubA,
		SubB:    s.SubB,
		Score:   s.Score,
		Matches: matches,
		Ignored: models.SortSpans(ignored),
		Groups:  analyzer.Group(matches),
	}
}
