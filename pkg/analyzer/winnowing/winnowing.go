// Package winnowing implements the fingerprint comparator: robust
// winnowing over preprocessed token streams scores every submission pair,
// and a per-token k-gram index maps the matching regions of the best pairs.
package winnowing

import (
	"context"
	"maps"
	"math"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/panbanda/winnow/internal/fileproc"
	"github.com/panbanda/winnow/pkg/analyzer"
	"github.com/panbanda/winnow/pkg/config"
	"github.com/panbanda/winnow/pkg/models"
)

// Analyzer compares submissions by winnowed k-gram fingerprints.
type Analyzer struct {
	k, t int
}

var _ analyzer.Comparator = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithK sets the k-gram size in tokens.
func WithK(k int) Option {
	return func(a *Analyzer) {
		a.k = k
	}
}

// WithT sets the guarantee threshold in tokens.
func WithT(t int) Option {
	return func(a *Analyzer) {
		a.t = t
	}
}

// WithConfig sets both fingerprint parameters from a config struct.
func WithConfig(cfg config.WinnowingConfig) Option {
	return func(a *Analyzer) {
		a.k = cfg.K
		a.t = cfg.T
	}
}

// New creates a new winnowing analyzer with the default parameters.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		k: config.DefaultWinnowing.K,
		t: config.DefaultWinnowing.T,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type role int

const (
	roleSubmission role = iota
	roleArchive
	roleIgnored
)

// fileFingerprints is the per-file partial result of the scoring phase.
type fileFingerprints struct {
	family string
	hashes []uint64
}

// Score fingerprints every file and scores each pair of submissions by the
// fingerprints they share, each weighted by its inverse document
// frequency. Fingerprints of ignored files never count, and files of
// different lexer families never match.
func (a *Analyzer) Score(ctx context.Context, in *analyzer.Input) ([]models.Score, error) {
	analyzer.BeginStage(ctx, "fingerprinting")

	var files []*models.File
	var owners []*models.Submission
	var roles []role
	add := func(subs []*models.Submission, r role) {
		for _, s := range subs {
			for _, f := range s.Files {
				files = append(files, f)
				owners = append(owners, s)
				roles = append(roles, r)
			}
		}
	}
	add(in.Submissions, roleSubmission)
	add(in.Archive, roleArchive)
	for _, f := range in.Ignored {
		files = append(files, f)
		owners = append(owners, nil)
		roles = append(roles, roleIgnored)
	}

	partials, err := analyzer.MapFiles(ctx, in, files, func(tf *analyzer.TokenizedFile) (fileFingerprints, error) {
		return fileFingerprints{family: tf.Family, hashes: Fingerprints(tf.Tokens, a.k, a.t)}, nil
	})
	if err != nil {
		return nil, err
	}

	byFamily := make(map[string][]int)
	for i, p := range partials {
		if p.family != "" {
			byFamily[p.family] = append(byFamily[p.family], i)
		}
	}

	subsByID := make(map[uint32]*models.Submission)
	for _, s := range owners {
		if s != nil {
			subsByID[uint32(s.ID)] = s
		}
	}

	n := float64(in.NumSubmissions())
	totals := make(map[[2]uint32]float64)
	for _, family := range slices.Sorted(maps.Keys(byFamily)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		subs := NewScoreIndex(a.k, a.t)
		archive := NewScoreIndex(a.k, a.t)
		ignored := NewScoreIndex(a.k, a.t)
		for _, i := range byFamily[family] {
			var idx *ScoreIndex
			var id uint32
			switch roles[i] {
			case roleSubmission:
				idx, id = subs, uint32(owners[i].ID)
			case roleArchive:
				idx, id = archive, uint32(owners[i].ID)
			default:
				idx = ignored
			}
			for _, h := range partials[i].hashes {
				idx.Add(h, id)
			}
		}

		subs.IgnoreAll(ignored)
		archive.IgnoreAll(ignored)
		archive.IncludeAll(subs)

		// archive now holds every carrier of each remaining fingerprint.
		weight := func(h uint64) float64 {
			df := float64(archive.Carriers(h).GetCardinality())
			return 1 + math.Log(n/(1+df))
		}
		pairs := subs.Compare(archive, weight)
		for _, p := range pairs {
			totals[[2]uint32{p.A, p.B}] += p.Score
		}

		log.Debug().
			Str("family", family).
			Int("files", len(byFamily[family])).
			Int("fingerprints", archive.Len()).
			Int("pairs", len(pairs)).
			Msg("scored family")
	}

	scores := make([]models.Score, 0, len(totals))
	for key, score := range totals {
		scores = append(scores, models.NewScore(subsByID[key[0]], subsByID[key[1]], score))
	}
	return analyzer.TopScores(scores, in.Top), nil
}

// preparedFile is a file of a compared submission, split into the token
// runs that survive distro removal.
type preparedFile struct {
	*analyzer.TokenizedFile
	runs    []*CompareIndex
	ignored []models.Span
}

// Compare maps the matching regions of every scored pair. Matches are
// taken from every k-gram outside distro code and grown over identical
// neighbouring tokens; regions dropped by preprocessing or matching distro
// code are reported as ignored.
func (a *Analyzer) Compare(ctx context.Context, in *analyzer.Input, scores []models.Score) ([]models.Comparison, error) {
	if len(scores) == 0 {
		return nil, ctx.Err()
	}

	analyzer.BeginStage(ctx, "indexing distro")
	distro, err := a.distroIndexes(ctx, in)
	if err != nil {
		return nil, err
	}

	analyzer.BeginStage(ctx, "comparing")
	var subs []*models.Submission
	for _, s := range scores {
		subs = append(subs, s.SubA, s.SubB)
	}
	prepared, err := analyzer.MapFiles(ctx, in, analyzer.SubmissionFiles(subs), func(tf *analyzer.TokenizedFile) (*preparedFile, error) {
		return a.prepare(tf, distro[tf.Family]), nil
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

func (a *Analyzer) distroIndexes(ctx context.Context, in *analyzer.Input) (map[string]*CompareIndex, error) {
	tokenized, err := analyzer.MapFiles(ctx, in, in.Ignored, func(tf *analyzer.TokenizedFile) (*analyzer.TokenizedFile, error) {
		return tf, nil
	})
	if err != nil {
		return nil, err
	}

	indexes := make(map[string]*CompareIndex)
	for _, tf := range tokenized {
		if tf == nil || tf.Family == "" {
			continue
		}
		idx, ok := indexes[tf.Family]
		if !ok {
			idx = NewCompareIndex(a.k)
			indexes[tf.Family] = idx
		}
		idx.Include(tf.File.ID, tf.Tokens)
	}
	log.Debug().
		Strs("families", analyzer.Families(tokenized)).
		Int("files", len(in.Ignored)).
		Msg("built distro indexes")
	return indexes, nil
}

func (a *Analyzer) prepare(tf *analyzer.TokenizedFile, distro *CompareIndex) *preparedFile {
	p := &preparedFile{TokenizedFile: tf}
	kept, ignored := splitRuns(tf.Tokens, a.k, distro)
	for _, run := range kept {
		idx := NewCompareIndex(a.k)
		idx.Include(tf.File.ID, run)
		p.runs = append(p.runs, idx)
	}
	p.ignored = append(runSpans(tf.File.ID, ignored), tf.Missing()...)
	return p
}

func compareFiles(s models.Score, files map[int]*preparedFile) models.Comparison {
	var matches []models.SpanPair
	var ignored []models.Span

	for _, fa := range s.SubA.Files {
		pa := files[fa.ID]
		if pa == nil {
			continue
		}
		ignored = append(ignored, pa.ignored...)
		for _, fb := range s.SubB.Files {
			pb := files[fb.ID]
			if pb == nil || pa.Family == "" || pa.Family != pb.Family || fa.ID == fb.ID {
				continue
			}
			var raw []models.SpanPair
			for _, ra := range pa.runs {
				for _, rb := range pb.runs {
					raw = append(raw, ra.Compare(rb)...)
				}
			}
			matches = append(matches, expand(raw, pa.Tokens, pb.Tokens)...)
		}
	}
	for _, fb := range s.SubB.Files {
		if pb := files[fb.ID]; pb != nil {
			ignored = append(ignored, pb.ignored...)
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
