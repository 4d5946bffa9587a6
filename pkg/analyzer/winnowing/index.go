package winnowing

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/token"
)

// ScoreIndex maps winnowed fingerprints to the submissions carrying them.
type ScoreIndex struct {
	k, t   int
	hashes map[uint64]*roaring.Bitmap
}

// NewScoreIndex creates an empty score index. It panics unless 1 <= k <= t.
func NewScoreIndex(k, t int) *ScoreIndex {
	if k < 1 || t < k {
		panic(fmt.Sprintf("winnowing: invalid parameters k=%d t=%d", k, t))
	}
	return &ScoreIndex{k: k, t: t, hashes: make(map[uint64]*roaring.Bitmap)}
}

// Include fingerprints tokens and records sub as carrying every fingerprint.
func (x *ScoreIndex) Include(sub uint32, tokens []token.Token) {
	for _, h := range Fingerprints(tokens, x.k, x.t) {
		x.Add(h, sub)
	}
}

// Add records sub as carrying h.
func (x *ScoreIndex) Add(h uint64, sub uint32) {
	bm, ok := x.hashes[h]
	if !ok {
		bm = roaring.New()
		x.hashes[h] = bm
	}
	bm.Add(sub)
}

// Len returns the number of distinct fingerprints.
func (x *ScoreIndex) Len() int {
	return len(x.hashes)
}

// Hashes returns every fingerprint in ascending order.
func (x *ScoreIndex) Hashes() []uint64 {
	return slices.Sorted(maps.Keys(x.hashes))
}

// Carriers returns the submissions carrying h, or nil. The bitmap must not
// be modified.
func (x *ScoreIndex) Carriers(h uint64) *roaring.Bitmap {
	return x.hashes[h]
}

func (x *ScoreIndex) mustMatch(other *ScoreIndex) {
	if x.k != other.k || x.t != other.t {
		panic(fmt.Sprintf("winnowing: incompatible indexes (k=%d t=%d) and (k=%d t=%d)", x.k, x.t, other.k, other.t))
	}
}

// IncludeAll merges every fingerprint of other into x.
func (x *ScoreIndex) IncludeAll(other *ScoreIndex) {
	x.mustMatch(other)
	for h, bm := range other.hashes {
		if own, ok := x.hashes[h]; ok {
			own.Or(bm)
		} else {
			x.hashes[h] = bm.Clone()
		}
	}
}

// IgnoreAll removes every fingerprint present in other, whatever its
// carriers.
func (x *ScoreIndex) IgnoreAll(other *ScoreIndex) {
	x.mustMatch(other)
	for h := range other.hashes {
		delete(x.hashes, h)
	}
}

// PairScore is the accumulated score of an unordered submission pair, A < B.
type PairScore struct {
	A, B  uint32
	Score float64
}

// Compare scores every unordered pair {a, b}, a != b, where a carries a
// fingerprint in x and b carries the same fingerprint in other. Each pair
// gains weight(h) once per shared fingerprint h; a nil weight counts 1.
// Results are sorted by (A, B) and only contain positive scores.
func (x *ScoreIndex) Compare(other *ScoreIndex, weight func(h uint64) float64) []PairScore {
	x.mustMatch(other)
	if weight == nil {
		weight = func(uint64) float64 { return 1 }
	}

	cells := make(map[[2]uint32]float64)
	// Sorted so that floating point sums do not depend on map order.
	for _, h := range x.Hashes() {
		theirs, ok := other.hashes[h]
		if !ok {
			continue
		}
		ours := x.hashes[h]
		w := weight(h)

		it := ours.Iterator()
		for it.HasNext() {
			a := it.Next()
			jt := theirs.Iterator()
			for jt.HasNext() {
				b := jt.Next()
				if a == b {
					continue
				}
				// {a, b} is also reached as (b, a) when both sides carry both.
				if b < a && ours.Contains(b) && theirs.Contains(a) {
					continue
				}
				cells[[2]uint32{min(a, b), max(a, b)}] += w
			}
		}
	}

	scores := make([]PairScore, 0, len(cells))
	for key, score := range cells {
		if score > 0 {
			scores = append(scores, PairScore{A: key[0], B: key[1], Score: score})
		}
	}
	slices.SortFunc(scores, func(p, q PairScore) int {
		if c := cmp.Compare(p.A, q.A); c != 0 {
			return c
		}
		return cmp.Compare(p.B, q.B)
	})
	return scores
}

// CompareIndex maps every k-gram hash of its files to the regions the
// k-gram covers.
type CompareIndex struct {
	k      int
	hashes map[uint64][]models.Span
}

// NewCompareIndex creates an empty compare index. It panics if k < 1.
func NewCompareIndex(k int) *CompareIndex {
	if k < 1 {
		panic(fmt.Sprintf("winnowing: invalid k-gram size %d", k))
	}
	return &CompareIndex{k: k, hashes: make(map[uint64][]models.Span)}
}

// Include adds every k-gram of tokens, which belong to file.
func (x *CompareIndex) Include(file int, tokens []token.Token) {
	for i, h := range KGrams(tokens, x.k) {
		x.hashes[h] = append(x.hashes[h], models.Span{
			File:  file,
			Start: tokens[i].Start,
			End:   tokens[i+x.k-1].End,
		})
	}
}

// Len returns the number of distinct k-gram hashes.
func (x *CompareIndex) Len() int {
	return len(x.hashes)
}

// Contains reports whether h is in the index.
func (x *CompareIndex) Contains(h uint64) bool {
	_, ok := x.hashes[h]
	return ok
}

// Spans returns the regions hashing to h.
func (x *CompareIndex) Spans(h uint64) []models.Span {
	return x.hashes[h]
}

func (x *CompareIndex) mustMatch(other *CompareIndex) {
	if x.k != other.k {
		panic(fmt.Sprintf("winnowing: incompatible indexes k=%d and k=%d", x.k, other.k))
	}
}

// IncludeAll merges every entry of other into x.
func (x *CompareIndex) IncludeAll(other *CompareIndex) {
	x.mustMatch(other)
	for h, spans := range other.hashes {
		x.hashes[h] = append(x.hashes[h], spans...)
	}
}

// Compare returns every pairing of a region of x with a region of other
// sharing its hash. Hashes are visited in ascending order.
func (x *CompareIndex) Compare(other *CompareIndex) []models.SpanPair {
	x.mustMatch(other)
	var pairs []models.SpanPair
	for _, h := range slices.Sorted(maps.Keys(x.hashes)) {
		theirs, ok := other.hashes[h]
		if !ok {
			continue
		}
		for _, a := range x.hashes[h] {
			for _, b := range theirs {
				pairs = append(pairs, models.SpanPair{A: a, B: b})
			}
		}
	}
	return pairs
}
