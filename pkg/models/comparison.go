package models

import (
	"cmp"
	"slices"
)

// Score ranks one pair of submissions. SubA always has the smaller ID.
// Higher scores mean more similar.
type Score struct {
	SubA  *Submission `json:"sub_a"`
	SubB  *Submission `json:"sub_b"`
	Score float64     `json:"score"`
}

// NewScore builds a Score with the submissions in canonical order.
func NewScore(a, b *Submission, score float64) Score {
	if a.ID > b.ID {
		a, b = b, a
	}
	return Score{SubA: a, SubB: b, Score: score}
}

// CompareScores orders scores by score descending, then by submission IDs.
func CompareScores(x, y Score) int {
	if c := cmp.Compare(y.Score, x.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(x.SubA.ID, y.SubA.ID); c != 0 {
		return c
	}
	return cmp.Compare(x.SubB.ID, y.SubB.ID)
}

// SortScores sorts scores deterministically in ranking order.
func SortScores(scores []Score) {
	slices.SortFunc(scores, CompareScores)
}

// Group is a set of spans with matching content, connected through the
// match relation of one submission pair.
type Group struct {
	ID    int    `json:"id"`
	Spans []Span `json:"spans"`
}

// Comparison is the deep comparison result of one submission pair.
type Comparison struct {
	SubA    *Submission `json:"sub_a"`
	SubB    *Submission `json:"sub_b"`
	Score   float64     `json:"score"`
	Matches []SpanPair  `json:"matches"`
	Ignored []Span      `json:"ignored"`
	Groups  []Group     `json:"groups"`
}
