package winnowing

import (
	"slices"

	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/token"
)

// expand grows every raw match between two files as far as the identical
// tokens around it allow. tokensA and tokensB are the full preprocessed
// token lists of the files of the A and B sides. A raw pair lying inside
// the two sides of one region already produced is dropped.
func expand(pairs []models.SpanPair, tokensA, tokensB []token.Token) []models.SpanPair {
	if len(pairs) == 0 {
		return nil
	}
	pairs = slices.Clone(pairs)
	slices.SortFunc(pairs, func(x, y models.SpanPair) int {
		if x.A.Start != y.A.Start {
			return x.A.Start - y.A.Start
		}
		return x.B.Start - y.B.Start
	})

	out := make([]models.SpanPair, 0, len(pairs))
	for _, p := range pairs {
		if isCovered(out, p) {
			continue
		}

		i, iEnd := token.Search(tokensA, p.A.Start), token.Search(tokensA, p.A.End-1)
		j, jEnd := token.Search(tokensB, p.B.Start), token.Search(tokensB, p.B.End-1)
		if iEnd >= len(tokensA) || jEnd >= len(tokensB) {
			continue
		}

		for i > 0 && j > 0 && tokensA[i-1].Equal(tokensB[j-1]) {
			i--
			j--
		}
		for iEnd+1 < len(tokensA) && jEnd+1 < len(tokensB) && tokensA[iEnd+1].Equal(tokensB[jEnd+1]) {
			iEnd++
			jEnd++
		}

		a := models.Span{File: p.A.File, Start: tokensA[i].Start, End: tokensA[iEnd].End}
		b := models.Span{File: p.B.File, Start: tokensB[j].Start, End: tokensB[jEnd].End}
		out = append(out, models.SpanPair{A: a, B: b})
	}
	return models.SortPairs(out)
}

// isCovered reports whether a single region contains p on both sides.
// Regions overlapping p only in part do not cover it.
func isCovered(regions []models.SpanPair, p models.SpanPair) bool {
	for _, r := range regions {
		if r.A.Contains(p.A) && r.B.Contains(p.B) {
			return true
		}
	}
	return false
}
