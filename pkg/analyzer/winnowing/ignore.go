package winnowing

import (
	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/token"
)

// splitRuns partitions tokens by the distro index: a token is ignored when
// some k-gram covering it hashes into distro. kept holds the maximal runs
// of tokens that are not ignored, ignored the maximal runs that are.
func splitRuns(tokens []token.Token, k int, distro *CompareIndex) (kept, ignored [][]token.Token) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if distro == nil || distro.Len() == 0 {
		return [][]token.Token{tokens}, nil
	}

	// depth[i] counts the distro k-grams opening at i minus those closing.
	depth := make([]int, len(tokens)+1)
	for i, h := range KGrams(tokens, k) {
		if distro.Contains(h) {
			depth[i]++
			depth[i+k]--
		}
	}

	covered, start := 0, 0
	inside := false
	for i := range tokens {
		covered += depth[i]
		now := covered > 0
		if i > 0 && now != inside {
			if inside {
				ignored = append(ignored, tokens[start:i])
			} else {
				kept = append(kept, tokens[start:i])
			}
			start = i
		}
		inside = now
	}
	if inside {
		ignored = append(ignored, tokens[start:])
	} else {
		kept = append(kept, tokens[start:])
	}
	return kept, ignored
}

// runSpans flattens runs to the regions they cover.
func runSpans(file int, runs [][]token.Token) []models.Span {
	spans := make([]models.Span, 0, len(runs))
	for _, run := range runs {
		spans = append(spans, models.Span{File: file, Start: run[0].Start, End: run[len(run)-1].End})
	}
	return spans
}
