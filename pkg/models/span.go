package models

import (
	"cmp"
	"fmt"
	"slices"
)

// Span is a half-open byte range [Start, End) within one file.
// Spans are comparable and can be used as map keys.
type Span struct {
	File  int `json:"file"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether other lies inside s. Both must be in the same file.
func (s Span) Contains(other Span) bool {
	return s.File == other.File && s.Start <= other.Start && other.End <= s.End
}

// Overlaps reports whether s and other share at least one byte.
func (s Span) Overlaps(other Span) bool {
	return s.File == other.File && s.Start < other.End && other.Start < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// CompareSpans orders spans by file, start, then end.
func CompareSpans(a, b Span) int {
	if c := cmp.Compare(a.File, b.File); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.End, b.End)
}

// SortSpans sorts spans in place and removes duplicates.
func SortSpans(spans []Span) []Span {
	slices.SortFunc(spans, CompareSpans)
	return slices.Compact(spans)
}

// SpanPair is one match: a region in submission A and the region of
// submission B it matches.
type SpanPair struct {
	A Span `json:"a"`
	B Span `json:"b"`
}

// ComparePairs orders pairs by their A span, then their B span.
func ComparePairs(x, y SpanPair) int {
	if c := CompareSpans(x.A, y.A); c != 0 {
		return c
	}
	return CompareSpans(x.B, y.B)
}

// SortPairs sorts pairs in place and removes duplicates.
func SortPairs(pairs []SpanPair) []SpanPair {
	slices.SortFunc(pairs, ComparePairs)
	return slices.Compact(pairs)
}
