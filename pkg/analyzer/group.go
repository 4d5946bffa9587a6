package analyzer

import (
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/panbanda/winnow/pkg/models"
)

// Group partitions the spans of pairs into groups of transitively matching
// spans. Groups whose every span lies inside a span of another group of at
// least the same size are dropped. Groups are sorted by their first span
// and numbered in that order.
func Group(pairs []models.SpanPair) []models.Group {
	if len(pairs) == 0 {
		return nil
	}

	g := simple.NewUndirectedGraph()
	ids := make(map[models.Span]int64)
	var spans []models.Span
	node := func(s models.Span) int64 {
		if id, ok := ids[s]; ok {
			return id
		}
		id := int64(len(spans))
		ids[s] = id
		spans = append(spans, s)
		g.AddNode(simple.Node(id))
		return id
	}
	for _, p := range pairs {
		a, b := node(p.A), node(p.B)
		if a != b {
			g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
		}
	}

	var groups [][]models.Span
	for _, component := range topo.ConnectedComponents(g) {
		if len(component) < 2 {
			continue
		}
		members := make([]models.Span, len(component))
		for i, n := range component {
			members[i] = spans[n.ID()]
		}
		groups = append(groups, models.SortSpans(members))
	}

	groups = dropSubsumed(groups)
	slices.SortFunc(groups, func(a, b []models.Span) int {
		return models.CompareSpans(a[0], b[0])
	})

	out := make([]models.Group, len(groups))
	for i, spans := range groups {
		out[i] = models.Group{ID: i, Spans: spans}
	}
	return out
}

func dropSubsumed(groups [][]models.Span) [][]models.Span {
	kept := groups[:0:0]
	for i, g := range groups {
		subsumed := false
		for j, other := range groups {
			if i == j || len(other) < len(g) || !covers(other, g) {
				continue
			}
			// Of two groups covering each other only the first survives.
			if len(other) == len(g) && j > i && covers(g, other) {
				continue
			}
			subsumed = true
			break
		}
		if !subsumed {
			kept = append(kept, g)
		}
	}
	return kept
}

// covers reports whether every span of inner lies within some span of outer.
func covers(outer, inner []models.Span) bool {
	for _, s := range inner {
		found := false
		for _, o := range outer {
			if o.Contains(s) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// TopScores sorts scores in ranking order and keeps the n best. n <= 0
// keeps all of them.
func TopScores(scores []models.Score, n int) []models.Score {
	models.SortScores(scores)
	if n > 0 && len(scores) > n {
		scores = scores[:n]
	}
	return scores
}
