package report

import (
	"slices"
	"time"

	"github.com/panbanda/winnow/pkg/models"
)

// Metadata contains report generation metadata.
type Metadata struct {
	Root        string    `json:"root"`
	GeneratedAt time.Time `json:"generated_at"`
	Archive     []string  `json:"archive,omitempty"`
	Distro      []string  `json:"distro,omitempty"`
}

// Tag marks the span [Start, End) of a file as covered by a group or, when
// Ignored is set, by an ignored span.
type Tag struct {
	Start   int
	End     int
	ID      int
	Ignored bool
}

// Fragment is a contiguous run of a file's characters covered by the same
// set of tags.
type Fragment struct {
	Start   int
	End     int
	Text    string
	Groups  []int
	Ignored []int
}

// Matched reports whether any group covers the fragment.
func (f Fragment) Matched() bool {
	return len(f.Groups) > 0
}

// Slice cuts content at every tag boundary. Each fragment carries the
// sorted IDs of every tag covering it. Tags are clipped to the content;
// empty content yields no fragments.
func Slice(content string, tags []Tag) []Fragment {
	if content == "" {
		return nil
	}

	cuts := []int{0, len(content)}
	for _, t := range tags {
		cuts = append(cuts, clamp(t.Start, len(content)), clamp(t.End, len(content)))
	}
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	frags := make([]Fragment, 0, len(cuts)-1)
	for i := 0; i+1 < len(cuts); i++ {
		from, to := cuts[i], cuts[i+1]
		f := Fragment{Start: from, End: to, Text: content[from:to]}
		for _, t := range tags {
			if t.Start > from || t.End < to {
				continue
			}
			if t.Ignored {
				f.Ignored = append(f.Ignored, t.ID)
			} else {
				f.Groups = append(f.Groups, t.ID)
			}
		}
		slices.Sort(f.Groups)
		f.Groups = slices.Compact(f.Groups)
		slices.Sort(f.Ignored)
		f.Ignored = slices.Compact(f.Ignored)
		frags = append(frags, f)
	}
	return frags
}

func clamp(v, n int) int {
	return max(0, min(v, n))
}

// TagsFor returns the tags of file in c: one per group span and one per
// ignored span, ignored spans numbered by their position in c.Ignored.
func TagsFor(c *models.Comparison, file int) []Tag {
	var tags []Tag
	for _, g := range c.Groups {
		for _, s := range g.Spans {
			if s.File == file {
				tags = append(tags, Tag{Start: s.Start, End: s.End, ID: g.ID})
			}
		}
	}
	for i, s := range c.Ignored {
		if s.File == file {
			tags = append(tags, Tag{Start: s.Start, End: s.End, ID: i, Ignored: true})
		}
	}
	return tags
}

// IndexData is the data of the index page.
type IndexData struct {
	Metadata Metadata
	Passes   []PassIndex
}

// PassIndex lists the ranked pairs of one pass.
type PassIndex struct {
	Pass  string
	Pairs []PairLink
}

// PairLink is one row of the index page.
type PairLink struct {
	Rank    int
	SubA    string
	SubB    string
	Archive bool
	Score   float64
	Matches int
	Groups  int
	Href    string
}

// MatchData is the data of one pair page.
type MatchData struct {
	Pass   string
	Rank   int
	Score  float64
	Groups int
	A      Side
	B      Side
}

// Side is one submission of a pair page.
type Side struct {
	Name      string
	Path      string
	Archive   bool
	Files     []FileView
	Unmatched int // files without any matching region
}

// FileView is a file of a pair page, sliced into fragments.
type FileView struct {
	Name      string
	Fragments []Fragment
}
