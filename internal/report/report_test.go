package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/source"
)

func TestSlice(t *testing.T) {
	content := "abcdefghij"
	tags := []Tag{
		{Start: 2, End: 6, ID: 1},
		{Start: 4, End: 8, ID: 0},
		{Start: 5, End: 9, ID: 3, Ignored: true},
	}

	frags := Slice(content, tags)

	var texts []string
	var rebuilt strings.Builder
	for _, f := range frags {
		texts = append(texts, f.Text)
		rebuilt.WriteString(f.Text)
		assert.Equal(t, content[f.Start:f.End], f.Text)
	}
	assert.Equal(t, []string{"ab", "cd", "e", "f", "gh", "i", "j"}, texts)
	assert.Equal(t, content, rebuilt.String())

	assert.Empty(t, frags[0].Groups)
	assert.Equal(t, []int{1}, frags[1].Groups)
	assert.Equal(t, []int{0, 1}, frags[2].Groups)
	assert.Equal(t, []int{0, 1}, frags[3].Groups)
	assert.Equal(t, []int{3}, frags[3].Ignored)
	assert.Equal(t, []int{0}, frags[4].Groups)
	assert.Equal(t, []int{3}, frags[5].Ignored)
	assert.False(t, frags[5].Matched())
	assert.Empty(t, frags[6].Groups)
	assert.Empty(t, frags[6].Ignored)
}

func TestSlice_Edges(t *testing.T) {
	assert.Nil(t, Slice("", []Tag{{Start: 0, End: 3}}))

	whole := Slice("abc", nil)
	require.Len(t, whole, 1)
	assert.Equal(t, "abc", whole[0].Text)

	// Out of range tags are clipped, duplicates collapse.
	frags := Slice("abc", []Tag{{Start: -2, End: 10, ID: 4}, {Start: 0, End: 3, ID: 4}})
	require.Len(t, frags, 1)
	assert.Equal(t, []int{4}, frags[0].Groups)
}

func TestSlice_Deterministic(t *testing.T) {
	tags := []Tag{{Start: 3, End: 5, ID: 2}, {Start: 1, End: 4, ID: 1}}
	reversed := []Tag{tags[1], tags[0]}
	assert.Equal(t, Slice("abcdefg", tags), Slice("abcdefg", reversed))
}

func fixture() (*source.MemorySource, models.Comparison) {
	src := source.NewMemory(map[string]string{
		"/subs/a/x.py": "def f():\n    return 1\n",
		"/subs/a/y.py": "print('hi')\n",
		"/subs/b/z.py": "# shared\ndef f():\n    return 1\n",
	})
	x := &models.File{ID: 0, Path: "/subs/a/x.py", Name: "x.py"}
	y := &models.File{ID: 1, Path: "/subs/a/y.py", Name: "y.py"}
	z := &models.File{ID: 2, Path: "/subs/b/z.py", Name: "z.py"}
	a := &models.Submission{ID: 0, Path: "/subs/a", Files: []*models.File{x, y}}
	b := &models.Submission{ID: 1, Path: "/subs/b", Files: []*models.File{z}, Archive: true}

	c := models.Comparison{
		SubA:    a,
		SubB:    b,
		Score:   1234.5,
		Matches: []models.SpanPair{{A: models.Span{File: 0, Start: 0, End: 21}, B: models.Span{File: 2, Start: 9, End: 30}}},
		Ignored: []models.Span{{File: 2, Start: 0, End: 9}},
		Groups: []models.Group{
			{ID: 0, Spans: []models.Span{{File: 0, Start: 0, End: 21}, {File: 2, Start: 9, End: 30}}},
		},
	}
	return src, c
}

func TestTagsFor(t *testing.T) {
	_, c := fixture()

	assert.Equal(t, []Tag{{Start: 0, End: 21, ID: 0}}, TagsFor(&c, 0))
	assert.Equal(t, []Tag{
		{Start: 9, End: 30, ID: 0},
		{Start: 0, End: 9, ID: 0, Ignored: true},
	}, TagsFor(&c, 2))
	assert.Empty(t, TagsFor(&c, 1))
}

func TestRendererWrite(t *testing.T) {
	src, c := fixture()
	r, err := NewRenderer(src)
	require.NoError(t, err)

	dir := t.TempDir()
	meta := Metadata{Root: "/subs", GeneratedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)}
	pages, err := r.Write(dir, meta, []PassResult{
		{Pass: "structure", Comparisons: []models.Comparison{c}},
		{Pass: "text"},
	})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, []string{"structure/match_1.html"}, pages[0])
	assert.Empty(t, pages[1])

	index, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	html := string(index)
	assert.Contains(t, html, `href="structure/match_1.html"`)
	assert.Contains(t, html, "1,234.50")
	assert.Contains(t, html, "Structure")
	assert.Contains(t, html, "No similar pairs.")
	assert.Contains(t, html, "2026-01-02 03:04")

	match, err := os.ReadFile(filepath.Join(dir, "structure", "match_1.html"))
	require.NoError(t, err)
	page := string(match)
	assert.Contains(t, page, `class="match g0"`)
	assert.Contains(t, page, `class="ignored"`)
	assert.Contains(t, page, "# shared")
	assert.Contains(t, page, "1 files without matches")
	assert.NotContains(t, page, "print(")
	// Content is escaped.
	assert.Contains(t, page, "def f():")
}

func TestRendererWrite_UnreadableFile(t *testing.T) {
	_, c := fixture()
	r, err := NewRenderer(source.NewMemory(nil))
	require.NoError(t, err)

	_, err = r.Write(t.TempDir(), Metadata{}, []PassResult{{Pass: "structure", Comparisons: []models.Comparison{c}}})
	assert.ErrorContains(t, err, "/subs/a/x.py")
}
