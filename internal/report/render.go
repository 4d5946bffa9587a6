// Package report writes the HTML report of a run: an index page listing the
// ranked pairs of every pass and one side-by-side page per pair.
package report

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/source"
)

//go:embed templates/*.html
var templateFS embed.FS

// paletteSize is the number of distinct group colors in the stylesheet.
const paletteSize = 12

// PassResult is the input of one pass: its comparisons in ranking order.
type PassResult struct {
	Pass        string
	Comparisons []models.Comparison
}

// Renderer handles HTML report generation.
type Renderer struct {
	index *template.Template
	match *template.Template
	src   source.ContentSource
}

// NewRenderer creates a renderer reading file contents from src.
func NewRenderer(src source.ContentSource) (*Renderer, error) {
	printer := message.NewPrinter(language.English)
	funcMap := template.FuncMap{
		"title": cases.Title(language.English).String,
		"num": func(n int) string {
			return printer.Sprintf("%d", n)
		},
		"score": func(f float64) string {
			return printer.Sprintf("%.2f", f)
		},
		"fragClass": fragClass,
		"groupIDs": func(ids []int) string {
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = strconv.Itoa(id)
			}
			return strings.Join(parts, " ")
		},
	}

	index, err := template.New("index.html").Funcs(funcMap).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	match, err := template.New("match.html").Funcs(funcMap).ParseFS(templateFS, "templates/match.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{index: index, match: match, src: src}, nil
}

func fragClass(f Fragment) string {
	var classes []string
	if f.Matched() {
		classes = append(classes, "match", fmt.Sprintf("g%d", f.Groups[0]%paletteSize))
	}
	if len(f.Ignored) > 0 {
		classes = append(classes, "ignored")
	}
	return strings.Join(classes, " ")
}

// Write renders the report of every pass into dir. Pair pages go to
// <dir>/<pass>/match_<rank>.html and the index to <dir>/index.html. It
// returns the page paths of each pass relative to dir.
func (r *Renderer) Write(dir string, meta Metadata, results []PassResult) ([][]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	data := IndexData{Metadata: meta}
	pages := make([][]string, len(results))
	for i, res := range results {
		passDir := filepath.Join(dir, res.Pass)
		if err := os.MkdirAll(passDir, 0o755); err != nil {
			return nil, err
		}

		idx := PassIndex{Pass: res.Pass}
		for j := range res.Comparisons {
			c := &res.Comparisons[j]
			rank := j + 1
			rel := res.Pass + "/match_" + strconv.Itoa(rank) + ".html"

			page, err := r.matchData(res.Pass, rank, c)
			if err != nil {
				return nil, err
			}
			if err := render(r.match, filepath.Join(dir, filepath.FromSlash(rel)), page); err != nil {
				return nil, err
			}

			pages[i] = append(pages[i], rel)
			idx.Pairs = append(idx.Pairs, PairLink{
				Rank:    rank,
				SubA:    c.SubA.Path,
				SubB:    c.SubB.Path,
				Archive: c.SubA.Archive || c.SubB.Archive,
				Score:   c.Score,
				Matches: len(c.Matches),
				Groups:  len(c.Groups),
				Href:    rel,
			})
		}
		data.Passes = append(data.Passes, idx)
	}

	if err := render(r.index, filepath.Join(dir, "index.html"), data); err != nil {
		return nil, err
	}
	return pages, nil
}

func (r *Renderer) matchData(pass string, rank int, c *models.Comparison) (*MatchData, error) {
	a, err := r.side(c, c.SubA)
	if err != nil {
		return nil, err
	}
	b, err := r.side(c, c.SubB)
	if err != nil {
		return nil, err
	}
	return &MatchData{Pass: pass, Rank: rank, Score: c.Score, Groups: len(c.Groups), A: a, B: b}, nil
}

func (r *Renderer) side(c *models.Comparison, sub *models.Submission) (Side, error) {
	s := Side{Name: sub.Name(), Path: sub.Path, Archive: sub.Archive}
	for _, f := range sub.Files {
		tags := TagsFor(c, f.ID)
		if !hasGroup(tags) {
			s.Unmatched++
			continue
		}
		content, err := f.Read(r.src)
		if err != nil {
			return Side{}, fmt.Errorf("reading %s: %w", f.Path, err)
		}
		s.Files = append(s.Files, FileView{Name: f.Name, Fragments: Slice(content, tags)})
	}
	return s, nil
}

func hasGroup(tags []Tag) bool {
	for _, t := range tags {
		if !t.Ignored {
			return true
		}
	}
	return false
}

func render(tmpl *template.Template, path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(f, data); err != nil {
		f.Close()
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	return f.Close()
}
