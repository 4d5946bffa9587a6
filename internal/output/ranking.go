package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/stats"
)

// Pair is one ranked submission pair of a pass.
type Pair struct {
	Rank    int     `json:"rank"`
	SubA    string  `json:"sub_a"`
	SubB    string  `json:"sub_b"`
	Archive bool    `json:"archive"`
	Score   float64 `json:"score"`
	Matches int     `json:"matches"`
	Groups  int     `json:"groups"`
	Report  string  `json:"report,omitempty"`
}

// Ranking is the ranked pair list of one pass.
type Ranking struct {
	Pass    string        `json:"pass"`
	Pairs   []Pair        `json:"pairs"`
	Summary stats.Summary `json:"summary"`
}

// NewRanking builds the ranking of pass from its comparisons, which must
// already be in ranking order. reports holds the HTML page of each
// comparison and may be nil.
func NewRanking(pass string, comps []models.Comparison, reports []string) *Ranking {
	r := &Ranking{Pass: pass, Pairs: make([]Pair, 0, len(comps))}
	scores := make([]float64, 0, len(comps))
	for i, c := range comps {
		p := Pair{
			Rank:    i + 1,
			SubA:    c.SubA.Path,
			SubB:    c.SubB.Path,
			Archive: c.SubA.Archive || c.SubB.Archive,
			Score:   c.Score,
			Matches: len(c.Matches),
			Groups:  len(c.Groups),
		}
		if i < len(reports) {
			p.Report = reports[i]
		}
		r.Pairs = append(r.Pairs, p)
		scores = append(scores, c.Score)
	}
	r.Summary = stats.Summarize(scores)
	return r
}

func (r *Ranking) table(colored bool) *Table {
	t := &Table{
		Title:   "Pass: " + r.Pass,
		Headers: []string{"#", "Submission A", "Submission B", "Score", "Matches", "Groups"},
		Numeric: []int{0, 3, 4, 5},
	}
	for _, p := range r.Pairs {
		b := p.SubB
		if p.Archive {
			b += " (archive)"
		}
		score := strconv.FormatFloat(p.Score, 'f', 2, 64)
		if colored {
			score = ScoreColor(p.Score, r.Summary.Max, score)
		}
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(p.Rank), p.SubA, b, score,
			strconv.Itoa(p.Matches), strconv.Itoa(p.Groups),
		})
	}
	if r.Summary.Count > 0 {
		t.Footer = fmt.Sprintf("%d pairs, score mean %.2f, p50 %.2f, p95 %.2f, max %.2f",
			r.Summary.Count, r.Summary.Mean, r.Summary.P50, r.Summary.P95, r.Summary.Max)
	} else {
		t.Footer = "no similar pairs"
	}
	return t
}

func (r *Ranking) RenderText(w io.Writer, colored bool) error {
	return r.table(colored).RenderText(w, colored)
}

func (r *Ranking) RenderMarkdown(w io.Writer) error {
	return r.table(false).RenderMarkdown(w)
}

func (r *Ranking) RenderData() any {
	return r
}

// Run holds the rankings of every pass of one invocation.
type Run struct {
	Rankings []*Ranking
	// ReportDir is where the HTML report was written, if anywhere.
	ReportDir string
}

func (r *Run) RenderText(w io.Writer, colored bool) error {
	for _, rk := range r.Rankings {
		if err := rk.RenderText(w, colored); err != nil {
			return err
		}
	}
	if r.ReportDir != "" {
		fmt.Fprintf(w, "Report written to %s\n", r.ReportDir)
	}
	return nil
}

func (r *Run) RenderMarkdown(w io.Writer) error {
	fmt.Fprint(w, "# Similarity report\n\n")
	for _, rk := range r.Rankings {
		if err := rk.RenderMarkdown(w); err != nil {
			return err
		}
	}
	if r.ReportDir != "" {
		fmt.Fprintf(w, "Report written to `%s`.\n", r.ReportDir)
	}
	return nil
}

func (r *Run) RenderData() any {
	return map[string]any{
		"passes":     r.Rankings,
		"report_dir": r.ReportDir,
	}
}
