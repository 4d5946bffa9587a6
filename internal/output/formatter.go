// Package output renders comparison results on the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Format is a terminal output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat converts a string to Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	}
	return FormatText
}

// Renderable is a result that knows how to print itself.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	// RenderData returns the value encoded for JSON output.
	RenderData() any
}

// Formatter writes Renderables in one format.
type Formatter struct {
	format  Format
	w       io.Writer
	colored bool
}

// NewFormatter creates a formatter writing to w. colored only affects the
// text format.
func NewFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, w: w, colored: colored}
}

// Output writes r in the configured format.
func (f *Formatter) Output(r Renderable) error {
	switch f.format {
	case FormatJSON:
		enc := json.NewEncoder(f.w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.RenderData())
	case FormatMarkdown:
		return r.RenderMarkdown(f.w)
	}
	return r.RenderText(f.w, f.colored)
}

// Table is a titled table. Columns listed in Numeric are right aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Numeric []int
	Footer  string
}

func (t *Table) alignments() []tw.Align {
	aligns := make([]tw.Align, len(t.Headers))
	for i := range aligns {
		aligns[i] = tw.AlignLeft
	}
	for _, col := range t.Numeric {
		if col >= 0 && col < len(aligns) {
			aligns[col] = tw.AlignRight
		}
	}
	return aligns
}

// RenderText draws the table with a rule under the header and no outer
// border.
func (t *Table) RenderText(w io.Writer, colored bool) error {
	if t.Title != "" {
		title := t.Title
		if colored {
			title = color.New(color.Bold, color.FgCyan).Sprint(title)
		}
		fmt.Fprintf(w, "%s\n%s\n\n", title, strings.Repeat("-", len(t.Title)))
	}

	aligns := t.alignments()
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{PerColumn: aligns},
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{PerColumn: aligns},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
			Settings: tw.Settings{
				Separators: tw.Separators{BetweenColumns: tw.Off},
				Lines:      tw.Lines{ShowHeaderLine: tw.On},
			},
		}),
	)

	table.Header(t.Headers)
	if err := table.Bulk(t.Rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if t.Footer != "" {
		fmt.Fprintf(w, "\n%s\n", t.Footer)
	}
	fmt.Fprintln(w)
	return nil
}

// RenderMarkdown writes the table as a GitHub-flavoured markdown table.
func (t *Table) RenderMarkdown(w io.Writer) error {
	if t.Title != "" {
		fmt.Fprintf(w, "## %s\n\n", t.Title)
	}

	seps := make([]string, len(t.Headers))
	for i, a := range t.alignments() {
		seps[i] = "---"
		if a == tw.AlignRight {
			seps[i] = "--:"
		}
	}
	writeMarkdownRow(w, t.Headers)
	writeMarkdownRow(w, seps)
	for _, row := range t.Rows {
		writeMarkdownRow(w, row)
	}

	if t.Footer != "" {
		fmt.Fprintf(w, "\n%s\n", t.Footer)
	}
	fmt.Fprintln(w)
	return nil
}

func writeMarkdownRow(w io.Writer, cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(escaped, " | "))
}

// Warning prints a warning line, yellow when colored.
func (f *Formatter) Warning(format string, args ...any) {
	if f.colored {
		color.New(color.FgYellow).Fprintf(f.w, format+"\n", args...)
		return
	}
	fmt.Fprintf(f.w, "WARNING: "+format+"\n", args...)
}

// ScoreColor colors text by how close score is to the highest score of its
// ranking: red in the top third, yellow in the middle third.
func ScoreColor(score, max float64, text string) string {
	if max <= 0 {
		return text
	}
	switch ratio := score / max; {
	case ratio >= 2.0/3:
		return color.RedString(text)
	case ratio >= 1.0/3:
		return color.YellowString(text)
	}
	return text
}
