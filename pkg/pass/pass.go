// Package pass enumerates the comparison passes winnow can run. A pass
// pairs a preprocessing pipeline with the comparator consuming its tokens.
package pass

import (
	"fmt"
	"strings"

	"github.com/panbanda/winnow/pkg/analyzer"
	"github.com/panbanda/winnow/pkg/analyzer/misspellings"
	"github.com/panbanda/winnow/pkg/analyzer/winnowing"
	"github.com/panbanda/winnow/pkg/config"
	"github.com/panbanda/winnow/pkg/preprocess"
)

// Pass identifies a comparison pass.
type Pass string

const (
	// Structure compares code shape: identifiers, types and literals are
	// normalized, whitespace and comments dropped.
	Structure Pass = "structure"
	// Text compares the words of the files, whitespace insensitive.
	Text Pass = "text"
	// Exact compares the unprocessed token streams.
	Exact Pass = "exact"
	// NoComments compares the words of the code outside comments.
	NoComments Pass = "nocomments"
	// Misspellings compares the misspelled words of comments.
	Misspellings Pass = "misspellings"
)

// All returns every pass in presentation order.
func All() []Pass {
	return []Pass{Structure, Text, Exact, NoComments, Misspellings}
}

// Parse returns the pass named name.
func Parse(name string) (Pass, error) {
	for _, p := range All() {
		if string(p) == strings.ToLower(strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return "", config.Errorf("pass", "unknown pass %q (available: %s)", name, names())
}

// ParseAll parses every name, rejecting unknown and duplicate passes.
func ParseAll(names []string) ([]Pass, error) {
	seen := make(map[Pass]bool)
	passes := make([]Pass, 0, len(names))
	for _, name := range names {
		p, err := Parse(name)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		passes = append(passes, p)
	}
	return passes, nil
}

func names() string {
	var b strings.Builder
	for i, p := range All() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(p))
	}
	return b.String()
}

func (p Pass) String() string {
	return string(p)
}

// Description returns a one-line summary of what the pass compares.
func (p Pass) Description() string {
	switch p {
	case Structure:
		return "Compares code structure, ignoring names, literals, whitespace and comments"
	case Text:
		return "Compares the words of the files, ignoring whitespace"
	case Exact:
		return "Compares the files token for token, whitespace and comments included"
	case NoComments:
		return "Compares the words of the code, ignoring whitespace and comments"
	case Misspellings:
		return "Compares the misspelled words shared by comments"
	}
	return ""
}

// Pipeline returns the preprocessing pipeline of the pass.
func (p Pass) Pipeline() preprocess.Pipeline {
	switch p {
	case Structure:
		return preprocess.Pipeline{
			preprocess.StripWhitespace,
			preprocess.StripComments,
			preprocess.NormalizeIdentifiers,
			preprocess.NormalizeBuiltinTypes,
			preprocess.NormalizeStringLiterals,
			preprocess.NormalizeNumericLiterals,
		}
	case Text:
		return preprocess.Pipeline{preprocess.SplitOnWhitespace, preprocess.StripWhitespace}
	case NoComments:
		return preprocess.Pipeline{preprocess.StripComments, preprocess.SplitOnWhitespace, preprocess.StripWhitespace}
	case Misspellings:
		return preprocess.Pipeline{preprocess.Comments, preprocess.Words, preprocess.NormalizeCase}
	}
	return nil
}

// Comparator builds the comparator of the pass from cfg.
func (p Pass) Comparator(cfg *config.Config) (analyzer.Comparator, error) {
	switch p {
	case Structure, Text, Exact, NoComments:
		return winnowing.New(winnowing.WithConfig(cfg.WinnowingFor(string(p)))), nil
	case Misspellings:
		if err := cfg.CheckDictionary(); err != nil {
			return nil, err
		}
		dict, err := misspellings.LoadDictionary(cfg.Misspellings.Dictionary)
		if err != nil {
			return nil, &config.Error{Key: "misspellings.dictionary", Err: err}
		}
		return misspellings.New(dict), nil
	}
	return nil, fmt.Errorf("pass %q has no comparator", p)
}
