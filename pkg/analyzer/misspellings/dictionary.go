package misspellings

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Dictionary is a set of correctly spelled words, stored lowercased.
type Dictionary struct {
	words map[string]struct{}
}

// LoadDictionary reads a UTF-8 word list, one word per line.
func LoadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()
	return ParseDictionary(f)
}

// ParseDictionary reads a word list from r. Blank lines and lines starting
// with '#' are skipped.
func ParseDictionary(r io.Reader) (*Dictionary, error) {
	lower := cases.Lower(language.Und)
	d := &Dictionary{words: make(map[string]struct{})}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		word := strings.TrimSpace(sc.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		d.words[lower.String(word)] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return d, nil
}

// NewDictionary builds a dictionary from words.
func NewDictionary(words ...string) *Dictionary {
	lower := cases.Lower(language.Und)
	d := &Dictionary{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		d.words[lower.String(w)] = struct{}{}
	}
	return d
}

// Contains reports whether word, already lowercased, is spelled correctly.
func (d *Dictionary) Contains(word string) bool {
	_, ok := d.words[word]
	return ok
}

// Len returns the number of words.
func (d *Dictionary) Len() int {
	return len(d.words)
}
