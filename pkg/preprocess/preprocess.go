// Package preprocess provides composable token stream transforms applied to
// every file before fingerprinting.
//
// Transforms never reorder tokens and never modify their input: they return
// new slices of new token values. Offsets always refer to the original file.
package preprocess

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/panbanda/winnow/pkg/token"
)

// Preprocessor transforms a token sequence.
type Preprocessor func([]token.Token) []token.Token

// Pipeline is a sequence of preprocessors applied left to right.
type Pipeline []Preprocessor

// Apply runs every preprocessor of the pipeline over tokens.
// An empty pipeline returns tokens unchanged.
func (p Pipeline) Apply(tokens []token.Token) []token.Token {
	for _, pre := range p {
		tokens = pre(tokens)
	}
	return tokens
}

// StripWhitespace drops whitespace-only Text tokens and removes whitespace
// inside the remaining Text tokens.
func StripWhitespace(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.IsText() {
			t.Val = removeSpace(t.Val)
			if t.Val == "" {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func removeSpace(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	return strings.Join(strings.Fields(s), "")
}

// StripComments drops comment tokens.
func StripComments(tokens []token.Token) []token.Token {
	return filter(tokens, func(t token.Token) bool { return !t.IsComment() })
}

// Comments keeps only comment tokens.
func Comments(tokens []token.Token) []token.Token {
	return filter(tokens, token.Token.IsComment)
}

func filter(tokens []token.Token, keep func(token.Token) bool) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeIdentifiers replaces every identifier with "v".
func NormalizeIdentifiers(tokens []token.Token) []token.Token {
	return mapVal(tokens, func(t token.Token) string {
		if t.IsName() {
			return "v"
		}
		return t.Val
	})
}

// NormalizeBuiltinTypes replaces every built-in type keyword with "t".
func NormalizeBuiltinTypes(tokens []token.Token) []token.Token {
	return mapVal(tokens, func(t token.Token) string {
		if t.IsBuiltinType() {
			return "t"
		}
		return t.Val
	})
}

// NormalizeNumericLiterals replaces integer literals with INT, floats with
// FLOAT and any other number with NUM.
func NormalizeNumericLiterals(tokens []token.Token) []token.Token {
	return mapVal(tokens, func(t token.Token) string {
		switch {
		case !t.IsNumber():
			return t.Val
		case t.IsInteger():
			return "INT"
		case t.IsFloat():
			return "FLOAT"
		default:
			return "NUM"
		}
	})
}

// NormalizeCase lowercases every token value.
func NormalizeCase(tokens []token.Token) []token.Token {
	// A Caser keeps state and must not be shared between goroutines.
	lower := cases.Lower(language.Und)
	return mapVal(tokens, func(t token.Token) string {
		return lower.String(t.Val)
	})
}

func mapVal(tokens []token.Token, fn func(token.Token) string) []token.Token {
	out := make([]token.Token, len(tokens))
	for i, t := range tokens {
		t.Val = fn(t)
		out[i] = t
	}
	return out
}

// NormalizeStringLiterals collapses every run of consecutive string literal
// tokens into one token valued `""` spanning the whole run.
func NormalizeStringLiterals(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	inString := false
	for _, t := range tokens {
		if !t.IsString() {
			inString = false
			out = append(out, t)
			continue
		}
		if inString {
			out[len(out)-1].End = t.End
			continue
		}
		inString = true
		out = append(out, token.Token{
			Start: t.Start,
			End:   t.End,
			Type:  chroma.LiteralString,
			Val:   `""`,
		})
	}
	return out
}

// SplitOnWhitespace splits every token at whitespace boundaries. Runs of
// whitespace become their own TextWhitespace tokens so coverage is kept;
// StripWhitespace removes them.
func SplitOnWhitespace(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		if strings.IndexFunc(t.Val, unicode.IsSpace) < 0 {
			out = append(out, t)
			continue
		}
		start := 0
		space := false
		for i, r := range t.Val {
			isSpace := unicode.IsSpace(r)
			if i > 0 && isSpace != space {
				out = append(out, piece(t, start, i, space))
				start = i
			}
			space = isSpace
		}
		out = append(out, piece(t, start, len(t.Val), space))
	}
	return out
}

func piece(t token.Token, from, to int, space bool) token.Token {
	typ := t.Type
	if space {
		typ = chroma.TextWhitespace
	}
	return token.Token{Start: t.Start + from, End: t.Start + to, Type: typ, Val: t.Val[from:to]}
}

// ByCharacter emits one Text token per character.
func ByCharacter(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens)*4)
	for _, t := range tokens {
		for i := 0; i < len(t.Val); {
			_, size := utf8.DecodeRuneInString(t.Val[i:])
			out = append(out, token.Token{
				Start: t.Start + i,
				End:   t.Start + i + size,
				Type:  chroma.Text,
				Val:   t.Val[i : i+size],
			})
			i += size
		}
	}
	return out
}

// Words splits token values into words: runs of letters, with apostrophes
// allowed between letters. Everything else is dropped.
func Words(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		start := -1
		for i, r := range t.Val {
			if unicode.IsLetter(r) || (r == '\'' && start >= 0 && nextIsLetter(t.Val, i+1)) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				out = append(out, slice(t, start, i))
				start = -1
			}
		}
		if start >= 0 {
			out = append(out, slice(t, start, len(t.Val)))
		}
	}
	return out
}

func nextIsLetter(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r)
}

// slice assumes the value still maps byte for byte onto the original text.
func slice(t token.Token, from, to int) token.Token {
	end := t.Start + to
	if end > t.End {
		end = t.End
	}
	return token.Token{Start: t.Start + from, End: end, Type: t.Type, Val: t.Val[from:to]}
}
