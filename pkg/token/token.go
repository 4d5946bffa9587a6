// Package token defines the lexical unit the comparison engine works on and
// adapts chroma lexers to produce offset-carrying token streams.
package token

import (
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
)

// Token is a lexical unit of a file. Start and End are half-open byte
// offsets into the original file content.
type Token struct {
	Start int
	End   int
	Type  chroma.TokenType
	Val   string
}

// Equal reports whether two tokens have the same type and value.
// Offsets do not participate.
func (t Token) Equal(other Token) bool {
	return t.Type == other.Type && t.Val == other.Val
}

// Len returns the number of bytes of the original content the token covers.
func (t Token) Len() int {
	return t.End - t.Start
}

// IsText reports whether the token belongs to the Text category.
func (t Token) IsText() bool {
	return t.Type.InCategory(chroma.Text)
}

// IsComment reports whether the token is a comment. Preprocessor
// directives share the Comment category in chroma but are code, so they
// are not comments here.
func (t Token) IsComment() bool {
	return t.Type.InCategory(chroma.Comment) && !t.Type.InSubCategory(chroma.CommentPreproc)
}

// IsName reports whether the token is an identifier.
func (t Token) IsName() bool {
	return t.Type.InCategory(chroma.Name)
}

// IsBuiltinType reports whether the token is a built-in type keyword.
func (t Token) IsBuiltinType() bool {
	return t.Type == chroma.KeywordType
}

// IsString reports whether the token is part of a string literal.
func (t Token) IsString() bool {
	return t.Type.InSubCategory(chroma.LiteralString)
}

// IsNumber reports whether the token is a numeric literal.
func (t Token) IsNumber() bool {
	return t.Type.InSubCategory(chroma.LiteralNumber)
}

// IsInteger reports whether the token is an integer literal of any base.
func (t Token) IsInteger() bool {
	switch t.Type {
	case chroma.LiteralNumberInteger, chroma.LiteralNumberIntegerLong,
		chroma.LiteralNumberBin, chroma.LiteralNumberHex, chroma.LiteralNumberOct:
		return true
	}
	return false
}

// IsFloat reports whether the token is a floating point literal.
func (t Token) IsFloat() bool {
	return t.Type == chroma.LiteralNumberFloat
}

// Search returns the index of the token containing offset, i.e. the first
// token whose End is greater than offset. Returns len(tokens) if none.
// tokens must be sorted by Start and non-overlapping.
func Search(tokens []Token, offset int) int {
	return sort.Search(len(tokens), func(i int) bool {
		return tokens[i].End > offset
	})
}

// Join concatenates the values of tokens.
func Join(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Val)
	}
	return b.String()
}
