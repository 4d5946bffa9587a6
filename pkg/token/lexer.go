package token

import (
	"fmt"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Lexer wraps a chroma lexer. The lexer name identifies the token family:
// files are only ever compared with files of the same family.
type Lexer struct {
	lexer chroma.Lexer
}

// Match returns the lexer registered for filename, or nil if none matches.
func Match(filename string) *Lexer {
	return wrap(lexers.Match(filename))
}

// Analyse guesses a lexer from content, or returns nil.
func Analyse(text string) *Lexer {
	return wrap(lexers.Analyse(text))
}

// Fallback returns the plain text lexer used when nothing else matches.
// Its whole input becomes a single Text token.
func Fallback() *Lexer {
	return wrap(lexers.Fallback)
}

// Lookup returns the lexer registered under name or alias, or nil.
func Lookup(name string) *Lexer {
	return wrap(lexers.Get(name))
}

func wrap(l chroma.Lexer) *Lexer {
	if l == nil {
		return nil
	}
	return &Lexer{lexer: l}
}

// Name returns the lexer family name.
func (l *Lexer) Name() string {
	if l == nil {
		return ""
	}
	return l.lexer.Config().Name
}

// Tokenize lexes text into tokens that tile it exactly: concatenating the
// values of the result yields text. A nil lexer yields no tokens.
func (l *Lexer) Tokenize(text string) ([]Token, error) {
	if l == nil || text == "" {
		return nil, nil
	}

	// EnsureLF would rewrite CRLF and shift every offset after it.
	it, err := l.lexer.Tokenise(&chroma.TokeniseOptions{State: "root"}, text)
	if err != nil {
		return nil, fmt.Errorf("tokenize with %s: %w", l.Name(), err)
	}

	tokens := make([]Token, 0, len(text)/4)
	offset := 0
	for t := it(); t != chroma.EOF; t = it() {
		if t.Value == "" {
			continue
		}
		if offset >= len(text) {
			// Trailing newline some lexers append to unterminated input.
			break
		}
		val := t.Value
		if offset+len(val) > len(text) {
			val = text[offset:]
		}
		tokens = append(tokens, Token{
			Start: offset,
			End:   offset + len(val),
			Type:  t.Type,
			Val:   val,
		})
		offset += len(val)
	}
	return tokens, nil
}
