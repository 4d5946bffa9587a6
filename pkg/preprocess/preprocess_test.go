package preprocess

import (
	"sort"
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/token"
)

func tok(start int, typ chroma.TokenType, val string) token.Token {
	return token.Token{Start: start, End: start + len(val), Type: typ, Val: val}
}

func vals(tokens []token.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Val
	}
	return out
}

func lex(t *testing.T, lexer, src string) []token.Token {
	t.Helper()
	l := token.Lookup(lexer)
	require.NotNil(t, l, "lexer %s", lexer)
	tokens, err := l.Tokenize(src)
	require.NoError(t, err)
	return tokens
}

func TestStripWhitespace(t *testing.T) {
	in := []token.Token{
		tok(0, chroma.Name, "a"),
		tok(1, chroma.TextWhitespace, "  \n"),
		tok(4, chroma.Text, "b c"),
		tok(7, chroma.Operator, "="),
	}

	got := StripWhitespace(in)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "bc", "="}, vals(got))
	assert.Equal(t, 4, got[1].Start)
	assert.Equal(t, 7, got[1].End)
	assert.Equal(t, "b c", in[2].Val, "input must not be modified")
}

func TestStripWhitespace_Idempotent(t *testing.T) {
	tokens := lex(t, "python", "def f(x):\n    return  x + 1\n")
	once := StripWhitespace(tokens)
	assert.Equal(t, once, StripWhitespace(once))
}

func TestStripComments_KeepsPreprocessor(t *testing.T) {
	in := []token.Token{
		tok(0, chroma.CommentPreproc, "#include"),
		tok(8, chroma.CommentSingle, "// hi"),
		tok(13, chroma.CommentMultiline, "/* x */"),
		tok(20, chroma.Name, "x"),
	}

	assert.Equal(t, []string{"#include", "x"}, vals(StripComments(in)))
	assert.Equal(t, []string{"// hi", "/* x */"}, vals(Comments(in)))
}

func TestNormalizers(t *testing.T) {
	in := []token.Token{
		tok(0, chroma.KeywordType, "int"),
		tok(3, chroma.NameVariable, "count"),
		tok(8, chroma.NameFunction, "main"),
		tok(12, chroma.LiteralNumberInteger, "42"),
		tok(14, chroma.LiteralNumberHex, "0xff"),
		tok(18, chroma.LiteralNumberFloat, "1.5"),
		tok(21, chroma.LiteralNumber, "1e9"),
		tok(24, chroma.Keyword, "return"),
	}

	got := Pipeline{NormalizeIdentifiers, NormalizeBuiltinTypes, NormalizeNumericLiterals}.Apply(in)
	assert.Equal(t, []string{"t", "v", "v", "INT", "INT", "FLOAT", "NUM", "return"}, vals(got))
	for i := range in {
		assert.Equal(t, in[i].Start, got[i].Start)
		assert.Equal(t, in[i].End, got[i].End)
	}
}

func TestNormalizeStringLiterals_CollapsesRuns(t *testing.T) {
	in := []token.Token{
		tok(0, chroma.Name, "s"),
		tok(1, chroma.LiteralStringDouble, `"`),
		tok(2, chroma.LiteralStringDouble, "hello"),
		tok(7, chroma.LiteralStringEscape, `\n`),
		tok(9, chroma.LiteralStringDouble, `"`),
		tok(10, chroma.Operator, "+"),
		tok(11, chroma.LiteralStringSingle, "'x'"),
	}

	got := NormalizeStringLiterals(in)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"s", `""`, "+", `""`}, vals(got))
	assert.Equal(t, models.Span{Start: 1, End: 10}, models.Span{Start: got[1].Start, End: got[1].End})
	assert.Equal(t, chroma.LiteralString, got[1].Type)
	assert.Equal(t, 11, got[3].Start)
	assert.Equal(t, 14, got[3].End)
}

func TestSplitOnWhitespace(t *testing.T) {
	in := []token.Token{tok(10, chroma.CommentSingle, "# foo  bar")}

	got := SplitOnWhitespace(in)
	require.Len(t, got, 5)
	assert.Equal(t, []string{"#", " ", "foo", "  ", "bar"}, vals(got))
	assert.Equal(t, chroma.TextWhitespace, got[1].Type)
	assert.Equal(t, chroma.CommentSingle, got[2].Type)
	assert.Equal(t, 12, got[2].Start)
	assert.Equal(t, 15, got[2].End)
	assert.Equal(t, 17, got[4].Start)
	assert.Equal(t, 20, got[4].End)

	stripped := StripWhitespace(got)
	assert.Equal(t, []string{"#", "foo", "bar"}, vals(stripped))
}

func TestByCharacter_Multibyte(t *testing.T) {
	in := []token.Token{tok(3, chroma.Text, "aé😀")}

	got := ByCharacter(in)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "é", "😀"}, vals(got))
	assert.Equal(t, 4, got[1].Start)
	assert.Equal(t, 6, got[1].End)
	assert.Equal(t, 6, got[2].Start)
	assert.Equal(t, 10, got[2].End)
}

func TestWords(t *testing.T) {
	in := []token.Token{tok(0, chroma.CommentSingle, "# dont't recieve 'quoted' x2y")}

	got := Words(in)
	assert.Equal(t, []string{"dont't", "recieve", "quoted", "x", "y"}, vals(got))
	assert.Equal(t, 2, got[0].Start)
	assert.Equal(t, 8, got[0].End)
	assert.Equal(t, chroma.CommentSingle, got[0].Type)
}

func TestNormalizeCase(t *testing.T) {
	in := []token.Token{tok(0, chroma.Text, "Recieve"), tok(7, chroma.Text, "ÉTÉ")}
	assert.Equal(t, []string{"recieve", "été"}, vals(NormalizeCase(in)))
}

func TestPipeline_EmptyIsIdentity(t *testing.T) {
	tokens := lex(t, "go", "package main\n")
	assert.Equal(t, tokens, Pipeline(nil).Apply(tokens))
}

func TestPipeline_OffsetsStayInContent(t *testing.T) {
	src := "# greeting\ndef hello(name):\n    print(\"hi \" + name, 3.14)\n"
	tokens := lex(t, "python", src)

	pipelines := map[string]Pipeline{
		"structure":  {StripWhitespace, StripComments, NormalizeIdentifiers, NormalizeBuiltinTypes, NormalizeStringLiterals, NormalizeNumericLiterals},
		"text":       {SplitOnWhitespace, StripWhitespace},
		"nocomments": {StripComments, SplitOnWhitespace, StripWhitespace},
		"words":      {Comments, Words, NormalizeCase},
		"chars":      {ByCharacter},
	}
	for name, p := range pipelines {
		t.Run(name, func(t *testing.T) {
			prev := -1
			for _, tk := range p.Apply(tokens) {
				assert.LessOrEqual(t, 0, tk.Start)
				assert.Less(t, tk.Start, tk.End)
				assert.LessOrEqual(t, tk.End, len(src))
				assert.Greater(t, tk.Start, prev, "tokens must stay ordered")
				prev = tk.Start
			}
		})
	}
}

func TestMissingSpans(t *testing.T) {
	unprocessed := []token.Token{
		tok(0, chroma.CommentSingle, "# c"),
		tok(3, chroma.TextWhitespace, "\n"),
		tok(4, chroma.Name, "x"),
		tok(5, chroma.TextWhitespace, " "),
		tok(6, chroma.Operator, "="),
		tok(7, chroma.TextWhitespace, " "),
		tok(8, chroma.LiteralNumberInteger, "1"),
		tok(9, chroma.TextWhitespace, "\n"),
	}
	processed := Pipeline{StripWhitespace, StripComments}.Apply(unprocessed)

	got := MissingSpans(7, unprocessed, processed)
	assert.Equal(t, []models.Span{
		{File: 7, Start: 0, End: 4},
		{File: 7, Start: 5, End: 6},
		{File: 7, Start: 7, End: 8},
		{File: 7, Start: 9, End: 10},
	}, got)
}

func TestMissingSpans_Boundaries(t *testing.T) {
	assert.Nil(t, MissingSpans(0, nil, nil))

	tokens := []token.Token{tok(0, chroma.Name, "a"), tok(1, chroma.Name, "b")}
	assert.Nil(t, MissingSpans(0, tokens, tokens))
	assert.Equal(t, []models.Span{{File: 0, Start: 0, End: 2}}, MissingSpans(0, tokens, nil))
}

func TestMissingSpans_TilesFile(t *testing.T) {
	src := "/* header */\n#include <stdio.h>\nint main(void) {\n  // say hi\n  printf(\"hi %d\\n\", 42);\n  return 0;\n}\n"
	unprocessed := lex(t, "c", src)
	require.NotEmpty(t, unprocessed)

	pipelines := []Pipeline{
		{StripWhitespace, StripComments, NormalizeIdentifiers, NormalizeBuiltinTypes, NormalizeStringLiterals, NormalizeNumericLiterals},
		{StripComments, SplitOnWhitespace, StripWhitespace},
		{Comments, Words, NormalizeCase},
	}
	for _, p := range pipelines {
		processed := p.Apply(unprocessed)

		var covered []models.Span
		for _, tk := range processed {
			covered = append(covered, models.Span{Start: tk.Start, End: tk.End})
		}
		for _, s := range MissingSpans(0, unprocessed, processed) {
			covered = append(covered, models.Span{Start: s.Start, End: s.End})
		}
		sort.Slice(covered, func(i, j int) bool { return covered[i].Start < covered[j].Start })

		cursor := unprocessed[0].Start
		for _, s := range covered {
			assert.LessOrEqual(t, s.Start, cursor, "gap before %v", s)
			if s.End > cursor {
				cursor = s.End
			}
		}
		assert.Equal(t, unprocessed[len(unprocessed)-1].End, cursor)
	}
}
