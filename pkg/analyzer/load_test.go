package analyzer

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/winnow/internal/fileproc"
	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/preprocess"
	"github.com/panbanda/winnow/pkg/source"
)

func testInput(src source.ContentSource) *Input {
	return &Input{
		Source:     src,
		Preprocess: preprocess.Pipeline{preprocess.StripWhitespace},
		Executor:   fileproc.Sequential(),
	}
}

func TestMapFiles_TokenizesInOrder(t *testing.T) {
	reg := models.NewRegistry()
	src := source.NewMemory(map[string]string{
		"/s/a/main.py": "x = 1\n",
		"/s/b/main.go": "package main\n",
		"/s/c/notes":   "",
	})
	files := []*models.File{
		reg.Files.Add("/s/a/main.py", "main.py"),
		reg.Files.Add("/s/b/main.go", "main.go"),
		reg.Files.Add("/s/c/notes", "notes"),
	}

	tracker := NewTracker(nil)
	ctx := WithTracker(context.Background(), tracker)

	got, err := MapFiles(ctx, testInput(src), files, func(tf *TokenizedFile) (*TokenizedFile, error) {
		return tf, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Python", got[0].Family)
	assert.NotEmpty(t, got[0].Tokens)
	assert.Less(t, len(got[0].Tokens), len(got[0].Raw), "whitespace stripped")
	assert.Equal(t, "Go", got[1].Family)
	assert.NotEmpty(t, got[2].Family, "unknown files still get a family")
	assert.Empty(t, got[2].Tokens)

	families := Families(got)
	assert.Len(t, families, 3)
	assert.Subset(t, families, []string{"Go", "Python"})
	assert.Equal(t, 3, tracker.Current())
}

func TestMapFiles_UnreadableFile(t *testing.T) {
	reg := models.NewRegistry()
	files := []*models.File{reg.Files.Add("/gone.py", "gone.py")}
	in := testInput(source.NewMemory(nil))

	_, err := MapFiles(context.Background(), in, files, func(tf *TokenizedFile) (int, error) {
		return 1, nil
	})
	var fe *fileproc.FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "/gone.py", fe.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	in.SkipUnreadable = true
	got, err := MapFiles(context.Background(), in, files, func(tf *TokenizedFile) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, got)
}

func TestTokenizedFile_Missing(t *testing.T) {
	reg := models.NewRegistry()
	f := reg.Files.Add("/s/a/main.py", "main.py")
	src := source.NewMemory(map[string]string{"/s/a/main.py": "x  =  1"})

	tf, err := Tokenize(f, testInput(src))
	require.NoError(t, err)

	for _, s := range tf.Missing() {
		assert.Equal(t, f.ID, s.File)
		for _, tk := range tf.Tokens {
			assert.False(t, s.Overlaps(models.Span{File: f.ID, Start: tk.Start, End: tk.End}))
		}
	}
	assert.NotEmpty(t, tf.Missing())
}

func TestSubmissionFiles_Distinct(t *testing.T) {
	reg := models.NewRegistry()
	a := reg.Files.Add("/a", "a")
	b := reg.Files.Add("/b", "b")
	s1 := &models.Submission{ID: 0, Files: []*models.File{a, b}}
	s2 := &models.Submission{ID: 1, Files: []*models.File{b}}

	assert.Equal(t, []*models.File{a, b}, SubmissionFiles([]*models.Submission{s1}, []*models.Submission{s2}))
}
