package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/winnow/internal/archive"
	"github.com/panbanda/winnow/pkg/config"
)

const program = `def add(a, b):
    total = a + b
    return total


def main():
    print(add(1, 2))
`

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// smallConfig writes a config with fingerprint sizes suited to tiny files.
func smallConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "winnow.toml")
	content := `
passes = ["structure"]

[winnowing.structure]
k = 4
t = 6

[winnowing.text]
k = 3
t = 4

[output]
color = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"winnow"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

type jsonRun struct {
	Passes []struct {
		Pass  string `json:"pass"`
		Pairs []struct {
			SubA    string  `json:"sub_a"`
			SubB    string  `json:"sub_b"`
			Archive bool    `json:"archive"`
			Score   float64 `json:"score"`
			Groups  int     `json:"groups"`
			Report  string  `json:"report"`
		} `json:"pairs"`
	} `json:"passes"`
	ReportDir string `json:"report_dir"`
}

func decodeRun(t *testing.T, stdout string) jsonRun {
	t.Helper()
	var got jsonRun
	require.NoError(t, json.Unmarshal([]byte(stdout), &got), stdout)
	return got
}

func TestList(t *testing.T) {
	code, stdout, _ := runCLI(t, "--list")
	assert.Equal(t, exitOK, code)
	for _, name := range []string{"structure", "text", "exact", "nocomments", "misspellings"} {
		assert.Contains(t, stdout, name)
	}
}

func TestList_IgnoresBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "winnow.toml"), []byte("passes = [unterminated"), 0o644))
	t.Chdir(dir)

	code, stdout, stderr := runCLI(t, "--list")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "structure")

	code, _, _ = runCLI(t, dir)
	assert.Equal(t, exitUserError, code)
}

func TestUserErrors(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(t.TempDir(), "answer.py")
	require.NoError(t, os.WriteFile(plain, []byte(program), 0o644))
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing path", nil, "PATH"},
		{"unknown pass", []string{"-p", "fuzzy", dir}, "unknown pass"},
		{"nonexistent path", []string{filepath.Join(dir, "nope")}, "no such file"},
		{"bad format", []string{"-f", "xml", dir}, "output.format"},
		{"missing config", []string{"-c", filepath.Join(dir, "nope.toml"), dir}, "nope.toml"},
		{"extra args", []string{dir, dir}, "expected one PATH"},
		{"plain file path", []string{plain}, "not a directory or supported archive"},
		{"plain file archive", []string{"-a", plain, dir}, "not a directory or supported archive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, exitUserError, code)
			assert.Contains(t, stderr, tt.want)
			assert.Equal(t, 1, strings.Count(strings.TrimSpace(stderr), "Error:"))
		})
	}
}

func TestCompareIdenticalSubmissions(t *testing.T) {
	subs := t.TempDir()
	writeTree(t, subs, map[string]string{
		"alice/main.py": program,
		"bob/prog.py":   program,
		"carol/main.py": "import sys\nsys.exit(0)\n",
	})
	out := filepath.Join(t.TempDir(), "report")

	code, stdout, stderr := runCLI(t, "-c", smallConfig(t), "-f", "json", "-o", out, subs)
	require.Equal(t, exitOK, code, stderr)

	got := decodeRun(t, stdout)
	require.Len(t, got.Passes, 1)
	assert.Equal(t, "structure", got.Passes[0].Pass)
	require.NotEmpty(t, got.Passes[0].Pairs)

	top := got.Passes[0].Pairs[0]
	assert.Equal(t, filepath.Join(subs, "alice"), top.SubA)
	assert.Equal(t, filepath.Join(subs, "bob"), top.SubB)
	assert.Positive(t, top.Score)
	assert.GreaterOrEqual(t, top.Groups, 1)
	assert.Equal(t, "structure/match_1.html", top.Report)

	assert.Equal(t, out, got.ReportDir)
	assert.FileExists(t, filepath.Join(out, "index.html"))
	assert.FileExists(t, filepath.Join(out, "structure", "match_1.html"))
}

func TestCompareDistroAndArchive(t *testing.T) {
	subs := t.TempDir()
	writeTree(t, subs, map[string]string{
		"alice/main.py": program,
		"bob/main.py":   program,
	})
	distro := t.TempDir()
	writeTree(t, distro, map[string]string{"skeleton.py": program})

	code, stdout, stderr := runCLI(t, "-c", smallConfig(t), "-f", "json", "-o", "", "-d", distro, subs)
	require.Equal(t, exitOK, code, stderr)
	got := decodeRun(t, stdout)
	assert.Empty(t, got.Passes[0].Pairs, "distro code must not be scored")
	assert.Empty(t, got.ReportDir)

	current := t.TempDir()
	writeTree(t, current, map[string]string{"dave/main.py": program})
	past := t.TempDir()
	writeTree(t, past, map[string]string{
		"2023-alice/main.py": program,
		"2023-bob/main.py":   program,
	})

	code, stdout, stderr = runCLI(t, "-c", smallConfig(t), "-f", "json", "-o", "", "-a", past, current)
	require.Equal(t, exitOK, code, stderr)
	got = decodeRun(t, stdout)
	require.Len(t, got.Passes[0].Pairs, 2, "archive submissions pair with current ones only")
	for _, p := range got.Passes[0].Pairs {
		assert.True(t, p.Archive)
		assert.Equal(t, filepath.Join(current, "dave"), p.SubA)
	}
}

func TestCompareArchiveInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subs.zip")

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range []string{"course/alice/main.py", "course/bob/main.py"} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(program))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	code, stdout, stderr := runCLI(t, "-c", smallConfig(t), "-f", "json", "-o", "", path)
	require.Equal(t, exitOK, code, stderr)
	got := decodeRun(t, stdout)
	require.Len(t, got.Passes[0].Pairs, 1)
	assert.Equal(t, "alice", filepath.Base(got.Passes[0].Pairs[0].SubA))

	corrupt := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(corrupt, []byte("nope"), 0o644))
	code, _, _ = runCLI(t, corrupt)
	assert.Equal(t, exitUserError, code)
}

func TestCompareMultiplePassesText(t *testing.T) {
	subs := t.TempDir()
	writeTree(t, subs, map[string]string{
		"alice/main.py": program,
		"bob/main.py":   program,
	})

	code, stdout, stderr := runCLI(t, "-c", smallConfig(t), "-o", "", "-p", "text", "-p", "structure", "--sequential", subs)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Pass: text")
	assert.Contains(t, stdout, "Pass: structure")
	assert.Less(t, strings.Index(stdout, "Pass: text"), strings.Index(stdout, "Pass: structure"))
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "winnow.toml")

	code, stdout, _ := runCLI(t, "init", "-o", path)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Wrote")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Compare.Top, cfg.Compare.Top)

	code, _, stderr := runCLI(t, "init", "-o", path)
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "file exists")

	code, _, _ = runCLI(t, "init", "-o", path, "--force")
	assert.Equal(t, exitOK, code)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitUserError, exitCode(config.Errorf("pass", "bad")))
	assert.Equal(t, exitUserError, exitCode(fmt.Errorf("wrapped: %w", &archive.Error{Path: "a.zip", Err: archive.ErrUnsupported})))
	assert.Equal(t, exitFailure, exitCode(errors.New("boom")))
	assert.Equal(t, exitFailure, exitCode(context.Canceled))
}
