// Package scanner discovers submissions and their files on disk.
package scanner

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/rs/zerolog/log"

	"github.com/panbanda/winnow/pkg/config"
	"github.com/panbanda/winnow/pkg/models"
)

// binarySniffLen is how much of a file is checked for NUL bytes.
const binarySniffLen = 8 << 10

// Scanner finds submissions and source files below a root.
type Scanner struct {
	config *config.Config
}

// Found is a discovered submission: its root and its files, sorted.
type Found struct {
	Path  string
	Files []string
}

// NewScanner creates a new scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// Submissions treats every top-level entry of root as one submission.
// Dot entries are skipped, as are submissions left without files.
func (s *Scanner) Submissions(root string) ([]Found, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var found []Found
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(root, e.Name())
		files, err := s.Files(path)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			log.Debug().Str("submission", path).Msg("no files, skipping submission")
			continue
		}
		found = append(found, Found{Path: path, Files: files})
	}
	return found, nil
}

// Files returns every eligible regular file at or below path, sorted.
// A regular file path returns itself when eligible.
func (s *Scanner) Files(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if s.eligible(path, info) {
			return []string{path}, nil
		}
		return nil, nil
	}
	return s.scanDir(path)
}

func (s *Scanner) scanDir(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	matcher := s.matcher(root)
	files := make([]string, 0, 64)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		parts := strings.Split(relPath, string(filepath.Separator))

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				log.Debug().Str("path", path).Msg("symlink leaves submission, skipping")
				return nil
			}
			// WalkDir does not follow symlinks; an in-root target is
			// reached through its real path.
			return nil
		}

		if d.IsDir() {
			if d.Name() == ".git" || (matcher != nil && matcher.Match(parts, true)) {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher != nil && matcher.Match(parts, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		if s.eligible(path, info) {
			files = append(files, path)
		}
		return nil
	})

	slices.Sort(files)
	return files, walkErr
}

// matcher combines the configured exclude patterns with the .gitignore
// files below root when enabled.
func (s *Scanner) matcher(root string) gitignore.Matcher {
	var patterns []gitignore.Pattern
	for _, p := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	if s.config.Exclude.Gitignore {
		gitPatterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
		if err != nil {
			log.Warn().Err(err).Str("root", root).Msg("reading .gitignore files")
		}
		patterns = append(patterns, gitPatterns...)
	}
	if len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}

func (s *Scanner) eligible(path string, info fs.FileInfo) bool {
	if max := s.config.Compare.MaxFileSize; max > 0 && info.Size() > max {
		log.Debug().Str("path", path).Int64("size", info.Size()).Msg("file too large, skipping")
		return false
	}
	binary, err := isBinary(path)
	if err != nil {
		// Left in: the engine reports the read failure with its path.
		return true
	}
	if binary {
		log.Debug().Str("path", path).Msg("binary file, skipping")
		return false
	}
	return true
}

func isBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, binarySniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}
	return bytes.IndexByte(buf[:n], 0) >= 0, nil
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// Register adds the found submissions to reg. File names are relative to
// their submission root; a single-file submission uses the base name.
func Register(reg *models.Registry, found []Found, archive bool) []*models.Submission {
	subs := make([]*models.Submission, 0, len(found))
	for _, f := range found {
		files := make([]*models.File, 0, len(f.Files))
		for _, path := range f.Files {
			files = append(files, reg.Files.Add(path, relName(f.Path, path)))
		}
		subs = append(subs, reg.Submissions.Add(f.Path, files, archive))
	}
	return subs
}

// RegisterFiles adds loose files, such as distro files, to reg.
func RegisterFiles(reg *models.Registry, root string, paths []string) []*models.File {
	files := make([]*models.File, 0, len(paths))
	for _, path := range paths {
		files = append(files, reg.Files.Add(path, relName(root, path)))
	}
	return files
}

func relName(root, path string) string {
	if root == path {
		return filepath.Base(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
