package models

import (
	"io"
	"path/filepath"
	"sync"

	"github.com/panbanda/winnow/pkg/source"
	"github.com/panbanda/winnow/pkg/token"
	"github.com/zeebo/blake3"
)

// File identifies one file of a submission. Files with the same path share
// an ID. The token stream is produced on demand and never cached here.
type File struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
	Name string `json:"name"` // relative to the submission root

	once   sync.Once
	lexer  *token.Lexer
	lexErr error
}

// Read returns the file content.
func (f *File) Read(src source.ContentSource) (string, error) {
	data, err := src.Read(f.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Lexer resolves the file's lexer, first by file name, then by content and
// finally falling back to plain text. It is safe for concurrent use.
func (f *File) Lexer(src source.ContentSource) (*token.Lexer, error) {
	f.once.Do(func() {
		if l := token.Match(filepath.Base(f.Path)); l != nil {
			f.lexer = l
			return
		}
		content, err := f.Read(src)
		if err != nil {
			f.lexErr = err
			return
		}
		if f.lexer = token.Analyse(content); f.lexer == nil {
			f.lexer = token.Fallback()
		}
	})
	return f.lexer, f.lexErr
}

// Tokens reads and lexes the file, returning its content and token stream.
func (f *File) Tokens(src source.ContentSource) (string, []token.Token, error) {
	lexer, err := f.Lexer(src)
	if err != nil {
		return "", nil, err
	}
	content, err := f.Read(src)
	if err != nil {
		return "", nil, err
	}
	tokens, err := lexer.Tokenize(content)
	if err != nil {
		return content, nil, err
	}
	return content, tokens, nil
}

// Submission is an ordered collection of files under a root path. Archive
// submissions are historical: they are compared against current submissions
// but never against each other.
type Submission struct {
	ID      int     `json:"id"`
	Path    string  `json:"path"`
	Files   []*File `json:"files"`
	Archive bool    `json:"archive"`
}

// Name returns the base name of the submission root.
func (s *Submission) Name() string {
	return filepath.Base(s.Path)
}

// FileStore assigns dense IDs to files by path.
type FileStore struct {
	mu     sync.RWMutex
	byPath map[string]*File
	files  []*File
}

// NewFileStore creates an empty file store.
func NewFileStore() *FileStore {
	return &FileStore{byPath: make(map[string]*File)}
}

// Add returns the file registered for path, registering it if needed.
func (s *FileStore) Add(path, name string) *File {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.byPath[path]; ok {
		return f
	}
	f := &File{ID: len(s.files), Path: path, Name: name}
	s.byPath[path] = f
	s.files = append(s.files, f)
	return f
}

// Get returns the file with the given ID, or nil.
func (s *FileStore) Get(id int) *File {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 0 || id >= len(s.files) {
		return nil
	}
	return s.files[id]
}

// Len returns the number of registered files.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// SubmissionStore assigns dense IDs to submissions keyed by their root path
// and file list.
type SubmissionStore struct {
	mu    sync.RWMutex
	byKey map[[32]byte]*Submission
	subs  []*Submission
}

// NewSubmissionStore creates an empty submission store.
func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{byKey: make(map[[32]byte]*Submission)}
}

// Add returns the submission registered for (path, files), registering it
// if needed. Registering the same submission once as current and once as
// archive is a programming error.
func (s *SubmissionStore) Add(path string, files []*File, archive bool) *Submission {
	key := submissionKey(path, files)

	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.byKey[key]; ok {
		if sub.Archive != archive {
			panic("models: submission " + path + " registered as both archive and current")
		}
		return sub
	}
	sub := &Submission{ID: len(s.subs), Path: path, Files: files, Archive: archive}
	s.byKey[key] = sub
	s.subs = append(s.subs, sub)
	return sub
}

// Get returns the submission with the given ID, or nil.
func (s *SubmissionStore) Get(id int) *Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 0 || id >= len(s.subs) {
		return nil
	}
	return s.subs[id]
}

// Len returns the number of registered submissions.
func (s *SubmissionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func submissionKey(path string, files []*File) [32]byte {
	h := blake3.New()
	io.WriteString(h, path)
	for _, f := range files {
		h.Write([]byte{0})
		io.WriteString(h, f.Path)
	}
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

// Registry holds the file and submission stores of one run. It is filled
// during discovery and read-only once comparison starts.
type Registry struct {
	Files       *FileStore
	Submissions *SubmissionStore
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		Files:       NewFileStore(),
		Submissions: NewSubmissionStore(),
	}
}
