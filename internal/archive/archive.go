// Package archive unpacks submission archives into a directory.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
	"github.com/ulikunitz/xz"
)

// ErrUnsupported is returned for files whose extension is not a known
// archive format.
var ErrUnsupported = errors.New("unsupported archive format")

// Error reports an archive that could not be unpacked.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type format int

const (
	formatNone format = iota
	formatZip
	formatTar
	formatTarGz
	formatTarBz2
	formatTarXz
	formatBz2
	formatXz
	format7z
)

func detect(path string) format {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".zip"):
		return formatZip
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return formatTarGz
	case strings.HasSuffix(name, ".tar.bz2"):
		return formatTarBz2
	case strings.HasSuffix(name, ".tar.xz"):
		return formatTarXz
	case strings.HasSuffix(name, ".tar"):
		return formatTar
	case strings.HasSuffix(name, ".bz2"):
		return formatBz2
	case strings.HasSuffix(name, ".xz"):
		return formatXz
	case strings.HasSuffix(name, ".7z"):
		return format7z
	}
	return formatNone
}

// IsArchive reports whether path has a supported archive extension.
func IsArchive(path string) bool {
	return detect(path) != formatNone
}

// Extract unpacks the archive at path into dest, creating dest if needed.
// Entries that would land outside dest are rejected.
func Extract(path, dest string) error {
	f := detect(path)
	if f == formatNone {
		return &Error{Path: path, Err: ErrUnsupported}
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	var err error
	switch f {
	case formatZip:
		err = extractZip(path, dest)
	case format7z:
		err = extract7z(path, dest)
	default:
		err = extractStream(path, dest, f)
	}
	if err != nil {
		return &Error{Path: path, Err: err}
	}
	log.Debug().Str("archive", path).Str("dest", dest).Msg("extracted")
	return nil
}

// ExtractTemp unpacks path into a fresh temporary directory and returns the
// submissions root: the single top-level directory of the archive when it
// holds nothing else, the temporary directory otherwise.
func ExtractTemp(path string) (root string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "winnow-")
	if err != nil {
		return "", nil, err
	}
	cleanup = func() { os.RemoveAll(dir) }
	if err := Extract(path, dir); err != nil {
		cleanup()
		return "", nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), cleanup, nil
	}
	return dir, cleanup, nil
}

func extractZip(path, dest string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, zf := range r.File {
		if err := writeEntry(dest, zf.Name, zf.Mode(), zf.Open); err != nil {
			return err
		}
	}
	return nil
}

func extract7z(path, dest string) error {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, sf := range r.File {
		if err := writeEntry(dest, sf.Name, sf.Mode(), sf.Open); err != nil {
			return err
		}
	}
	return nil
}

func extractStream(path, dest string, f format) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var r io.Reader = file
	switch f {
	case formatTarGz:
		gz, err := gzip.NewReader(file)
		if err != nil {
			return err
		}
		defer gz.Close()
		r = gz
	case formatTarBz2, formatBz2:
		r = bzip2.NewReader(file)
	case formatTarXz, formatXz:
		xr, err := xz.NewReader(file)
		if err != nil {
			return err
		}
		r = xr
	}

	if f == formatBz2 || f == formatXz {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return writeEntry(dest, name, 0o644, func() (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		})
	}
	return extractTar(r, dest)
}

func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir, tar.TypeReg:
		default:
			// Links and devices are not submission content.
			continue
		}
		err = writeEntry(dest, hdr.Name, hdr.FileInfo().Mode(), func() (io.ReadCloser, error) {
			return io.NopCloser(tr), nil
		})
		if err != nil {
			return err
		}
	}
}

func writeEntry(dest, name string, mode fs.FileMode, open func() (io.ReadCloser, error)) error {
	target, err := safeJoin(dest, name)
	if err != nil {
		return err
	}
	if mode.IsDir() || strings.HasSuffix(name, "/") {
		return os.MkdirAll(target, 0o755)
	}
	if !mode.IsRegular() {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// safeJoin resolves an entry name below dest, rejecting absolute names and
// names climbing out of dest.
func safeJoin(dest, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes the destination", name)
	}
	return filepath.Join(dest, clean), nil
}
