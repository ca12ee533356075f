// Package storage manages the directories that hold uploaded images and generated artifacts and maps their files
// to the URL paths they are served under.
package storage

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/random"
)

var ErrOutsideDir = errors.NewSentinel("path outside directory")

const (
	suffixLength uint = 6
	maxAttempts       = 10
)

// Dir is a flat directory served under URLPrefix, e.g. "uploads" served under "/uploads".
type Dir struct {
	root      string
	urlPrefix string
}

// NewDir creates root if needed.
func NewDir(root, urlPrefix string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil { //nolint:mnd // world-readable, served statically
		return nil, errors.Wrap(err, "create directory", slog.String("root", root))
	}
	return &Dir{root: root, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

// Root returns the directory on disk.
func (d *Dir) Root() string {
	return d.root
}

// URLPrefix returns the URL path the directory is served under.
func (d *Dir) URLPrefix() string {
	return d.urlPrefix
}

// Reservation is an empty file created exclusively for a new artifact.
type Reservation struct {
	// DiskPath is where the artifact is written.
	DiskPath string
	// URLPath is where the artifact is served.
	URLPath string
}

// Reserve creates an empty file named stem + ext. If the name is taken, for example by a submission within the same
// second, a random suffix is appended to the stem.
func (d *Dir) Reserve(stem, ext string) (Reservation, error) {
	name := stem + ext
	for range maxAttempts {
		f, err := os.OpenFile(filepath.Join(d.root, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:mnd,gosec // served statically
		if err == nil {
			if err = f.Close(); err != nil {
				return Reservation{}, errors.Wrap(err, "close reserved file", slog.String("name", name))
			}
			return Reservation{
				DiskPath: filepath.Join(d.root, name),
				URLPath:  path.Join(d.urlPrefix, name),
			}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return Reservation{}, errors.Wrap(err, "create file", slog.String("name", name))
		}
		suffix, err := random.Letters(suffixLength)
		if err != nil {
			return Reservation{}, errors.Wrap(err, "generate suffix")
		}
		name = stem + "_" + suffix + ext
	}
	return Reservation{}, errors.New("no free file name", slog.String("stem", stem), slog.String("ext", ext))
}

// Save reserves a file name and copies r into it. The reserved file is removed if the copy fails.
func (d *Dir) Save(stem, ext string, r io.Reader) (Reservation, error) {
	res, err := d.Reserve(stem, ext)
	if err != nil {
		return Reservation{}, err
	}
	if err = writeFile(res.DiskPath, r); err != nil {
		d.Discard(res)
		return Reservation{}, errors.Wrap(err, "write file", slog.String("path", res.DiskPath))
	}
	return res, nil
}

// Discard removes a reserved file, for example after a failed render. Missing files are ignored.
func (d *Dir) Discard(res Reservation) {
	_ = os.Remove(res.DiskPath)
}

// Resolve maps a URL path served from this directory back to its file on disk.
//
// URL paths come from form input, so anything that is not a plain file name directly under the URL prefix is
// rejected with ErrOutsideDir.
func (d *Dir) Resolve(urlPath string) (string, error) {
	name, ok := strings.CutPrefix(urlPath, d.urlPrefix+"/")
	if !ok || name == "" || name != path.Base(name) || name == ".." || name == "." || strings.ContainsAny(name, `\`) {
		return "", errors.Wrap(ErrOutsideDir, "resolve", slog.String("url_path", urlPath))
	}
	return filepath.Join(d.root, name), nil
}

func writeFile(name string, r io.Reader) (err error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer func() {
		err = errors.Join(err, errors.Wrap(f.Close(), "close"))
	}()
	if _, err = io.Copy(f, r); err != nil {
		return errors.Wrap(err, "copy")
	}
	return nil
}
