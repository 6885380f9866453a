// Package adapter contains the infrastructure ports of the mod importer:
// content file access, file watching, run report persistence and metrics.
package adapter

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

// ContentFSAdapter is the domain's view of the game content root. Every
// path is relative to that root, so nothing outside it can be reached.
//
//nolint:interfacebloat // one port for all content access keeps the domain testable in memory.
type ContentFSAdapter interface {
	// ReadFile loads a file.
	ReadFile(path m.Path) ([]byte, error)

	// WriteFile replaces a file atomically, creating parent directories.
	WriteFile(path m.Path, content []byte) error

	// AppendFile appends to a file, creating it if needed.
	AppendFile(path m.Path, content []byte) error

	// CopyFile copies src over dst atomically.
	CopyFile(src, dst m.Path) error

	// Remove deletes a file or an empty directory.
	Remove(path m.Path) error

	// RemoveIfEmpty deletes a directory when it has no entries and reports
	// whether it did.
	RemoveIfEmpty(path m.Path) (bool, error)

	// MkdirAll creates a directory and its parents.
	MkdirAll(path m.Path) error

	// Exists reports whether a file or directory is present.
	Exists(path m.Path) bool

	// IsDir reports whether path is a directory.
	IsDir(path m.Path) bool

	// ReadDir lists a directory's entries sorted by name.
	ReadDir(path m.Path) ([]m.Path, error)

	// Walk visits root and everything below it in lexical order.
	Walk(root m.Path, fn WalkFunc) error

	// HashFile returns the SHA-256 of a file.
	HashFile(path m.Path) (string, error)

	// Root returns the OS directory the adapter is rooted at, or "" for
	// in-memory filesystems.
	Root() string
}

// WalkFunc receives every visited path. Returning filepath.SkipDir on a
// directory skips it.
type WalkFunc func(path m.Path, info os.FileInfo, err error) error

const (
	dirPerm  = 0o755
	filePerm = 0o644
	tmpExt   = ".modimporter-tmp"
)

// LocalContentFSAdapter implements ContentFSAdapter on an afero filesystem.
type LocalContentFSAdapter struct {
	fs   afero.Fs
	root string
}

// NewLocalContentFSAdapter roots the adapter at an OS directory.
func NewLocalContentFSAdapter(root string) *LocalContentFSAdapter {
	return &LocalContentFSAdapter{
		fs:   afero.NewBasePathFs(afero.NewOsFs(), root),
		root: root,
	}
}

// NewContentFSAdapter wraps an arbitrary afero filesystem, e.g. a
// MemMapFs in tests.
func NewContentFSAdapter(fsys afero.Fs) *LocalContentFSAdapter {
	return &LocalContentFSAdapter{fs: fsys}
}

func name(p m.Path) string {
	s := strings.TrimPrefix(string(p), "/")
	if s == "" || s == "." {
		return "/"
	}

	return "/" + s
}

func fromName(n string) m.Path {
	return m.NormalizePath(strings.TrimPrefix(filepath.ToSlash(n), "/"))
}

// Root returns the OS root directory.
func (a *LocalContentFSAdapter) Root() string {
	return a.root
}

// ReadFile loads a file.
func (a *LocalContentFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return afero.ReadFile(a.fs, name(path))
}

// WriteFile writes to a sibling temp file and renames it into place.
func (a *LocalContentFSAdapter) WriteFile(path m.Path, content []byte) error {
	if err := a.MkdirAll(path.Dir()); err != nil {
		return err
	}

	tmp := name(path) + tmpExt
	if err := afero.WriteFile(a.fs, tmp, content, filePerm); err != nil {
		return err
	}

	if err := a.fs.Rename(tmp, name(path)); err != nil {
		_ = a.fs.Remove(tmp)
		return err
	}

	return nil
}

// AppendFile appends content to path.
func (a *LocalContentFSAdapter) AppendFile(path m.Path, content []byte) error {
	if err := a.MkdirAll(path.Dir()); err != nil {
		return err
	}

	f, err := a.fs.OpenFile(name(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// CopyFile copies src over dst.
func (a *LocalContentFSAdapter) CopyFile(src, dst m.Path) error {
	data, err := a.ReadFile(src)
	if err != nil {
		return err
	}

	return a.WriteFile(dst, data)
}

// Remove deletes path.
func (a *LocalContentFSAdapter) Remove(path m.Path) error {
	return a.fs.Remove(name(path))
}

// RemoveIfEmpty deletes an empty directory.
func (a *LocalContentFSAdapter) RemoveIfEmpty(path m.Path) (bool, error) {
	empty, err := afero.IsEmpty(a.fs, name(path))
	if err != nil || !empty {
		return false, err
	}

	if err := a.fs.Remove(name(path)); err != nil {
		return false, err
	}

	return true, nil
}

// MkdirAll creates a directory tree.
func (a *LocalContentFSAdapter) MkdirAll(path m.Path) error {
	return a.fs.MkdirAll(name(path), dirPerm)
}

// Exists reports whether path is present.
func (a *LocalContentFSAdapter) Exists(path m.Path) bool {
	ok, err := afero.Exists(a.fs, name(path))
	return err == nil && ok
}

// IsDir reports whether path is a directory.
func (a *LocalContentFSAdapter) IsDir(path m.Path) bool {
	ok, err := afero.IsDir(a.fs, name(path))
	return err == nil && ok
}

// ReadDir lists entries sorted by name, skipping leftover temp files.
func (a *LocalContentFSAdapter) ReadDir(path m.Path) ([]m.Path, error) {
	infos, err := afero.ReadDir(a.fs, name(path))
	if err != nil {
		return nil, err
	}

	out := make([]m.Path, 0, len(infos))

	for _, info := range infos {
		if strings.HasSuffix(info.Name(), tmpExt) {
			continue
		}

		out = append(out, path.Join(info.Name()))
	}

	return out, nil
}

// Walk visits root and its descendants.
func (a *LocalContentFSAdapter) Walk(root m.Path, fn WalkFunc) error {
	return afero.Walk(a.fs, name(root), func(p string, info os.FileInfo, err error) error {
		return fn(fromName(p), info, err)
	})
}

// HashFile returns the hex SHA-256 of path.
func (a *LocalContentFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := a.fs.Open(name(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// IsNotExist reports whether err means a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
