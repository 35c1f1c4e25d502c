// Package source iterates the images of a batch input: either a directory
// tree or a zip archive.
//
// Entries are yielded ancestors first: every directory containing a file is
// yielded before that file, so a consumer can create output directories as
// it goes.
package source

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for entry names that are absolute or escape the
// input root.
var ErrUnsafePath = errors.New("unsafe entry path")

// Kind identifies the concrete Source implementation.
type Kind int

const (
	KindDirectory Kind = iota
	KindArchive
)

func (k Kind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	default:
		return "directory"
	}
}

// Entry is one item of a Source. Name is slash separated and relative to the
// input root. Directory entries carry no Data.
type Entry struct {
	Name  string
	IsDir bool
	Data  []byte
}

// Source yields entries until Next returns io.EOF. It is single pass.
type Source interface {
	Next() (Entry, error)
	Kind() Kind
	Close() error
}

// Lener is implemented by sources that know their file count up front.
type Lener interface {
	Len() int
}

// Option configures Open.
type Option func(*options)

type options struct {
	skip []string
}

// SkipDir excludes dir and everything below it from a directory walk. It is
// typically the output directory when that lies inside the input tree. dir
// need not exist yet. Archives ignore it.
func SkipDir(dir string) Option {
	return func(o *options) {
		o.skip = append(o.skip, dir)
	}
}

// KindOf reports which Source Open would pick for path.
func KindOf(path string) Kind {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return KindArchive
	}
	return KindDirectory
}

// Open returns a Source for path, chosen by KindOf.
func Open(path string, opts ...Option) (Source, error) {
	switch KindOf(path) {
	case KindArchive:
		return OpenArchive(path)
	default:
		return OpenDirectory(path, opts...)
	}
}

// Len returns the number of file entries src will yield, or -1 if unknown.
func Len(src Source) int {
	if l, ok := src.(Lener); ok {
		return l.Len()
	}
	return -1
}
