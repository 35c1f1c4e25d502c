package source

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// DirectorySource walks a directory tree in pre-order, lexical order within
// each directory. The root itself is not yielded.
type DirectorySource struct {
	root  string
	stack []string

	// absRoot and skip are absolute, cleaned paths.
	absRoot string
	skip    map[string]bool
}

// OpenDirectory opens root for iteration. root must be an existing directory.
func OpenDirectory(root string, opts ...Option) (*DirectorySource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: root, Err: fmt.Errorf("not a directory or zip archive")}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	d := &DirectorySource{root: root, skip: make(map[string]bool, len(o.skip))}
	if d.absRoot, err = filepath.Abs(root); err != nil {
		return nil, err
	}
	for _, dir := range o.skip {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		d.skip[abs] = true
	}
	if err := d.push(""); err != nil {
		return nil, err
	}
	return d, nil
}

// push queues the children of dir so that the lexically first is popped first.
func (d *DirectorySource) push(dir string) error {
	entries, err := os.ReadDir(filepath.Join(d.root, filepath.FromSlash(dir)))
	if err != nil {
		return err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		d.stack = append(d.stack, path.Join(dir, entries[i].Name()))
	}
	return nil
}

// Next implements Source.
func (d *DirectorySource) Next() (Entry, error) {
	for len(d.stack) > 0 {
		name := d.stack[len(d.stack)-1]
		d.stack = d.stack[:len(d.stack)-1]
		full := filepath.Join(d.root, filepath.FromSlash(name))

		linfo, err := os.Lstat(full)
		if err != nil {
			return Entry{}, err
		}

		switch {
		case linfo.IsDir():
			if d.skip[filepath.Join(d.absRoot, filepath.FromSlash(name))] {
				continue
			}
			if err := d.push(name); err != nil {
				return Entry{}, err
			}
			return Entry{Name: name, IsDir: true}, nil

		case linfo.Mode()&fs.ModeSymlink != 0:
			// Follow links to files, never to directories.
			info, err := os.Stat(full)
			if err != nil {
				return Entry{}, err
			}
			if !info.Mode().IsRegular() {
				continue
			}

		case !linfo.Mode().IsRegular():
			continue
		}

		data, err := os.ReadFile(full)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Name: name, Data: data}, nil
	}
	return Entry{}, io.EOF
}

// Kind implements Source.
func (d *DirectorySource) Kind() Kind { return KindDirectory }

// Close implements Source.
func (d *DirectorySource) Close() error {
	d.stack = nil
	return nil
}
