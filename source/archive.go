package source

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
)

// ArchiveSource yields the entries of a zip archive in archive order.
// Directories missing from the archive, or listed after their contents, are
// synthesized just before the first entry that needs them.
type ArchiveSource struct {
	r       *zip.ReadCloser
	next    int
	seen    map[string]bool
	pending []Entry
}

// OpenArchive opens the zip archive at name.
func OpenArchive(name string) (*ArchiveSource, error) {
	r, err := zip.OpenReader(name)
	if err != nil {
		return nil, err
	}
	return &ArchiveSource{r: r, seen: make(map[string]bool)}, nil
}

// Len returns the number of file entries in the archive.
func (a *ArchiveSource) Len() int {
	n := 0
	for _, f := range a.r.File {
		if !strings.HasSuffix(f.Name, "/") {
			n++
		}
	}
	return n
}

// Next implements Source.
func (a *ArchiveSource) Next() (Entry, error) {
	for {
		if len(a.pending) > 0 {
			e := a.pending[0]
			a.pending = a.pending[1:]
			return e, nil
		}
		if a.next >= len(a.r.File) {
			return Entry{}, io.EOF
		}

		f := a.r.File[a.next]
		a.next++

		clean, isDir, err := cleanName(f.Name)
		if err != nil {
			return Entry{}, err
		}
		if clean == "." {
			continue
		}

		a.queueParents(clean)

		if isDir {
			if a.seen[clean] {
				continue
			}
			a.seen[clean] = true
			a.pending = append(a.pending, Entry{Name: clean + "/", IsDir: true})
			continue
		}

		data, err := readFile(f)
		if err != nil {
			return Entry{}, err
		}
		a.pending = append(a.pending, Entry{Name: clean, Data: data})
	}
}

// cleanName normalizes an archive entry name such as "./a//b/" to "a/b".
// Names that are absolute or climb above the archive root are unsafe. A
// directory that cleans to "." is the root itself.
func cleanName(name string) (string, bool, error) {
	isDir := strings.HasSuffix(name, "/")
	if strings.HasPrefix(name, "/") {
		return "", false, fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") || (clean == "." && !isDir) {
		return "", false, fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return clean, isDir, nil
}

// queueParents queues directory entries for the not yet seen ancestors of
// name, outermost first.
func (a *ArchiveSource) queueParents(name string) {
	var missing []string
	for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
		if a.seen[dir] {
			break
		}
		missing = append(missing, dir)
	}
	for i := len(missing) - 1; i >= 0; i-- {
		a.seen[missing[i]] = true
		a.pending = append(a.pending, Entry{Name: missing[i] + "/", IsDir: true})
	}
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

// Kind implements Source.
func (a *ArchiveSource) Kind() Kind { return KindArchive }

// Close implements Source.
func (a *ArchiveSource) Close() error {
	return a.r.Close()
}
