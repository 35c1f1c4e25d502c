package source

import (
	"archive/zip"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type zipEntry struct {
	name string
	data string
}

func writeZip(t *testing.T, entries []zipEntry) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "input.zip")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("zip create %s: %v", e.name, err)
		}
		if _, err := io.WriteString(w, e.data); err != nil {
			t.Fatalf("zip write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return p
}

func touch(t *testing.T, root, name, data string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// drain returns every entry as "name" for directories and "name=data" for
// files.
func drain(t *testing.T, src Source) []string {
	t.Helper()
	var got []string
	for {
		e, err := src.Next()
		if err == io.EOF {
			return got
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if e.IsDir {
			if e.Data != nil {
				t.Errorf("directory %s carries data", e.Name)
			}
			got = append(got, e.Name)
		} else {
			got = append(got, e.Name+"="+string(e.Data))
		}
	}
}

func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"photos", KindDirectory},
		{"photos.zip", KindArchive},
		{"PHOTOS.ZIP", KindArchive},
		{"dir.zip/inner", KindDirectory},
		{"archive.tar.gz", KindDirectory},
	}
	for _, tt := range tests {
		if got := KindOf(tt.path); got != tt.want {
			t.Errorf("KindOf(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestArchiveDirectoryBeforeFile(t *testing.T) {
	p := writeZip(t, []zipEntry{{name: "a/"}, {name: "a/img.png", data: "png"}})

	src, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if src.Kind() != KindArchive {
		t.Fatalf("Kind = %v, want archive", src.Kind())
	}
	if n := Len(src); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}

	got := drain(t, src)
	want := []string{"a/", "a/img.png=png"}
	if !sliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestArchiveSynthesizesMissingDirectories(t *testing.T) {
	p := writeZip(t, []zipEntry{
		{name: "top.jpg", data: "1"},
		{name: "x/y/deep.jpg", data: "2"},
		{name: "x/y/"},
		{name: "x/other.jpg", data: "3"},
		{name: "x/"},
	})

	src, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	got := drain(t, src)
	want := []string{"top.jpg=1", "x/", "x/y/", "x/y/deep.jpg=2", "x/other.jpg=3"}
	if !sliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestArchiveCleansEntryNames(t *testing.T) {
	p := writeZip(t, []zipEntry{
		{name: "./"},
		{name: "./photos/"},
		{name: "./photos/a.png", data: "a"},
		{name: "photos//b.png", data: "b"},
		{name: "tmp/../c.png", data: "c"},
		{name: "raw//"},
	})

	src, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	got := drain(t, src)
	want := []string{"photos/", "photos/a.png=a", "photos/b.png=b", "c.png=c", "raw/"}
	if !sliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantDir bool
		wantErr bool
	}{
		{name: "a.png", want: "a.png"},
		{name: "./a.png", want: "a.png"},
		{name: "x//y/a.png", want: "x/y/a.png"},
		{name: "x/./y/", want: "x/y", wantDir: true},
		{name: "x/../a.png", want: "a.png"},
		{name: "./", want: ".", wantDir: true},
		{name: "../a.png", wantErr: true},
		{name: "x/../../a.png", wantErr: true},
		{name: "/a.png", wantErr: true},
		{name: "x/..", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isDir, err := cleanName(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsafePath) {
					t.Fatalf("err = %v, want ErrUnsafePath", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want || isDir != tt.wantDir {
				t.Errorf("cleanName(%q) = %q, %v; want %q, %v", tt.name, got, isDir, tt.want, tt.wantDir)
			}
		})
	}
}

func TestArchiveRejectsUnsafePaths(t *testing.T) {
	for _, name := range []string{"../evil.jpg", "a/../../evil.jpg", "/abs.jpg"} {
		t.Run(name, func(t *testing.T) {
			p := writeZip(t, []zipEntry{{name: name, data: "x"}})
			src, err := Open(p)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer src.Close()

			if _, err := src.Next(); !errors.Is(err, ErrUnsafePath) {
				t.Errorf("Next err = %v, want ErrUnsafePath", err)
			}
		})
	}
}

func TestArchiveNotAZip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(p, []byte("definitely not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(p); err == nil {
		t.Fatal("expected error opening a corrupt archive")
	}
}

func TestDirectoryPreOrder(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "photos/b.jpg", "b")
	touch(t, root, "photos/a.jpg", "a")
	touch(t, root, "photos/nested/c.png", "c")
	touch(t, root, "z.png", "z")
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	src, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if src.Kind() != KindDirectory {
		t.Fatalf("Kind = %v, want directory", src.Kind())
	}
	if n := Len(src); n != -1 {
		t.Errorf("Len = %d, want -1", n)
	}

	got := drain(t, src)
	want := []string{
		"empty",
		"photos",
		"photos/a.jpg=a",
		"photos/b.jpg=b",
		"photos/nested",
		"photos/nested/c.png=c",
		"z.png=z",
	}
	if !sliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDirectorySkipDir(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.png", "a")
	touch(t, root, "output/a.png", "blurred")
	touch(t, root, "output/photos/b.png", "blurred")
	touch(t, root, "photos/b.png", "b")
	touch(t, root, "photos/output/c.png", "c")

	tests := []struct {
		name string
		skip []Option
		want []string
	}{
		{
			name: "no skip",
			want: []string{
				"a.png=a",
				"output",
				"output/a.png=blurred",
				"output/photos",
				"output/photos/b.png=blurred",
				"photos",
				"photos/b.png=b",
				"photos/output",
				"photos/output/c.png=c",
			},
		},
		{
			name: "output inside input",
			skip: []Option{SkipDir(filepath.Join(root, "output"))},
			want: []string{"a.png=a", "photos", "photos/b.png=b", "photos/output", "photos/output/c.png=c"},
		},
		{
			name: "output not yet created",
			skip: []Option{SkipDir(filepath.Join(root, "later"))},
			want: []string{
				"a.png=a",
				"output",
				"output/a.png=blurred",
				"output/photos",
				"output/photos/b.png=blurred",
				"photos",
				"photos/b.png=b",
				"photos/output",
				"photos/output/c.png=c",
			},
		},
		{
			name: "unclean path",
			skip: []Option{SkipDir(filepath.Join(root, "photos", "..", "output") + string(filepath.Separator))},
			want: []string{"a.png=a", "photos", "photos/b.png=b", "photos/output", "photos/output/c.png=c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Open(root, tt.skip...)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer src.Close()

			got := drain(t, src)
			if !sliceEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDirectoryFollowsFileLinksOnly(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	touch(t, outside, "real.jpg", "real")
	touch(t, outside, "sub/hidden.jpg", "hidden")

	if err := os.Symlink(filepath.Join(outside, "real.jpg"), filepath.Join(root, "link.jpg")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "sub"), filepath.Join(root, "linkdir")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	src, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	got := drain(t, src)
	want := []string{"link.jpg=real"}
	if !sliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOpenMissingInput(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	for _, p := range []string{missing, missing + ".zip"} {
		if _, err := Open(p); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Open(%s) err = %v, want fs.ErrNotExist", filepath.Base(p), err)
		}
	}
}

func TestOpenRegularFile(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "photo.jpg", "x")

	_, err := Open(filepath.Join(root, "photo.jpg"))
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("err = %v, want not a directory", err)
	}
}
