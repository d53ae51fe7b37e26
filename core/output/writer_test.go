package output

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStem(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "issue.pdf", want: "issue"},
		{path: "out/dir/issue-42.pdf", want: "issue-42"},
		{path: "noext", want: "noext"},
	}
	for _, tt := range tests {
		w := &Writer{path: tt.path}
		if got := w.Stem(); got != tt.want {
			t.Fatalf("Stem(%s) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "issue.pdf")

	w, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("parent dir not created: %v", err)
	}
	if w.Path() != path {
		t.Fatalf("path = %s, want %s", w.Path(), path)
	}
}

func TestNewRejectsEmptyPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestWriteDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issue.pdf")
	w, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got, err := w.WriteDocument([]byte("%PDF-1.4 test"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "%PDF-1.4 test" {
		t.Fatalf("content = %q", data)
	}
}

func TestImageDirNaming(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "summer-issue.pdf"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	tests := []struct {
		prefix, suffix string
		want           string
	}{
		{prefix: "", suffix: "", want: "summer-issue"},
		{prefix: "img-", suffix: "", want: "img-summer-issue"},
		{prefix: "", suffix: "-pages", want: "summer-issue-pages"},
		{prefix: "a_", suffix: "_z", want: "a_summer-issue_z"},
	}
	for _, tt := range tests {
		got, err := w.MakeImageDir(tt.prefix, tt.suffix)
		if err != nil {
			t.Fatalf("make image dir: %v", err)
		}
		if want := filepath.Join(dir, tt.want); got != want {
			t.Fatalf("dir = %s, want %s", got, want)
		}
		if fi, err := os.Stat(got); err != nil || !fi.IsDir() {
			t.Fatalf("dir not created: %v", err)
		}
	}
}

func TestWriteImagePadsPageNumber(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "issue.pdf"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	imgDir, err := w.MakeImageDir("", "")
	if err != nil {
		t.Fatalf("make image dir: %v", err)
	}

	path, err := w.WriteImage(imgDir, 7, 4, []byte("jpeg"))
	if err != nil {
		t.Fatalf("write image: %v", err)
	}
	if filepath.Base(path) != "0007.jpg" {
		t.Fatalf("image name = %s, want 0007.jpg", filepath.Base(path))
	}
}
