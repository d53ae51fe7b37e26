// Package output handles file naming and writing for the assembled
// document and the optional per-page image side directory.
// The document itself is written exactly once, after assembly succeeds,
// so a failed run never leaves a partial PDF on disk.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer writes the output document and, if enabled, per-page images.
type Writer struct {
	path string
}

// New creates a Writer targeting the given output file path,
// ensuring its parent directory exists.
func New(path string) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}
	return &Writer{path: path}, nil
}

// Path returns the output file path.
func (w *Writer) Path() string {
	return w.path
}

// Stem returns the output filename without directory or extension.
// Example: out/issue-42.pdf → issue-42.
func (w *Writer) Stem() string {
	base := filepath.Base(w.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WriteDocument writes the finished document to the output path.
func (w *Writer) WriteDocument(data []byte) (string, error) {
	if err := os.WriteFile(w.path, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", w.path, err)
	}
	return w.path, nil
}

// MakeImageDir creates the image side directory next to the output file.
// Its name is the output stem with the optional prefix and suffix:
// <prefix><stem><suffix>/.
func (w *Writer) MakeImageDir(prefix, suffix string) (string, error) {
	dir := filepath.Join(filepath.Dir(w.path), prefix+w.Stem()+suffix)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating image directory %s: %w", dir, err)
	}
	return dir, nil
}

// WriteImage persists one page image into dir, numbered like the source:
// the page number zero-padded to width, with a .jpg extension.
func (w *Writer) WriteImage(dir string, page, width int, data []byte) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("%0*d.jpg", width, page))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing image %s: %w", path, err)
	}
	return path, nil
}
