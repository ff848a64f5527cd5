package phantom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// ErrDuplicatePath returned when two files of a tree share one path.
var ErrDuplicatePath = errors.New("duplicate path")

// archiveModTime modification time of every archive entry.
var archiveModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// FileTree in-memory directory tree serialized to zip in one pass.
type FileTree struct {
	files map[string][]byte
}

// NewFileTree returns empty tree.
func NewFileTree() *FileTree {
	return &FileTree{files: make(map[string][]byte)}
}

// Add puts file content at slash separated path.
func (t *FileTree) Add(name string, content []byte) error {
	name = path.Clean(strings.TrimPrefix(name, "/"))
	if name == "." || name == ".." || strings.HasPrefix(name, "../") {
		return fmt.Errorf("invalid path %q", name)
	}
	if _, ok := t.files[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, name)
	}

	t.files[name] = content
	return nil
}

// AddString puts text file at path.
func (t *FileTree) AddString(name, content string) error {
	return t.Add(name, []byte(content))
}

// AddJSON puts indented JSON encoding of v at path.
func (t *FileTree) AddJSON(name string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	return t.Add(name, buf.Bytes())
}

// Paths returns sorted file paths.
func (t *FileTree) Paths() []string {
	paths := make([]string, 0, len(t.files))
	for p := range t.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// File returns content by path.
func (t *FileTree) File(name string) ([]byte, bool) {
	content, ok := t.files[name]
	return content, ok
}

// Zip returns deflated archive of the tree with entries in path order.
func (t *FileTree) Zip() ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, name := range t.Paths() {
		f, err := w.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: archiveModTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create entry %s: %w", name, err)
		}

		if _, err := f.Write(t.files[name]); err != nil {
			return nil, fmt.Errorf("failed to write entry %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	return buf.Bytes(), nil
}
