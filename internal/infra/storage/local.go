package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/bryanwahyu/platecheck/internal/domain/results"
)

// LocalStore serves images from a directory on disk. Absolute paths stored by
// the recognition pipeline are accepted as long as they fall under Root.
type LocalStore struct {
	Root string
}

func NewLocal(root string) (*LocalStore, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &LocalStore{Root: abs}, nil
}

func (s *LocalStore) Open(_ context.Context, path string) (io.ReadCloser, string, error) {
	full, ok := s.resolve(path)
	if !ok {
		return nil, "", results.ErrImageNotFound
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", results.ErrImageNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if st, err := f.Stat(); err != nil || st.IsDir() {
		f.Close()
		return nil, "", results.ErrImageNotFound
	}
	return f, contentType(full), nil
}

// Check fails when Root is gone or is not a directory.
func (s *LocalStore) Check(_ context.Context) error {
	st, err := os.Stat(s.Root)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("image root %s is not a directory", s.Root)
	}
	return nil
}

func (s *LocalStore) resolve(path string) (string, bool) {
	if strings.TrimSpace(path) == "" || strings.ContainsRune(path, 0) {
		return "", false
	}
	full := filepath.Clean(path)
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.Root, full)
	}
	rel, err := filepath.Rel(s.Root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
