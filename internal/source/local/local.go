// Package local reads component files from a directory tree.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ccdsync/internal/domain"
	"ccdsync/internal/source"
)

// Layout maps a component code to its path relative to the root.
type Layout func(code string) (string, error)

// ArchiveLayout is the layout produced by splitting the components archive.
func ArchiveLayout(code string) (string, error) { return source.ArchivePath(code), nil }

// MonomerLayout is the monomer library layout.
func MonomerLayout(code string) (string, error) { return source.MonomerPath(code), nil }

// Source implements port.DocumentSource over a local directory.
type Source struct {
	name   string
	root   string
	layout Layout
}

// NewSource creates a Source rooted at root.
func NewSource(name, root string, layout Layout) *Source {
	return &Source{name: name, root: root, layout: layout}
}

func (s *Source) Name() string { return s.name }

// Root returns the directory the source reads from.
func (s *Source) Root() string { return s.root }

// List walks the root and returns the slash-separated relative path of
// every component file, sorted.
func (s *Source) List(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !source.IsComponentFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Source) PathFor(code string) (string, error) {
	return s.layout(code)
}

func (s *Source) Fetch(_ context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrDocumentUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Locate returns the first of the candidate paths that exists under the
// root.
func (s *Source) Locate(candidates []string) (string, bool) {
	for _, c := range candidates {
		full, err := s.resolve(c)
		if err != nil {
			continue
		}
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

// FullPath returns the filesystem path of a relative path.
func (s *Source) FullPath(path string) (string, error) {
	return s.resolve(path)
}

func (s *Source) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s: %w", path, s.root, domain.ErrDocumentUnavailable)
	}
	return filepath.Join(s.root, clean), nil
}
