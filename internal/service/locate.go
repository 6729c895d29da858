package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ccdsync/internal/domain"
	"ccdsync/internal/source"
)

// Located is where a code was found in each set. Empty paths were not found.
type Located struct {
	Code   string
	Set1   string
	Set2   string
	Copies []string
}

// Locate finds the file of code in both sets, trying the known layouts
// before walking each tree. When copyDir is set, found files are copied
// there as example_set{n}_{code}.cif.
func Locate(ctx context.Context, set1, set2 LocatingSource, code, copyDir string) (*Located, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("locate: %w", domain.ErrNoCodes)
	}
	out := &Located{Code: code}

	var err error
	if out.Set1, err = locateIn(ctx, set1, code, source.Set1Candidates(code)); err != nil {
		return nil, err
	}
	if out.Set2, err = locateIn(ctx, set2, code, source.Set2Candidates(code)); err != nil {
		return nil, err
	}

	if copyDir == "" {
		return out, nil
	}
	for i, found := range []struct {
		src LocatingSource
		rel string
	}{{set1, out.Set1}, {set2, out.Set2}} {
		if found.rel == "" {
			continue
		}
		data, err := found.src.Fetch(ctx, found.rel)
		if err != nil {
			return nil, err
		}
		dest := filepath.Join(copyDir, fmt.Sprintf("example_set%d_%s.cif", i+1, code))
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return nil, fmt.Errorf("copying to %s: %w", dest, err)
		}
		out.Copies = append(out.Copies, dest)
	}
	return out, nil
}

func locateIn(ctx context.Context, src LocatingSource, code string, candidates []string) (string, error) {
	if p, ok := src.Locate(candidates); ok {
		return p, nil
	}
	paths, err := src.List(ctx)
	if err != nil {
		return "", fmt.Errorf("walking %s: %w", src.Name(), err)
	}
	want := source.FileName(code)
	for _, p := range paths {
		if path.Base(p) == want {
			return p, nil
		}
	}
	return "", nil
}
