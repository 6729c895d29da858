package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"ccdsync/internal/domain"
	"ccdsync/internal/port"
	"ccdsync/internal/source"
)

// Locator is implemented by sources that can tell whether a code is present
// without fetching it.
type Locator interface {
	Locate(candidates []string) (string, bool)
}

// PairSet is the outcome of matching two sets by component code.
type PairSet struct {
	Pairs   []domain.FilePair
	Missing []domain.MissingFile
}

// PairListings matches two listings by code. Codes present on one side only
// are reported as missing. Pairs and missing entries are sorted by code.
func PairListings(kind1, kind2 domain.SourceKind, set1, set2 []string) PairSet {
	a := indexByCode(set1)
	b := indexByCode(set2)

	var out PairSet
	for code, pathA := range a {
		pathB, ok := b[code]
		if !ok {
			out.Missing = append(out.Missing, domain.MissingFile{CCDCode: code, MissingFromSet2: true})
			continue
		}
		out.Pairs = append(out.Pairs, newPair(code, kind1, pathA, kind2, pathB))
	}
	for code := range b {
		if _, ok := a[code]; !ok {
			out.Missing = append(out.Missing, domain.MissingFile{CCDCode: code, MissingFromSet1: true})
		}
	}
	sortPairSet(&out)
	return out
}

// FilterCodes keeps the pairs whose code is in codes and caps the result at
// limit when limit is positive. Codes compare case-insensitively.
func (ps PairSet) FilterCodes(codes []string, limit int) PairSet {
	if len(codes) > 0 {
		wanted := make(map[string]struct{}, len(codes))
		for _, c := range codes {
			wanted[strings.ToUpper(c)] = struct{}{}
		}
		var pairs []domain.FilePair
		for _, p := range ps.Pairs {
			if _, ok := wanted[strings.ToUpper(p.Code)]; ok {
				pairs = append(pairs, p)
			}
		}
		var missing []domain.MissingFile
		for _, m := range ps.Missing {
			if _, ok := wanted[strings.ToUpper(m.CCDCode)]; ok {
				missing = append(missing, m)
			}
		}
		ps = PairSet{Pairs: pairs, Missing: missing}
	}
	if limit > 0 && len(ps.Pairs) > limit {
		ps.Pairs = ps.Pairs[:limit]
	}
	return ps
}

// DiscoverPairs lists both sources concurrently and pairs their contents.
func DiscoverPairs(ctx context.Context, set1, set2 port.DocumentSource) (PairSet, error) {
	var list1, list2 []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list1, err = set1.List(gctx)
		if err != nil {
			return fmt.Errorf("listing set 1 (%s): %w", set1.Name(), err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		list2, err = set2.List(gctx)
		if err != nil {
			return fmt.Errorf("listing set 2 (%s): %w", set2.Name(), err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return PairSet{}, err
	}
	return PairListings(kindOf(set1), kindOf(set2), list1, list2), nil
}

// PairCodes builds pairs for explicit codes. Sources that implement Locator
// are checked for presence and absent codes are reported as missing; other
// sources are trusted to hold every code.
func PairCodes(set1, set2 port.DocumentSource, codes []string) (PairSet, error) {
	if len(codes) == 0 {
		return PairSet{}, domain.ErrNoCodes
	}
	var out PairSet
	seen := make(map[string]struct{}, len(codes))
	for _, raw := range codes {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		pathA, okA, err := resolvePath(set1, code, source.Set1Candidates)
		if err != nil {
			return PairSet{}, err
		}
		pathB, okB, err := resolvePath(set2, code, source.Set2Candidates)
		if err != nil {
			return PairSet{}, err
		}
		if !okA || !okB {
			out.Missing = append(out.Missing, domain.MissingFile{CCDCode: code, MissingFromSet1: !okA, MissingFromSet2: !okB})
			continue
		}
		out.Pairs = append(out.Pairs, newPair(code, kindOf(set1), pathA, kindOf(set2), pathB))
	}
	sortPairSet(&out)
	return out, nil
}

// resolvePath returns the path of code in src and whether it is present.
// Unsupported codes count as absent.
func resolvePath(src port.DocumentSource, code string, candidates func(string) []string) (string, bool, error) {
	if loc, ok := src.(Locator); ok {
		p, found := loc.Locate(candidates(code))
		return p, found, nil
	}
	p, err := src.PathFor(code)
	if errors.Is(err, domain.ErrUnsupportedCode) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolving %s in %s: %w", code, src.Name(), err)
	}
	return p, true, nil
}

func indexByCode(paths []string) map[string]string {
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		if !source.IsComponentFile(p) {
			continue
		}
		code := source.CodeFromPath(p)
		if _, dup := out[code]; !dup {
			out[code] = p
		}
	}
	return out
}

func newPair(code string, kind1 domain.SourceKind, pathA string, kind2 domain.SourceKind, pathB string) domain.FilePair {
	return domain.FilePair{
		Code: code,
		A:    domain.DocumentRef{Kind: kind1, Path: pathA},
		B:    domain.DocumentRef{Kind: kind2, Path: pathB},
	}
}

func kindOf(src port.DocumentSource) domain.SourceKind {
	name := src.Name()
	if i := strings.Index(name, "|"); i >= 0 {
		name = name[:i]
	}
	switch domain.SourceKind(name) {
	case domain.SourceHTTP, domain.SourceGitHub, domain.SourceS3:
		return domain.SourceKind(name)
	}
	return domain.SourceLocal
}

func sortPairSet(ps *PairSet) {
	sort.Slice(ps.Pairs, func(i, j int) bool { return ps.Pairs[i].Code < ps.Pairs[j].Code })
	sort.Slice(ps.Missing, func(i, j int) bool { return ps.Missing[i].CCDCode < ps.Missing[j].CCDCode })
}
