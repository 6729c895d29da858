package source

import (
	"fmt"
	"path"
	"strings"

	"ccdsync/internal/domain"
)

const fileExt = ".cif"

// FileName returns the base file name for a component code.
func FileName(code string) string {
	return code + fileExt
}

// CodeFromPath returns the component code named by a file path.
func CodeFromPath(p string) string {
	return strings.TrimSuffix(path.Base(p), fileExt)
}

// IsComponentFile reports whether a path names a component file.
func IsComponentFile(p string) bool {
	return strings.HasSuffix(strings.ToLower(p), fileExt)
}

// WWPDBPath returns the path of a code in the public wwPDB chem_comp tree:
// {last}/{code}/{code}.cif. Only 3 and 5 character codes are published
// there.
func WWPDBPath(code string) (string, error) {
	if len(code) != 3 && len(code) != 5 {
		return "", fmt.Errorf("%q has %d characters: %w", code, len(code), domain.ErrUnsupportedCode)
	}
	last := code[len(code)-1:]
	return last + "/" + code + "/" + FileName(code), nil
}

// ArchivePath returns where the components archive split stores a code:
// {last}/{prefix}/{code}.cif for codes of up to 3 characters, where prefix
// is the code without its last character left-padded with '0' to 2
// characters; {last}/{code}/{code}.cif for 5 characters; {code}.cif
// otherwise.
func ArchivePath(code string) string {
	switch n := len(code); {
	case n <= 3:
		last, prefix := "0", ""
		if n > 0 {
			last = code[n-1:]
			prefix = code[:n-1]
		}
		prefix = strings.Repeat("0", 2-len(prefix)) + prefix
		return last + "/" + prefix + "/" + FileName(code)
	case n == 5:
		return code[n-1:] + "/" + code + "/" + FileName(code)
	default:
		return FileName(code)
	}
}

// MonomerPath returns the path of a code in the monomer library:
// {first, lower case}/{code}.cif.
func MonomerPath(code string) string {
	if code == "" {
		return FileName(code)
	}
	return strings.ToLower(code[:1]) + "/" + FileName(code)
}

// Set1Candidates lists the places a set-1 file may live under a local
// root, most likely first.
func Set1Candidates(code string) []string {
	if code == "" {
		return nil
	}
	last := code[len(code)-1:]
	out := []string{last + "/" + code + "/" + FileName(code)}
	if len(code) >= 2 {
		out = append(out, last+"/"+code[:2]+"/"+FileName(code))
	}
	out = append(out, ArchivePath(code))
	out = append(out,
		last+"/"+FileName(code),
		code+"/"+FileName(code),
		FileName(code),
	)
	return dedupe(out)
}

// Set2Candidates lists the places a set-2 file may live under a local
// root, most likely first.
func Set2Candidates(code string) []string {
	if code == "" {
		return nil
	}
	last := code[len(code)-1:]
	return dedupe([]string{
		MonomerPath(code),
		code[:1] + "/" + FileName(code),
		last + "/" + code + "/" + FileName(code),
		last + "/" + FileName(code),
		code + "/" + FileName(code),
		FileName(code),
	})
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
