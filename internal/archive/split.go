// Package archive splits the wwPDB components archive into one file per
// chemical component.
package archive

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"ccdsync/internal/source"
)

// ResumeThreshold is the number of split files above which an existing
// output directory is assumed complete.
const ResumeThreshold = 1000

const manifestName = ".ccdsync-split"

// Result describes one split.
type Result struct {
	// Paths lists every component file, relative to the output directory.
	Paths   []string
	Written int
	Skipped bool
	Digest  string
}

// Split writes each data block of the archive at archivePath to
// {outDir}/{source.ArchivePath(code)}. Files already present are kept. The
// split is skipped when the same archive was split before or when more
// than ResumeThreshold files already exist.
func Split(ctx context.Context, archivePath, outDir string) (*Result, error) {
	digest, err := digestFile(archivePath)
	if err != nil {
		return nil, err
	}

	existing, err := existingFiles(outDir)
	if err != nil {
		return nil, err
	}
	if prev, _ := os.ReadFile(filepath.Join(outDir, manifestName)); strings.TrimSpace(string(prev)) == digest {
		log.Printf("archive.Split: %s already split into %s", filepath.Base(archivePath), outDir)
		return &Result{Paths: sortedKeys(existing), Skipped: true, Digest: digest}, nil
	}
	if len(existing) > ResumeThreshold {
		log.Printf("archive.Split: found %d existing files in %s, skipping", len(existing), outDir)
		return &Result{Paths: sortedKeys(existing), Skipped: true, Digest: digest}, nil
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", outDir, err)
	}
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	r, err := decompress(archivePath, f)
	if err != nil {
		return nil, err
	}

	res := &Result{Digest: digest}
	w := &blockWriter{outDir: outDir, existing: existing, res: res}
	if err := scanBlocks(ctx, r, w.write); err != nil {
		return nil, err
	}

	if err := os.WriteFile(filepath.Join(outDir, manifestName), []byte(digest+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("writing split manifest: %w", err)
	}
	log.Printf("archive.Split: %d components, %d new files (%s written)",
		len(res.Paths), res.Written, humanize.Bytes(w.bytes))
	return res, nil
}

type blockWriter struct {
	outDir   string
	existing map[string]struct{}
	res      *Result
	bytes    uint64
}

func (w *blockWriter) write(code string, block []byte) error {
	rel := source.ArchivePath(code)
	w.res.Paths = append(w.res.Paths, rel)
	if _, ok := w.existing[rel]; ok {
		return nil
	}
	full := filepath.Join(w.outDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", code, err)
	}
	if err := os.WriteFile(full, block, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	w.existing[rel] = struct{}{}
	w.res.Written++
	w.bytes += uint64(len(block))
	return nil
}

// scanBlocks calls emit for every data block of r. A block starts at a line
// beginning with "data_" and runs until the next one; text before the first
// block is ignored.
func scanBlocks(ctx context.Context, r io.Reader, emit func(code string, block []byte) error) error {
	br := bufio.NewReaderSize(r, 1<<16)
	var (
		code  string
		block []byte
		open  bool
		n     int
	)
	flush := func() error {
		if !open {
			return nil
		}
		return emit(code, block)
	}

	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if strings.HasPrefix(line, "data_") {
				if ferr := flush(); ferr != nil {
					return ferr
				}
				n++
				if n%1000 == 0 {
					if cerr := ctx.Err(); cerr != nil {
						return cerr
					}
				}
				code = strings.TrimSpace(strings.TrimSpace(line)[len("data_"):])
				block = append([]byte(nil), line...)
				open = true
			} else if open {
				block = append(block, line...)
			}
		}
		if errors.Is(err, io.EOF) {
			return flush()
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}
	}
}

func decompress(name string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		return gz, nil
	case ".xz":
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening xz stream: %w", err)
		}
		return xr, nil
	default:
		return r, nil
	}
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing archive: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func existingFiles(dir string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !source.IsComponentFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	return out, nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
