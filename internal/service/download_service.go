package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"ccdsync/internal/archive"
	"ccdsync/internal/port"
)

// ArchiveFetcher downloads the set-1 components archive.
type ArchiveFetcher interface {
	Download(ctx context.Context, dir string) (string, error)
}

// DownloadConfig holds the target directories of download mode.
type DownloadConfig struct {
	ArchiveDir string
	Set1Dir    string
	Set2Dir    string
	Workers    int
}

// DownloadResult summarizes one download pass.
type DownloadResult struct {
	Archive      string
	Split        *archive.Result
	Set2Written  int
	Set2Existing int
	Set2Failed   int
}

// DownloadService mirrors both sets into local directories so a local
// comparison can run against them.
type DownloadService struct {
	archive ArchiveFetcher
	set2    port.DocumentSource
	cfg     DownloadConfig
}

// NewDownloadService creates a new DownloadService.
func NewDownloadService(archiveFetcher ArchiveFetcher, set2 port.DocumentSource, cfg DownloadConfig) *DownloadService {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = "."
	}
	return &DownloadService{archive: archiveFetcher, set2: set2, cfg: cfg}
}

// Prepare downloads both sets, discarding the summary.
func (s *DownloadService) Prepare(ctx context.Context, codes []string) error {
	_, err := s.Download(ctx, codes)
	return err
}

// Download fetches and splits the set-1 archive, then fetches the set-2
// files that are not on disk yet. With codes, only those set-2 files are
// fetched.
func (s *DownloadService) Download(ctx context.Context, codes []string) (*DownloadResult, error) {
	start := time.Now()
	res := &DownloadResult{}

	archivePath, err := s.archive.Download(ctx, s.cfg.ArchiveDir)
	if err != nil {
		return nil, fmt.Errorf("downloading components archive: %w", err)
	}
	res.Archive = archivePath

	split, err := archive.Split(ctx, archivePath, s.cfg.Set1Dir)
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", archivePath, err)
	}
	res.Split = split

	paths, err := s.set2Paths(ctx, codes)
	if err != nil {
		return nil, err
	}
	s.fetchSet2(ctx, paths, res)

	log.Printf("service.DownloadService.Download: set1 written=%d skipped=%t, set2 written=%d existing=%d failed=%d (%s)",
		split.Written, split.Skipped, res.Set2Written, res.Set2Existing, res.Set2Failed, time.Since(start).Round(time.Second))
	return res, ctx.Err()
}

func (s *DownloadService) set2Paths(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		paths, err := s.set2.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing set 2: %w", err)
		}
		return paths, nil
	}
	paths := make([]string, 0, len(codes))
	for _, c := range codes {
		p, err := s.set2.PathFor(strings.ToUpper(strings.TrimSpace(c)))
		if err != nil {
			log.Printf("service.DownloadService: skipping %s: %v", c, err)
			continue
		}
		paths = append(paths, p)
	}
	return paths, nil
}

type fetchStatus int

const (
	fetchWritten fetchStatus = iota
	fetchExisting
	fetchFailed
)

func (s *DownloadService) fetchSet2(ctx context.Context, paths []string, res *DownloadResult) {
	p := pool.NewWithResults[fetchStatus]().WithMaxGoroutines(s.cfg.Workers)
	for _, rel := range paths {
		p.Go(func() fetchStatus {
			return s.fetchOne(ctx, rel)
		})
	}
	for _, st := range p.Wait() {
		switch st {
		case fetchWritten:
			res.Set2Written++
		case fetchExisting:
			res.Set2Existing++
		default:
			res.Set2Failed++
		}
	}
}

func (s *DownloadService) fetchOne(ctx context.Context, rel string) fetchStatus {
	dest := filepath.Join(s.cfg.Set2Dir, filepath.FromSlash(rel))
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return fetchExisting
	}
	if ctx.Err() != nil {
		return fetchFailed
	}
	data, err := s.set2.Fetch(ctx, rel)
	if err != nil {
		log.Printf("service.DownloadService: fetching %s: %v", rel, err)
		return fetchFailed
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		log.Printf("service.DownloadService: creating %s: %v", filepath.Dir(dest), err)
		return fetchFailed
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		log.Printf("service.DownloadService: writing %s: %v", dest, err)
		return fetchFailed
	}
	return fetchWritten
}
