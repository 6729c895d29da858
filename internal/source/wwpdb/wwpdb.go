// Package wwpdb reads set 1 from the public wwPDB file server.
package wwpdb

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ccdsync/internal/config"
	"ccdsync/internal/domain"
	"ccdsync/internal/source"
)

// Source implements port.DocumentSource over the chem_comp tree at
// files.wwpdb.org.
type Source struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewSource creates a Source from the sources config.
func NewSource(cfg *config.SourcesConfig) *Source {
	return NewSourceWithEndpoint(cfg, cfg.WWPDBBaseURL)
}

// NewSourceWithEndpoint creates a Source pointing at a custom base URL (for testing).
func NewSourceWithEndpoint(cfg *config.SourcesConfig, baseURL string) *Source {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Source{
		baseURL:   strings.TrimSuffix(baseURL, "/") + "/",
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (s *Source) Name() string { return string(domain.SourceHTTP) }

// List is not supported: the file server has no usable index. Set 1 is
// enumerated through the components archive instead.
func (s *Source) List(context.Context) ([]string, error) {
	return nil, domain.ErrListingUnsupported
}

func (s *Source) PathFor(code string) (string, error) {
	return source.WWPDBPath(code)
}

func (s *Source) Fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+strings.TrimPrefix(path, "/"), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", path, domain.ErrDocumentUnavailable)
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		retryAfter := source.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return nil, source.NewRateLimitError(s.Name(), fmt.Errorf("status %d", resp.StatusCode), retryAfter)
	default:
		return nil, fmt.Errorf("fetching %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return body, nil
}

// Downloader fetches the full components archive.
type Downloader struct {
	url       string
	userAgent string
	client    *http.Client
}

// NewDownloader creates a Downloader for the configured components URL.
func NewDownloader(cfg *config.SourcesConfig) *Downloader {
	return NewDownloaderWithEndpoint(cfg, cfg.ComponentsURL)
}

// NewDownloaderWithEndpoint creates a Downloader for a custom URL (for testing).
func NewDownloaderWithEndpoint(cfg *config.SourcesConfig, url string) *Downloader {
	timeout := cfg.DownloadTimeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}
	return &Downloader{url: url, userAgent: cfg.UserAgent, client: &http.Client{Timeout: timeout}}
}

// ArchiveName is the base name of the archive, used for the local copy.
func (d *Downloader) ArchiveName() string {
	name := d.url
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "components.cif.gz"
	}
	return name
}

// Download streams the archive into dir and returns its local path. An
// existing non-empty copy is reused.
func (d *Downloader) Download(ctx context.Context, dir string) (string, error) {
	dest := filepath.Join(dir, d.ArchiveName())
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		log.Printf("wwpdb.Downloader: using existing %s (%s)", dest, humanize.Bytes(uint64(info.Size())))
		return dest, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", d.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %d", d.url, resp.StatusCode)
	}
	if resp.ContentLength > 0 {
		log.Printf("wwpdb.Downloader: fetching %s (%s)", d.url, humanize.Bytes(uint64(resp.ContentLength)))
	}

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", part, err)
	}
	start := time.Now()
	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(part)
		return "", fmt.Errorf("writing %s: %w", part, err)
	}
	if err := os.Rename(part, dest); err != nil {
		return "", fmt.Errorf("renaming %s: %w", part, err)
	}

	log.Printf("wwpdb.Downloader: saved %s (%s in %s)", dest, humanize.Bytes(uint64(n)), time.Since(start).Round(time.Millisecond))
	return dest, nil
}
