package service_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccdsync/internal/service"
	"ccdsync/internal/source"
)

type stubArchive struct {
	content string
	err     error
}

func (a *stubArchive) Download(_ context.Context, dir string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	path := filepath.Join(dir, "components.cif")
	return path, os.WriteFile(path, []byte(a.content), 0o644)
}

const archiveText = "data_ACN\n_chem_comp.id ACN\n#\ndata_BEN\n_chem_comp.id BEN\n#\n"

func TestDownloadService_Download(t *testing.T) {
	f := newFixture(t)
	cfg := service.DownloadConfig{ArchiveDir: t.TempDir(), Set1Dir: t.TempDir(), Set2Dir: t.TempDir(), Workers: 2}
	writeFile(t, cfg.Set2Dir, source.MonomerPath("ACN"), "already here")

	svc := service.NewDownloadService(&stubArchive{content: archiveText}, f.set2, cfg)
	res, err := svc.Download(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.ArchiveDir, "components.cif"), res.Archive)
	assert.Equal(t, 2, res.Split.Written)
	assert.FileExists(t, filepath.Join(cfg.Set1Dir, filepath.FromSlash(source.ArchivePath("BEN"))))

	assert.Equal(t, 2, res.Set2Written)
	assert.Equal(t, 1, res.Set2Existing)
	assert.Zero(t, res.Set2Failed)

	kept, err := os.ReadFile(filepath.Join(cfg.Set2Dir, filepath.FromSlash(source.MonomerPath("ACN"))))
	require.NoError(t, err)
	assert.Equal(t, "already here", string(kept))
	assert.FileExists(t, filepath.Join(cfg.Set2Dir, filepath.FromSlash(source.MonomerPath("TWO"))))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDownloadService_ResumedSplitLogsSkip(t *testing.T) {
	f := newFixture(t)
	cfg := service.DownloadConfig{ArchiveDir: t.TempDir(), Set1Dir: t.TempDir(), Set2Dir: t.TempDir(), Workers: 2}
	svc := service.NewDownloadService(&stubArchive{content: archiveText}, f.set2, cfg)

	_, err := svc.Download(context.Background(), nil)
	require.NoError(t, err)

	var out lockedBuffer
	log.SetOutput(&out)
	defer log.SetOutput(os.Stderr)

	res, err := svc.Download(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, res.Split.Skipped)
	assert.Zero(t, res.Split.Written)
	assert.Contains(t, out.String(), "set1 written=0 skipped=true,")
	assert.NotContains(t, out.String(), "%!")
}

func TestDownloadService_Codes(t *testing.T) {
	f := newFixture(t)
	cfg := service.DownloadConfig{ArchiveDir: t.TempDir(), Set1Dir: t.TempDir(), Set2Dir: t.TempDir()}

	svc := service.NewDownloadService(&stubArchive{content: archiveText}, f.set2, cfg)
	res, err := svc.Download(context.Background(), []string{"ben", "xyz"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Set2Written)
	assert.Equal(t, 1, res.Set2Failed)
	assert.NoFileExists(t, filepath.Join(cfg.Set2Dir, filepath.FromSlash(source.MonomerPath("TWO"))))
}

func TestDownloadService_ArchiveFailure(t *testing.T) {
	f := newFixture(t)
	svc := service.NewDownloadService(&stubArchive{err: errors.New("offline")}, f.set2,
		service.DownloadConfig{Set1Dir: t.TempDir(), Set2Dir: t.TempDir()})

	err := svc.Prepare(context.Background(), nil)
	assert.ErrorContains(t, err, "offline")
}
