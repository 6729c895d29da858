package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccdsync/internal/domain"
	"ccdsync/internal/source"
	"ccdsync/internal/source/local"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestSource_ListAndFetch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "N/AC/ACN.cif", "data_ACN\n")
	writeFile(t, root, "B/A1AAB/A1AAB.cif", "data_A1AAB\n")
	writeFile(t, root, "notes.txt", "ignored")

	s := local.NewSource("set1", root, local.ArchiveLayout)
	paths, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B/A1AAB/A1AAB.cif", "N/AC/ACN.cif"}, paths)

	p, err := s.PathFor("ACN")
	require.NoError(t, err)
	data, err := s.Fetch(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "data_ACN\n", string(data))

	_, err = s.Fetch(context.Background(), "Z/ZZ/ZZZ.cif")
	assert.ErrorIs(t, err, domain.ErrDocumentUnavailable)
	_, err = s.Fetch(context.Background(), "../outside.cif")
	assert.ErrorIs(t, err, domain.ErrDocumentUnavailable)
}

func TestSource_ListMissingRoot(t *testing.T) {
	s := local.NewSource("set2", filepath.Join(t.TempDir(), "absent"), local.MonomerLayout)
	_, err := s.List(context.Background())
	assert.Error(t, err)
}

func TestSource_Locate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ACN.cif", "flat")
	s := local.NewSource("set2", root, local.MonomerLayout)

	p, ok := s.Locate(source.Set2Candidates("ACN"))
	require.True(t, ok)
	assert.Equal(t, "ACN.cif", p)

	_, ok = s.Locate(source.Set2Candidates("BEN"))
	assert.False(t, ok)
}
