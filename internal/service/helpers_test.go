package service_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ccdsync/internal/cache"
	"ccdsync/internal/comparison"
	"ccdsync/internal/correlation"
	"ccdsync/internal/source"
	"ccdsync/internal/source/local"
)

const testTable = `wwpdbccd,ccp4monomerlibrary,same_name
_chem_comp.name,_chem_comp.name,Y
_chem_comp_atom.atom_id,_chem_comp_atom.atom_id,Y
_chem_comp_atom.type_symbol,_chem_comp_atom.type_symbol,Y
`

func set1Doc(code, name, date string, atoms ...string) string {
	var b strings.Builder
	b.WriteString("data_" + code + "\n")
	b.WriteString("_chem_comp.id " + code + "\n")
	b.WriteString("_chem_comp.name '" + name + "'\n")
	b.WriteString("_chem_comp.pdbx_modified_date " + date + "\n")
	writeAtoms(&b, code, atoms)
	return b.String()
}

func set2Doc(code, name string, atoms ...string) string {
	var b strings.Builder
	b.WriteString("data_comp_" + code + "\n")
	b.WriteString("_chem_comp.id " + code + "\n")
	b.WriteString("_chem_comp.name '" + name + "'\n")
	writeAtoms(&b, code, atoms)
	return b.String()
}

func writeAtoms(b *strings.Builder, code string, atoms []string) {
	b.WriteString("loop_\n_chem_comp_atom.comp_id\n_chem_comp_atom.atom_id\n_chem_comp_atom.type_symbol\n")
	for _, a := range atoms {
		b.WriteString(code + " " + a + " " + a[:1] + "\n")
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func newEngine(t *testing.T) *comparison.Engine {
	t.Helper()
	tbl, err := correlation.ReadCSV(strings.NewReader(testTable), correlation.DefaultColumns)
	require.NoError(t, err)
	return comparison.NewEngine(tbl)
}

// fixture lays out two sets:
//
//	ACN: identical
//	BEN: atom sets differ
//	ONE: set 1 only
//	TWO: set 2 only
type fixture struct {
	dir1, dir2 string
	set1, set2 *local.Source
	engine     *comparison.Engine
	docs       *cache.DocumentCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dir1: t.TempDir(), dir2: t.TempDir()}

	writeFile(t, f.dir1, source.ArchivePath("ACN"), set1Doc("ACN", "ACETONE", "2011-06-04", "C", "O"))
	writeFile(t, f.dir2, source.MonomerPath("ACN"), set2Doc("ACN", "acetone", "O", "C"))

	writeFile(t, f.dir1, source.ArchivePath("BEN"), set1Doc("BEN", "BENZAMIDINE", "2020-01-01", "C", "N"))
	writeFile(t, f.dir2, source.MonomerPath("BEN"), set2Doc("BEN", "BENZAMIDINE", "C", "O"))

	writeFile(t, f.dir1, source.ArchivePath("ONE"), set1Doc("ONE", "ONLY ONE", "2019-01-01", "C"))
	writeFile(t, f.dir2, source.MonomerPath("TWO"), set2Doc("TWO", "ONLY TWO", "C"))

	f.set1 = local.NewSource("set1", f.dir1, local.ArchiveLayout)
	f.set2 = local.NewSource("set2", f.dir2, local.MonomerLayout)
	f.engine = newEngine(t)
	f.docs = cache.NewDocumentCache(16)
	return f
}
