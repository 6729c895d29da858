package comparison_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccdsync/internal/cif"
	"ccdsync/internal/comparison"
	"ccdsync/internal/correlation"
	"ccdsync/internal/domain"
)

const fullTable = `wwpdbccd,ccp4monomerlibrary,same_name
_chem_comp.name,_chem_comp.name,Y
_chem_comp.type,_chem_comp.group,N
_chem_comp_atom.atom_id,_chem_comp_atom.atom_id,Y
_chem_comp_atom.type_symbol,_chem_comp_atom.type_symbol,Y
_chem_comp_atom.charge,_chem_comp_atom.charge,Y
_chem_comp_bond.atom_id_1,_chem_comp_bond.atom_id_1,Y
_chem_comp_bond.atom_id_2,_chem_comp_bond.atom_id_2,Y
_chem_comp_bond.value_order,_chem_comp_bond.type,N
_chem_comp_bond.pdbx_aromatic_flag,_chem_comp_bond.aromatic,N
_pdbx_chem_comp_descriptor.type,_pdbx_chem_comp_description_generator.comp_id,N
_pdbx_chem_comp_descriptor.program,_pdbx_chem_comp_description_generator.program_name,N
_pdbx_chem_comp_descriptor.program_version,_pdbx_chem_comp_description_generator.program_version,Y
_pdbx_chem_comp_descriptor.descriptor,_pdbx_chem_comp_description_generator.descriptor,Y
`

const wwpdbACN = `data_ACN
_chem_comp.id ACN
_chem_comp.name ACETONE
_chem_comp.type NON-POLYMER
_chem_comp.pdbx_modified_date 2011-06-04
loop_
_chem_comp_atom.comp_id
_chem_comp_atom.atom_id
_chem_comp_atom.type_symbol
_chem_comp_atom.charge
ACN C  C 0
ACN O  O 0
ACN C1 C 0
ACN C2 C 0
loop_
_chem_comp_bond.comp_id
_chem_comp_bond.atom_id_1
_chem_comp_bond.atom_id_2
_chem_comp_bond.value_order
_chem_comp_bond.pdbx_aromatic_flag
ACN C O  DOUB N
ACN C C1 SING N
ACN C C2 SING N
loop_
_pdbx_chem_comp_descriptor.comp_id
_pdbx_chem_comp_descriptor.type
_pdbx_chem_comp_descriptor.program
_pdbx_chem_comp_descriptor.program_version
_pdbx_chem_comp_descriptor.descriptor
ACN SMILES ACDLabs 10.04 "O=C(C)C"
ACN InChI  InChI   1.03  InChI=1S/C3H6O/c1-3(2)4/h1-2H3
`

const ccp4ACN = `data_comp_ACN
_chem_comp.id ACN
_chem_comp.name 'Acetone'
_chem_comp.group non-polymer
loop_
_chem_comp_atom.comp_id
_chem_comp_atom.atom_id
_chem_comp_atom.type_symbol
_chem_comp_atom.type_energy
_chem_comp_atom.charge
ACN C2 C CH3 0
ACN C  C C   0
ACN O  O O   0
ACN C1 C CH3 0
loop_
_chem_comp_bond.comp_id
_chem_comp_bond.atom_id_1
_chem_comp_bond.atom_id_2
_chem_comp_bond.type
_chem_comp_bond.aromatic
ACN O  C double n
ACN C1 C single n
ACN C  C2 SINGLE n
loop_
_pdbx_chem_comp_description_generator.comp_id
_pdbx_chem_comp_description_generator.program_name
_pdbx_chem_comp_description_generator.program_version
_pdbx_chem_comp_description_generator.descriptor
ACN InChI   1.03  InChI=1S/C3H6O/c1-3(2)4/h1-2H3
ACN ACDLabs 10.04 O=C(C)C
`

func newEngine(t *testing.T, table string) *comparison.Engine {
	t.Helper()
	tbl, err := correlation.ReadCSV(strings.NewReader(table), correlation.DefaultColumns)
	require.NoError(t, err)
	return comparison.NewEngine(tbl)
}

func TestEngine_EquivalentDocuments(t *testing.T) {
	engine := newEngine(t, fullTable)
	res := engine.CompareText(wwpdbACN, ccp4ACN)

	for _, u := range domain.AllUnits {
		require.True(t, res.Has(u), "unit %s", u)
		assert.True(t, res.Units[u], "unit %s", u)
	}
	assert.True(t, res.Overall())
}

func TestEngine_BondSymmetryAndSynonyms(t *testing.T) {
	engine := newEngine(t, fullTable)
	a := "loop_\n_chem_comp_bond.atom_id_1\n_chem_comp_bond.atom_id_2\n_chem_comp_bond.value_order\n_chem_comp_bond.pdbx_aromatic_flag\nC1 C2 single N\n"
	b := "loop_\n_chem_comp_bond.atom_id_1\n_chem_comp_bond.atom_id_2\n_chem_comp_bond.type\n_chem_comp_bond.aromatic\nC2 C1 SING N\n"

	res := engine.CompareText(a, b)
	assert.True(t, res.Units[domain.UnitBond])
}

func TestEngine_RowCountSensitivity(t *testing.T) {
	engine := newEngine(t, fullTable)
	extra := strings.Replace(ccp4ACN, "ACN C1 C CH3 0\n", "ACN C1 C CH3 0\nACN H1 H H 0\n", 1)

	res := engine.CompareText(wwpdbACN, extra)
	assert.False(t, res.Units[domain.UnitAtom])
	assert.True(t, res.Units[domain.UnitBond])
	assert.False(t, res.Overall())
}

func TestEngine_QuestionMarkEqualsAbsent(t *testing.T) {
	engine := newEngine(t, "wwpdbccd,ccp4monomerlibrary\n_chem_comp.name,_chem_comp.name\n")

	res := engine.CompareText("_chem_comp.name ?\n", "_chem_comp.id ACN\n")
	assert.True(t, res.Units[domain.UnitName])
}

func TestEngine_MultilineName(t *testing.T) {
	engine := newEngine(t, fullTable)
	b := "_chem_comp.name\n;\nACE\nTONE\n;\n"

	res := engine.CompareText("_chem_comp.name ACETONE\n", b)
	assert.True(t, res.Units[domain.UnitName], "folded lines are joined before comparison")
}

func TestEngine_NameMismatch(t *testing.T) {
	engine := newEngine(t, fullTable)
	res := engine.CompareText("_chem_comp.name ACETONE\n", "_chem_comp.name PROPANONE\n")
	assert.False(t, res.Units[domain.UnitName])
}

func TestEngine_DescriptorPrefersSameCategory(t *testing.T) {
	table := fullTable + `_pdbx_chem_comp_descriptor.type,_pdbx_chem_comp_descriptor.type,Y
_pdbx_chem_comp_descriptor.program,_pdbx_chem_comp_descriptor.program,Y
_pdbx_chem_comp_descriptor.program_version,_pdbx_chem_comp_descriptor.program_version,Y
_pdbx_chem_comp_descriptor.descriptor,_pdbx_chem_comp_descriptor.descriptor,Y
`
	engine := newEngine(t, table)

	var plan comparison.Plan
	for _, p := range engine.Plans() {
		if p.Unit == domain.UnitDescriptor {
			plan = p
		}
	}
	assert.False(t, plan.DropKey)
	assert.Equal(t, "_pdbx_chem_comp_descriptor", plan.CategoryB())

	// Same descriptors on both sides under the same category.
	res := engine.CompareText(wwpdbACN, wwpdbACN)
	assert.True(t, res.Units[domain.UnitDescriptor])

	// The generator loop is not consulted any more.
	res = engine.CompareText(wwpdbACN, ccp4ACN)
	assert.False(t, res.Units[domain.UnitDescriptor])
}

func TestBuildPlans_LastTableRowWinsOutsideDescriptors(t *testing.T) {
	tests := []struct {
		name  string
		table string
		want  string
	}{
		{
			name: "remapped row last",
			table: "wwpdbccd,ccp4monomerlibrary,same_name\n" +
				"_chem_comp_atom.atom_id,_chem_comp_atom.atom_id,Y\n" +
				"_chem_comp_atom.atom_id,_chem_comp_atom.name,N\n",
			want: "_chem_comp_atom.name",
		},
		{
			name: "same-named row last",
			table: "wwpdbccd,ccp4monomerlibrary,same_name\n" +
				"_chem_comp_atom.atom_id,_monomer_atom.atom_id,N\n" +
				"_chem_comp_atom.atom_id,_chem_comp_atom.atom_id,Y\n",
			want: "_chem_comp_atom.atom_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := correlation.ReadCSV(strings.NewReader(tt.table), correlation.DefaultColumns)
			require.NoError(t, err)

			plans := comparison.BuildPlans(tbl)
			require.Len(t, plans, 1)
			assert.Equal(t, domain.UnitAtom, plans[0].Unit)
			assert.Equal(t, []string{"_chem_comp_atom.atom_id"}, plans[0].FieldsA)
			assert.Equal(t, []string{tt.want}, plans[0].FieldsB)
		})
	}
}

func TestEngine_AbsentUnitsAreExcluded(t *testing.T) {
	engine := newEngine(t, `wwpdbccd,ccp4monomerlibrary,same_name
_chem_comp.name,_chem_comp.name,Y
_chem_comp_atom.atom_id,_chem_comp_atom.atom_id,Y
`)
	res := engine.CompareText(wwpdbACN, ccp4ACN)

	assert.True(t, res.Has(domain.UnitName))
	assert.True(t, res.Has(domain.UnitAtom))
	assert.False(t, res.Has(domain.UnitBond))
	assert.False(t, res.Has(domain.UnitDescriptor))
	assert.Equal(t, domain.VerdictAbsent, res.Verdict(domain.UnitBond))
	assert.True(t, res.Overall())
}

func TestEngine_EmptyTable(t *testing.T) {
	engine := comparison.NewEngine(correlation.New(nil))
	res := engine.CompareText(wwpdbACN, "")
	assert.Empty(t, res.Units)
	assert.True(t, res.Overall())
}

func TestEngine_MissingLoopsAreEmpty(t *testing.T) {
	engine := newEngine(t, fullTable)
	res := engine.Compare(cif.Parse(""), cif.Parse(""))
	for _, u := range domain.AllUnits {
		assert.True(t, res.Units[u], "unit %s", u)
	}

	res = engine.Compare(cif.Parse(wwpdbACN), cif.Parse(""))
	assert.False(t, res.Units[domain.UnitAtom])
	assert.False(t, res.Units[domain.UnitName])
}

func TestEngine_Diff(t *testing.T) {
	engine := newEngine(t, fullTable)
	b := strings.Replace(ccp4ACN, "ACN O  O O   0", "ACN N  N N   0", 1)
	b = strings.Replace(b, "'Acetone'", "'Propanone'", 1)

	diffs := engine.Diff(cif.Parse(wwpdbACN), cif.Parse(b))
	require.Len(t, diffs, 2)

	assert.Equal(t, domain.UnitName, diffs[0].Unit)
	assert.Equal(t, []string{"ACETONE"}, diffs[0].OnlyInA)
	assert.Equal(t, []string{"Propanone"}, diffs[0].OnlyInB)

	assert.Equal(t, domain.UnitAtom, diffs[1].Unit)
	assert.Equal(t, []string{"O(O,0)"}, diffs[1].OnlyInA)
	assert.Equal(t, []string{"N(N,0)"}, diffs[1].OnlyInB)

	only := engine.Diff(cif.Parse(wwpdbACN), cif.Parse(b), domain.UnitAtom)
	require.Len(t, only, 1)
	assert.Equal(t, domain.UnitAtom, only[0].Unit)
}

func TestEngine_DiffShowsSourceText(t *testing.T) {
	engine := newEngine(t, fullTable)
	a := "loop_\n_chem_comp_bond.atom_id_1\n_chem_comp_bond.atom_id_2\n_chem_comp_bond.value_order\n_chem_comp_bond.pdbx_aromatic_flag\nC1 C2 SING N\n"
	b := "loop_\n_chem_comp_bond.atom_id_1\n_chem_comp_bond.atom_id_2\n_chem_comp_bond.type\n_chem_comp_bond.aromatic\nC2 C1 DOUB N\n"

	diffs := engine.Diff(cif.Parse(a), cif.Parse(b), domain.UnitBond)
	require.Len(t, diffs, 1)
	assert.Equal(t, []string{"C1-C2(SING,N)"}, diffs[0].OnlyInA)
	assert.Equal(t, []string{"C1-C2(DOUB,N)"}, diffs[0].OnlyInB)
}

func TestFormatTuple(t *testing.T) {
	assert.Equal(t, "c1-c2(single,n)", comparison.FormatTuple(domain.UnitBond, []string{"c1", "c2", "single", "n"}))
	assert.Equal(t, "(cactvs 3.341): cc(c)=o", comparison.FormatTuple(domain.UnitDescriptor, []string{"cactvs", "3.341", "cc(c)=o"}))

	long := strings.Repeat("x", 60)
	got := comparison.FormatTuple(domain.UnitDescriptor, []string{"inchi", "inchi", "1.03", long})
	assert.Equal(t, "inchi(inchi 1.03): "+strings.Repeat("x", 47)+"...", got)
	assert.Equal(t, "a,b", comparison.FormatTuple(domain.UnitAtom, []string{"a", "b"}))

	wide := strings.Repeat("é", 60)
	got = comparison.FormatTuple(domain.UnitDescriptor, []string{"InChI", "InChI", "1.03", wide})
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "InChI(InChI 1.03): "+strings.Repeat("é", 47)+"...", got)
}
