package comparison

import (
	"slices"
	"strings"

	"ccdsync/internal/cif"
	"ccdsync/internal/correlation"
	"ccdsync/internal/domain"
)

// Kind distinguishes single-value units from row-set units.
type Kind int

const (
	KindScalar Kind = iota
	KindGrouped
)

// Plan is the resolved field mapping for one comparison unit.
type Plan struct {
	Unit    domain.ComparisonUnit
	Kind    Kind
	FieldsA []string
	FieldsB []string
	// Undirected orders the first two elements of each tuple before sorting.
	Undirected bool
	// DropKey removes the first column on both sides. Set when the set-2
	// descriptor fields come from a differently named category whose first
	// column is not comparable.
	DropKey bool
}

// CategoryA is the set-1 loop the unit reads.
func (p Plan) CategoryA() string { return cif.CategoryOf(p.FieldsA[0]) }

// CategoryB is the set-2 loop the unit reads.
func (p Plan) CategoryB() string { return cif.CategoryOf(p.FieldsB[0]) }

type unitLayout struct {
	unit   domain.ComparisonUnit
	kind   Kind
	fields []string
}

var layouts = []unitLayout{
	{domain.UnitName, KindScalar, []string{"_chem_comp.name"}},
	{domain.UnitType, KindScalar, []string{"_chem_comp.type"}},
	{domain.UnitAtom, KindGrouped, []string{
		"_chem_comp_atom.atom_id",
		"_chem_comp_atom.type_symbol",
		"_chem_comp_atom.charge",
	}},
	{domain.UnitBond, KindGrouped, []string{
		"_chem_comp_bond.atom_id_1",
		"_chem_comp_bond.atom_id_2",
		"_chem_comp_bond.value_order",
		"_chem_comp_bond.pdbx_aromatic_flag",
	}},
	{domain.UnitDescriptor, KindGrouped, []string{
		"_pdbx_chem_comp_descriptor.type",
		"_pdbx_chem_comp_descriptor.program",
		"_pdbx_chem_comp_descriptor.program_version",
		"_pdbx_chem_comp_descriptor.descriptor",
	}},
}

// BuildPlans resolves the comparison units a table defines, in report column
// order. Units without a matching entry are left out.
func BuildPlans(t *correlation.Table) []Plan {
	var plans []Plan
	for _, l := range layouts {
		var (
			p  Plan
			ok bool
		)
		if l.kind == KindScalar {
			p, ok = scalarPlan(t, l)
		} else {
			p, ok = groupedPlan(t, l)
		}
		if ok {
			plans = append(plans, p)
		}
	}
	return plans
}

func scalarPlan(t *correlation.Table, l unitLayout) (Plan, bool) {
	e, ok := t.Find(l.fields[0])
	if !ok {
		return Plan{}, false
	}
	return Plan{
		Unit:    l.unit,
		Kind:    KindScalar,
		FieldsA: e.FieldsA[:1],
		FieldsB: e.FieldsB[:1],
	}, true
}

func groupedPlan(t *correlation.Table, l unitLayout) (Plan, bool) {
	categoryA := cif.CategoryOf(l.fields[0])

	var entries, same []correlation.Entry
	for _, e := range t.Entries() {
		if !slices.Contains(l.fields, e.FieldsA[0]) {
			continue
		}
		entries = append(entries, e)
		if e.CategoryB() == categoryA {
			same = append(same, e)
		}
	}

	// Descriptors prefer a same-named set-2 category over a remapped one.
	if l.unit == domain.UnitDescriptor && len(same) > 0 {
		entries = same
	}
	if len(entries) == 0 {
		return Plan{}, false
	}

	// Later table rows override earlier ones for the same set-1 path.
	mapping := make(map[string]string, len(entries))
	for _, e := range entries {
		mapping[e.FieldsA[0]] = e.FieldsB[0]
	}

	p := Plan{Unit: l.unit, Kind: KindGrouped}
	for _, f := range l.fields {
		if b, ok := mapping[f]; ok {
			p.FieldsA = append(p.FieldsA, f)
			p.FieldsB = append(p.FieldsB, b)
		}
	}

	joined := strings.Join(p.FieldsA, "/")
	p.Undirected = l.unit == domain.UnitBond &&
		strings.Contains(joined, "atom_id_1") && strings.Contains(joined, "atom_id_2")
	p.DropKey = l.unit == domain.UnitDescriptor && p.CategoryB() != categoryA
	return p, true
}
