package comparison

import (
	"slices"
	"strings"

	"ccdsync/internal/cif"
	"ccdsync/internal/domain"
	"ccdsync/internal/normalize"
)

// Comparator judges one comparison unit for a document pair.
type Comparator interface {
	Unit() domain.ComparisonUnit
	Compare(a, b *cif.Document) bool
	Diff(a, b *cif.Document) domain.UnitDifference
}

// NewComparator returns the comparator for a plan.
func NewComparator(p Plan) Comparator {
	if p.Kind == KindScalar {
		return &scalarComparator{plan: p}
	}
	return &groupedComparator{plan: p}
}

type scalarComparator struct {
	plan Plan
}

func (c *scalarComparator) Unit() domain.ComparisonUnit { return c.plan.Unit }

func (c *scalarComparator) values(a, b *cif.Document) (rawA, rawB, normA, normB string) {
	rawA, _ = a.Lookup(c.plan.FieldsA[0])
	rawB, _ = b.Lookup(c.plan.FieldsB[0])

	norm := normalize.Value
	if strings.Contains(c.plan.FieldsA[0], "value_order") || strings.Contains(c.plan.FieldsB[0], "type") {
		norm = normalize.BondOrder
	}
	return rawA, rawB, norm(rawA), norm(rawB)
}

func (c *scalarComparator) Compare(a, b *cif.Document) bool {
	_, _, na, nb := c.values(a, b)
	return na == nb
}

func (c *scalarComparator) Diff(a, b *cif.Document) domain.UnitDifference {
	diff := domain.UnitDifference{Unit: c.plan.Unit}
	rawA, rawB, na, nb := c.values(a, b)
	if na == nb {
		return diff
	}
	if v := strings.TrimSpace(rawA); v != "" {
		diff.OnlyInA = []string{v}
	}
	if v := strings.TrimSpace(rawB); v != "" {
		diff.OnlyInB = []string{v}
	}
	return diff
}

type groupedComparator struct {
	plan Plan
}

func (c *groupedComparator) Unit() domain.ComparisonUnit { return c.plan.Unit }

// row is one projected loop row: norm is compared, show is the source text
// used in difference reports.
type row struct {
	norm []string
	show []string
}

// tuples projects, normalizes and sorts the rows of one side.
func (c *groupedComparator) tuples(doc *cif.Document, fields []string) []row {
	rows := doc.Project(cif.CategoryOf(fields[0]), fields)
	paths := fields
	if c.plan.DropKey {
		paths = fields[1:]
	}

	out := make([]row, 0, len(rows))
	for _, values := range rows {
		if c.plan.DropKey {
			values = values[1:]
		}
		r := row{norm: make([]string, len(values)), show: make([]string, len(values))}
		for i, v := range values {
			r.norm[i] = normalize.ForField(paths[i], v)
			r.show[i] = display(v)
		}
		if c.plan.Undirected && len(r.norm) >= 2 && r.norm[0] > r.norm[1] {
			r.norm[0], r.norm[1] = r.norm[1], r.norm[0]
			r.show[0], r.show[1] = r.show[1], r.show[0]
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(x, y row) int { return slices.Compare(x.norm, y.norm) })
	return out
}

// display keeps the source case of a value but drops surrounding
// whitespace and line breaks.
func display(v string) string {
	v = strings.TrimSpace(v)
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

func (c *groupedComparator) Compare(a, b *cif.Document) bool {
	ta := c.tuples(a, c.plan.FieldsA)
	tb := c.tuples(b, c.plan.FieldsB)
	if len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		if !slices.Equal(ta[i].norm, tb[i].norm) {
			return false
		}
	}
	return true
}

// Diff returns the tuples each side has more often than the other.
func (c *groupedComparator) Diff(a, b *cif.Document) domain.UnitDifference {
	ta := c.tuples(a, c.plan.FieldsA)
	tb := c.tuples(b, c.plan.FieldsB)
	return domain.UnitDifference{
		Unit:    c.plan.Unit,
		OnlyInA: c.surplus(ta, tb),
		OnlyInB: c.surplus(tb, ta),
	}
}

func (c *groupedComparator) surplus(from, against []row) []string {
	counts := make(map[string]int, len(against))
	for _, r := range against {
		counts[tupleKey(r.norm)]++
	}
	var out []string
	for _, r := range from {
		k := tupleKey(r.norm)
		if counts[k] > 0 {
			counts[k]--
			continue
		}
		out = append(out, FormatTuple(c.plan.Unit, r.show))
	}
	return out
}

func tupleKey(t []string) string {
	return strings.Join(t, "\x1f")
}
