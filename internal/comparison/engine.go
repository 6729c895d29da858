// Package comparison decides whether two chemical-component documents are
// equivalent, unit by unit, under a correlation table.
package comparison

import (
	"slices"

	"ccdsync/internal/cif"
	"ccdsync/internal/correlation"
	"ccdsync/internal/domain"
)

// Engine runs every registered comparator over a document pair. It holds no
// mutable state and is shared by all comparison workers.
type Engine struct {
	registry *Registry
	plans    []Plan
}

// NewEngine plans the units defined by table and registers a comparator for
// each.
func NewEngine(table *correlation.Table) *Engine {
	plans := BuildPlans(table)
	registry := NewRegistry()
	for _, p := range plans {
		registry.Register(NewComparator(p))
	}
	return &Engine{registry: registry, plans: plans}
}

// Plans returns the resolved unit plans in report column order.
func (e *Engine) Plans() []Plan {
	return e.plans
}

// Compare returns the verdict for every unit the table defines.
func (e *Engine) Compare(a, b *cif.Document) domain.ComparisonResult {
	res := domain.NewComparisonResult()
	for _, c := range e.registry.All() {
		res.Units[c.Unit()] = c.Compare(a, b)
	}
	return res
}

// CompareText parses both texts and compares them.
func (e *Engine) CompareText(a, b string) domain.ComparisonResult {
	return e.Compare(cif.Parse(a), cif.Parse(b))
}

// Diff returns the differences of every unit that does not match. When only
// is non-empty, other units are skipped.
func (e *Engine) Diff(a, b *cif.Document, only ...domain.ComparisonUnit) []domain.UnitDifference {
	var diffs []domain.UnitDifference
	for _, c := range e.registry.All() {
		if len(only) > 0 && !slices.Contains(only, c.Unit()) {
			continue
		}
		if c.Compare(a, b) {
			continue
		}
		diffs = append(diffs, c.Diff(a, b))
	}
	return diffs
}
