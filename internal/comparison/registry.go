package comparison

import "ccdsync/internal/domain"

// Registry maps comparison units to their comparators.
type Registry struct {
	comparators map[domain.ComparisonUnit]Comparator
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{comparators: make(map[domain.ComparisonUnit]Comparator)}
}

// Register adds a comparator, replacing any previous one for the same unit.
func (r *Registry) Register(c Comparator) {
	r.comparators[c.Unit()] = c
}

// Get returns the comparator for a unit, or nil if not registered.
func (r *Registry) Get(u domain.ComparisonUnit) Comparator {
	return r.comparators[u]
}

// All returns the registered comparators in report column order.
func (r *Registry) All() []Comparator {
	out := make([]Comparator, 0, len(r.comparators))
	for _, u := range domain.AllUnits {
		if c, ok := r.comparators[u]; ok {
			out = append(out, c)
		}
	}
	return out
}
