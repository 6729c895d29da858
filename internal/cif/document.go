// Package cif reads the mmCIF subset used by chemical component files into a
// Document of scalar items and loop tables.
package cif

import (
	"sort"
	"strings"
)

// Row maps each header field-path of a loop to its value in one record.
type Row map[string]string

// Loop is a tabular block. Every row carries every header.
type Loop struct {
	Category string
	Headers  []string
	Rows     []Row
}

// Document is the parsed form of one mmCIF text. It is not modified after
// Parse returns and may be read from several goroutines.
type Document struct {
	DataBlock string
	scalars   map[string]string
	loops     map[string]*Loop
}

func newDocument() *Document {
	return &Document{
		scalars: make(map[string]string),
		loops:   make(map[string]*Loop),
	}
}

// Scalar returns a single-value item by its exact key.
func (d *Document) Scalar(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	v, ok := d.scalars[key]
	return v, ok
}

// ScalarKeys returns all scalar keys in sorted order.
func (d *Document) ScalarKeys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.scalars))
	for k := range d.scalars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Loop returns the loop for a category. Both "_chem_comp_atom" and
// "chem_comp_atom" resolve to the same loop.
func (d *Document) Loop(category string) *Loop {
	if d == nil {
		return nil
	}
	key := strings.TrimLeft(category, "_")
	if l, ok := d.loops[key]; ok {
		return l
	}
	if l, ok := d.loops["_"+key]; ok {
		return l
	}
	return nil
}

// Rows returns the rows of a category, or nil when the category has no loop.
func (d *Document) Rows(category string) []Row {
	l := d.Loop(category)
	if l == nil {
		return nil
	}
	return l.Rows
}

// Categories returns the loop category names in sorted order.
func (d *Document) Categories() []string {
	if d == nil {
		return nil
	}
	cats := make([]string, 0, len(d.loops))
	for c := range d.loops {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Lookup resolves a field-path to a single value. It tries, in order, the
// scalar under the exact path, the scalar under the path without its leading
// underscore (where multi-line values are stored), and the first row of the
// loop for the path's category. Empty scalars fall through to the next step.
func (d *Document) Lookup(path string) (string, bool) {
	if d == nil {
		return "", false
	}
	if v, ok := d.scalars[path]; ok && v != "" {
		return v, true
	}
	bare := strings.TrimLeft(path, "_")
	if bare != path {
		if v, ok := d.scalars[bare]; ok && v != "" {
			return v, true
		}
	}

	rows := d.Rows(CategoryOf(path))
	if len(rows) == 0 {
		return "", false
	}
	if v, ok := rows[0][path]; ok {
		return v, true
	}
	if v, ok := rows[0][bare]; ok {
		return v, true
	}
	return "", false
}

// Project returns one tuple per row of category, holding the values of paths
// in order. Columns missing from the loop yield empty strings.
func (d *Document) Project(category string, paths []string) [][]string {
	rows := d.Rows(category)
	if len(rows) == 0 || len(paths) == 0 {
		return nil
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		tuple := make([]string, len(paths))
		for i, p := range paths {
			tuple[i] = row[p]
		}
		out = append(out, tuple)
	}
	return out
}

// CategoryOf returns the part of a field-path before the first dot.
func CategoryOf(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}
