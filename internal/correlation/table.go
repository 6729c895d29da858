// Package correlation loads the table that maps set-1 field-paths to their
// set-2 counterparts.
package correlation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"ccdsync/internal/cif"
	"ccdsync/internal/domain"
)

// Columns names the header cells of a correlation table.
type Columns struct {
	A        string
	B        string
	SameName string
}

// DefaultColumns are the headers used by the published correlation tables.
var DefaultColumns = Columns{
	A:        "wwpdbccd",
	B:        "ccp4monomerlibrary",
	SameName: "same_name",
}

// Entry maps one or more set-1 field-paths to set-2 field-paths, aligned by
// position.
type Entry struct {
	FieldsA  []string
	FieldsB  []string
	SameName bool
}

// Category is the set-1 category of the entry.
func (e Entry) Category() string {
	if len(e.FieldsA) == 0 {
		return ""
	}
	return cif.CategoryOf(e.FieldsA[0])
}

// CategoryB is the set-2 category of the entry.
func (e Entry) CategoryB() string {
	if len(e.FieldsB) == 0 {
		return ""
	}
	return cif.CategoryOf(e.FieldsB[0])
}

// Table is an ordered, read-only list of entries.
type Table struct {
	entries []Entry
}

// New builds a table from entries. Entries with an empty side are dropped.
func New(entries []Entry) *Table {
	t := &Table{}
	for _, e := range entries {
		if len(e.FieldsA) == 0 || len(e.FieldsA) != len(e.FieldsB) {
			continue
		}
		t.entries = append(t.entries, e)
	}
	return t
}

// Entries returns the entries in source order.
func (t *Table) Entries() []Entry {
	return t.entries
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// GroupByCategory groups entries by set-1 category, keeping source order
// inside each group.
func (t *Table) GroupByCategory() map[string][]Entry {
	grouped := make(map[string][]Entry)
	for _, e := range t.entries {
		grouped[e.Category()] = append(grouped[e.Category()], e)
	}
	return grouped
}

// Find returns the first entry whose first set-1 path equals pathA.
func (t *Table) Find(pathA string) (Entry, bool) {
	for _, e := range t.entries {
		if e.FieldsA[0] == pathA {
			return e, true
		}
	}
	return Entry{}, false
}

// Load reads a correlation table from a .csv or .xlsx file.
func Load(path string, cols Columns) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path, cols)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening correlation table: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(f, cols)
}

// ReadCSV reads a correlation table in CSV form.
func ReadCSV(r io.Reader, cols Columns) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading correlation table: %w", err)
	}
	return fromRecords(records, cols)
}

// LoadXLSX reads a correlation table from the first sheet of a workbook.
func LoadXLSX(path string, cols Columns) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening correlation workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("reading correlation sheet: %w", err)
	}
	return fromRecords(rows, cols)
}

func fromRecords(records [][]string, cols Columns) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file: %w", domain.ErrInvalidCorrelationTable)
	}
	idxA, idxB, idxSame := -1, -1, -1
	for i, h := range records[0] {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case cols.A:
			idxA = i
		case cols.B:
			idxB = i
		case cols.SameName:
			idxSame = i
		}
	}
	if idxA < 0 || idxB < 0 {
		return nil, fmt.Errorf("columns %q and %q are required: %w", cols.A, cols.B, domain.ErrInvalidCorrelationTable)
	}

	var entries []Entry
	for _, rec := range records[1:] {
		a := strings.TrimSpace(cell(rec, idxA))
		b := strings.TrimSpace(cell(rec, idxB))
		if a == "" || b == "" {
			continue
		}
		entries = append(entries, Entry{
			FieldsA:  []string{a},
			FieldsB:  []string{b},
			SameName: strings.EqualFold(strings.TrimSpace(cell(rec, idxSame)), "Y"),
		})
	}
	return New(entries), nil
}

func cell(row []string, idx int) string {
	if idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}
