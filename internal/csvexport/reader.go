package csvexport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"ccdsync/internal/domain"
)

// ErrMissingCodeColumn is returned when a results file has no ccd_code column.
var ErrMissingCodeColumn = errors.New("results file has no ccd_code column")

// Table is a results file read back with its original column order, so it
// can be rewritten without losing unknown columns.
type Table struct {
	Header []string
	Rows   []map[string]string
}

// Read parses a results CSV.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingCodeColumn
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
	}

	t := &Table{Header: header}
	if !t.HasColumn(ColCode) {
		return nil, ErrMissingCodeColumn
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(t.Rows)+2, err)
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadFile parses the results CSV at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Header {
		if h == name {
			return true
		}
	}
	return false
}

// Write writes the table with its original header order.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := make([]string, len(t.Header))
		for i, h := range t.Header {
			rec[i] = row[h]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := t.Write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Records converts every row into a ComparisonRecord.
func (t *Table) Records() []domain.ComparisonRecord {
	out := make([]domain.ComparisonRecord, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = RecordFromRow(row)
	}
	return out
}

// RecordFromRow converts one results row into a ComparisonRecord.
func RecordFromRow(row map[string]string) domain.ComparisonRecord {
	rec := domain.ComparisonRecord{
		CCDCode:           strings.TrimSpace(row[ColCode]),
		OverallIdentical:  domain.Verdict(strings.TrimSpace(row[ColOverall])),
		WWPDBModifiedDate: strings.TrimSpace(row[ColWWPDBDate]),
		CCP4ModifiedDate:  strings.TrimSpace(row[ColCCP4Date]),
	}
	for _, u := range domain.AllUnits {
		rec.SetVerdict(u, domain.Verdict(strings.TrimSpace(row[UnitColumn(u)])))
	}
	return rec
}

// ReadMissingFile parses a missing-files report. A report that does not
// exist yields no entries.
func ReadMissingFile(path string) ([]domain.MissingFile, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	table, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	yes := string(domain.VerdictIdentical)
	missing := make([]domain.MissingFile, 0, len(table.Rows))
	for _, row := range table.Rows {
		missing = append(missing, domain.MissingFile{
			CCDCode:         strings.TrimSpace(row[ColCode]),
			MissingFromSet1: row[MissingColumns[1]] == yes,
			MissingFromSet2: row[MissingColumns[2]] == yes,
		})
	}
	return missing, nil
}
