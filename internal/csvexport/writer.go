package csvexport

import (
	"encoding/csv"
	"io"
	"strings"

	"ccdsync/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Result column names.
const (
	ColCode      = "ccd_code"
	ColOverall   = "overall_identical"
	ColWWPDBDate = "wwpdb_modified_date"
	ColCCP4Date  = "ccp4_modified_date"
)

// UnitColumn returns the identity column of a unit, e.g. "atom_identical".
func UnitColumn(u domain.ComparisonUnit) string {
	return string(u) + "_identical"
}

// ResultColumns defines the results header row.
var ResultColumns = []string{
	ColCode,
	UnitColumn(domain.UnitName),
	UnitColumn(domain.UnitType),
	UnitColumn(domain.UnitAtom),
	UnitColumn(domain.UnitBond),
	UnitColumn(domain.UnitDescriptor),
	ColOverall,
	ColWWPDBDate,
	ColCCP4Date,
}

// Writer wraps csv.Writer for exporting comparison records.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the results header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(ResultColumns)
}

// WriteRecords converts a batch of records to CSV rows and writes them.
func (w *Writer) WriteRecords(recs []domain.ComparisonRecord) error {
	for i := range recs {
		if err := w.csv.Write(recordToRow(&recs[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func recordToRow(rec *domain.ComparisonRecord) []string {
	row := make([]string, 0, len(ResultColumns))
	row = append(row, rec.CCDCode)
	for _, u := range domain.AllUnits {
		row = append(row, string(rec.Verdict(u)))
	}
	return append(row, string(rec.OverallIdentical), rec.WWPDBModifiedDate, rec.CCP4ModifiedDate)
}

// MissingColumns defines the missing-files header row.
var MissingColumns = []string{"ccd_code", "missing_from_set1", "missing_from_set2", "missing_from_both"}

// WriteMissing writes the missing-files report.
func WriteMissing(w io.Writer, missing []domain.MissingFile) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MissingColumns); err != nil {
		return err
	}
	for _, m := range missing {
		if err := cw.Write([]string{
			m.CCDCode,
			yesNo(m.MissingFromSet1),
			yesNo(m.MissingFromSet2),
			yesNo(m.MissingFromSet1 && m.MissingFromSet2),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DetailColumns are appended to the results columns in detailed reports.
var DetailColumns = []string{
	"set1_name", "set2_name",
	"set1_type", "set2_type",
	"set1_atoms", "set2_atoms",
	"set1_bonds", "set2_bonds",
	"set1_descriptors", "set2_descriptors",
	"note",
}

const detailSeparator = "; "

// WriteDetailed writes the detailed differences report: every results
// column followed by the per-unit differences.
func WriteDetailed(w io.Writer, recs []domain.DetailedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string(nil), ResultColumns...), DetailColumns...)); err != nil {
		return err
	}
	for i := range recs {
		if err := cw.Write(detailedToRow(&recs[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func detailedToRow(rec *domain.DetailedRecord) []string {
	row := recordToRow(&rec.Record)
	detail := make([]string, len(DetailColumns))
	for _, d := range rec.Differences {
		idx := unitDetailIndex(d.Unit)
		if idx < 0 {
			continue
		}
		detail[idx] = strings.Join(d.OnlyInA, detailSeparator)
		detail[idx+1] = strings.Join(d.OnlyInB, detailSeparator)
	}
	detail[len(detail)-1] = rec.Note
	return append(row, detail...)
}

func unitDetailIndex(u domain.ComparisonUnit) int {
	for i, unit := range domain.AllUnits {
		if unit == u {
			return i * 2
		}
	}
	return -1
}

func yesNo(v bool) string {
	if v {
		return string(domain.VerdictIdentical)
	}
	return string(domain.VerdictDifferent)
}
