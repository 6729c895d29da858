// Package xlsxexport writes comparison reports as Excel workbooks.
package xlsxexport

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/xuri/excelize/v2"

	"ccdsync/internal/csvexport"
	"ccdsync/internal/domain"
)

// Sheet names.
const (
	SheetResults  = "Results"
	SheetMissing  = "Missing"
	SheetAnalysis = "Analysis"
)

// Report is the content of one workbook. Missing and Analysis are optional.
type Report struct {
	Records  []domain.ComparisonRecord
	Missing  []domain.MissingFile
	Analysis *domain.Analysis
}

// Write renders the report into a workbook and writes it to w.
func Write(w io.Writer, rep Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetResults); err != nil {
		return fmt.Errorf("renaming results sheet: %w", err)
	}
	if err := writeResults(f, rep.Records); err != nil {
		return err
	}
	if len(rep.Missing) > 0 {
		if err := writeMissing(f, rep.Missing); err != nil {
			return err
		}
	}
	if rep.Analysis != nil {
		if err := writeAnalysis(f, rep.Analysis); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// WriteFile renders the report to path.
func WriteFile(path string, rep Report) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(out, rep); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func writeResults(f *excelize.File, recs []domain.ComparisonRecord) error {
	if err := setRow(f, SheetResults, 1, toCells(csvexport.ResultColumns)); err != nil {
		return err
	}
	for i := range recs {
		rec := &recs[i]
		row := []interface{}{rec.CCDCode}
		for _, u := range domain.AllUnits {
			row = append(row, string(rec.Verdict(u)))
		}
		row = append(row, string(rec.OverallIdentical), rec.WWPDBModifiedDate, rec.CCP4ModifiedDate)
		if err := setRow(f, SheetResults, i+2, row); err != nil {
			return err
		}
	}
	return freezeHeader(f, SheetResults)
}

func writeMissing(f *excelize.File, missing []domain.MissingFile) error {
	if _, err := f.NewSheet(SheetMissing); err != nil {
		return fmt.Errorf("creating missing sheet: %w", err)
	}
	if err := setRow(f, SheetMissing, 1, toCells(csvexport.MissingColumns)); err != nil {
		return err
	}
	for i, m := range missing {
		row := []interface{}{
			m.CCDCode,
			yesNo(m.MissingFromSet1),
			yesNo(m.MissingFromSet2),
			yesNo(m.MissingFromSet1 && m.MissingFromSet2),
		}
		if err := setRow(f, SheetMissing, i+2, row); err != nil {
			return err
		}
	}
	return freezeHeader(f, SheetMissing)
}

func writeAnalysis(f *excelize.File, a *domain.Analysis) error {
	if _, err := f.NewSheet(SheetAnalysis); err != nil {
		return fmt.Errorf("creating analysis sheet: %w", err)
	}
	rows := [][]interface{}{
		{"metric", "value", "count"},
		{"total_entries", "", a.TotalEntries},
	}
	for _, col := range sortedKeys(a.IdentityCounts) {
		rows = append(rows, []interface{}{"identity", col, a.IdentityCounts[col]})
	}
	for _, v := range []domain.Verdict{domain.VerdictIdentical, domain.VerdictDifferent, domain.VerdictError} {
		if n, ok := a.OverallIdentical[v]; ok {
			rows = append(rows, []interface{}{csvexport.ColOverall, string(v), n})
		}
	}
	for _, s := range []domain.DateStatus{domain.DateStatusOutdated, domain.DateStatusUpToDate, domain.DateStatusEqual, domain.DateStatusMissing} {
		rows = append(rows, []interface{}{"date_comparison", string(s), a.DateComparison[s]})
	}
	rows = append(rows, []interface{}{}, []interface{}{"ccd_code", "wwpdb_date", "ccp4_date", "days_behind", csvexport.ColOverall})
	for _, o := range a.OutdatedEntries {
		rows = append(rows, []interface{}{o.CCDCode, o.WWPDBDate, o.CCP4Date, o.DaysBehind, string(o.OverallIdentical)})
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := setRow(f, SheetAnalysis, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func freezeHeader(f *excelize.File, sheet string) error {
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func toCells(cols []string) []interface{} {
	out := make([]interface{}, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func yesNo(v bool) string {
	if v {
		return string(domain.VerdictIdentical)
	}
	return string(domain.VerdictDifferent)
}
