package xlsxexport_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ccdsync/internal/domain"
	"ccdsync/internal/xlsxexport"
)

func sampleRecords() []domain.ComparisonRecord {
	res := domain.NewComparisonResult()
	res.Units[domain.UnitName] = true
	res.Units[domain.UnitBond] = false
	return []domain.ComparisonRecord{
		domain.NewComparisonRecord("ACN", res, "2011-06-04", "2020-01-01"),
		domain.NewErrorRecord("BAD", nil),
	}
}

func TestWrite_ResultsOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xlsxexport.Write(&buf, xlsxexport.Report{Records: sampleRecords()}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{xlsxexport.SheetResults}, f.GetSheetList())

	rows, err := f.GetRows(xlsxexport.SheetResults)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ccd_code", rows[0][0])
	assert.Equal(t, "ccp4_modified_date", rows[0][8])
	assert.Equal(t, []string{"ACN", "Y", "", "", "N", "", "N", "2011-06-04", "2020-01-01"}, rows[1])
	assert.Equal(t, "ERROR", rows[2][1])
	assert.Equal(t, "ERROR", rows[2][6])
}

func TestWrite_AllSheets(t *testing.T) {
	analysis := &domain.Analysis{
		TotalEntries:     2,
		IdentityCounts:   map[string]int{"name_identical": 1},
		OverallIdentical: map[domain.Verdict]int{domain.VerdictDifferent: 1, domain.VerdictError: 1},
		DateComparison:   map[domain.DateStatus]int{domain.DateStatusUpToDate: 1},
		OutdatedEntries: []domain.OutdatedEntry{
			{CCDCode: "XYZ", WWPDBDate: "2024-01-10", CCP4Date: "2024-01-01", DaysBehind: 9, OverallIdentical: domain.VerdictDifferent},
		},
	}
	rep := xlsxexport.Report{
		Records:  sampleRecords(),
		Missing:  []domain.MissingFile{{CCDCode: "ZZZ", MissingFromSet2: true}},
		Analysis: analysis,
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, xlsxexport.WriteFile(path, rep))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{xlsxexport.SheetResults, xlsxexport.SheetMissing, xlsxexport.SheetAnalysis}, f.GetSheetList())

	missing, err := f.GetRows(xlsxexport.SheetMissing)
	require.NoError(t, err)
	assert.Equal(t, []string{"ZZZ", "N", "Y", "N"}, missing[1])

	total, err := f.GetCellValue(xlsxexport.SheetAnalysis, "C2")
	require.NoError(t, err)
	assert.Equal(t, "2", total)

	rows, err := f.GetRows(xlsxexport.SheetAnalysis)
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, []string{"XYZ", "2024-01-10", "2024-01-01", "9", "N"}, last)
}
