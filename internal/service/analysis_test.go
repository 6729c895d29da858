package service_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccdsync/internal/domain"
	"ccdsync/internal/service"
)

func record(code string, overall domain.Verdict, wwpdb, ccp4 string) domain.ComparisonRecord {
	return domain.ComparisonRecord{
		CCDCode:           code,
		NameIdentical:     domain.VerdictIdentical,
		AtomIdentical:     overall,
		OverallIdentical:  overall,
		WWPDBModifiedDate: wwpdb,
		CCP4ModifiedDate:  ccp4,
	}
}

func TestAnalyze(t *testing.T) {
	records := []domain.ComparisonRecord{
		record("ACN", domain.VerdictIdentical, "2011-06-04", "2011-06-04"),
		record("BEN", domain.VerdictDifferent, "2020-01-31", "2020-01-01"),
		record("CAT", domain.VerdictDifferent, "2020-01-03", "2020-01-01"),
		record("DOG", domain.VerdictIdentical, "2019-01-01", "2021-01-01"),
		record("EEL", domain.VerdictIdentical, "", "2021-01-01"),
		domain.NewErrorRecord("FOX", nil),
	}

	a := service.Analyze(records)

	assert.Equal(t, 6, a.TotalEntries)
	assert.Equal(t, 5, a.IdentityCounts["name_identical_Y"])
	assert.Equal(t, 3, a.IdentityCounts["atom_identical_Y"])
	assert.Equal(t, 2, a.IdentityCounts["atom_identical_N"])
	assert.Equal(t, 3, a.IdentityCounts["overall_identical_Y"])
	assert.Zero(t, a.IdentityCounts["bond_identical_Y"])
	assert.Equal(t, map[domain.Verdict]int{domain.VerdictIdentical: 3, domain.VerdictDifferent: 2}, a.OverallIdentical)

	assert.Equal(t, map[domain.DateStatus]int{
		domain.DateStatusOutdated: 2,
		domain.DateStatusUpToDate: 1,
		domain.DateStatusEqual:    1,
		domain.DateStatusMissing:  2,
	}, a.DateComparison)

	require.Len(t, a.OutdatedEntries, 2)
	assert.Equal(t, "BEN", a.OutdatedEntries[0].CCDCode)
	assert.Equal(t, 30, a.OutdatedEntries[0].DaysBehind)
	assert.Equal(t, "CAT", a.OutdatedEntries[1].CCDCode)
	assert.Equal(t, 2, a.OutdatedEntries[1].DaysBehind)
}

func TestAnalyze_Empty(t *testing.T) {
	a := service.Analyze(nil)

	assert.Zero(t, a.TotalEntries)
	assert.Len(t, a.DateComparison, 4)
	assert.Empty(t, a.OutdatedEntries)
}

func TestWriteAnalysisReport(t *testing.T) {
	a := service.Analyze([]domain.ComparisonRecord{
		record("ACN", domain.VerdictIdentical, "2011-06-04", "2011-06-04"),
		record("BEN", domain.VerdictDifferent, "2020-01-31", "2020-01-01"),
	})

	var buf bytes.Buffer
	require.NoError(t, service.WriteAnalysisReport(&buf, &a))
	out := buf.String()

	assert.Contains(t, out, "COMPARISON RESULTS ANALYSIS REPORT")
	assert.Contains(t, out, "Total entries: 2")
	assert.Contains(t, out, "Identical: 1 (50.00%)")
	assert.Contains(t, out, "Total outdated entries: 1")
	assert.Contains(t, out, "BEN")
	assert.Contains(t, out, "Average days behind: 30.0")
	assert.Contains(t, out, "Outdated and different: 1 (100.00%)")
}

func TestWriteAnalysisReport_NoOutdated(t *testing.T) {
	a := service.Analyze([]domain.ComparisonRecord{
		record("ACN", domain.VerdictIdentical, "2011-06-04", "2012-06-04"),
	})

	var buf bytes.Buffer
	require.NoError(t, service.WriteAnalysisReport(&buf, &a))
	assert.Contains(t, buf.String(), "No outdated CCP4 files found.")
}
