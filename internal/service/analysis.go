package service

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ccdsync/internal/csvexport"
	"ccdsync/internal/domain"
)

// outdatedListed caps the outdated entries printed in the text report.
const outdatedListed = 20

// identityColumns are counted per Y/N value.
var identityColumns = append(unitColumns(), csvexport.ColOverall)

func unitColumns() []string {
	cols := make([]string, len(domain.AllUnits))
	for i, u := range domain.AllUnits {
		cols[i] = csvexport.UnitColumn(u)
	}
	return cols
}

// Analyze summarizes report rows: identity counts, overall verdicts and how
// set-2 dates relate to set-1 dates. Outdated entries are sorted most
// outdated first.
func Analyze(records []domain.ComparisonRecord) domain.Analysis {
	a := domain.Analysis{
		IdentityCounts:   make(map[string]int),
		OverallIdentical: map[domain.Verdict]int{domain.VerdictIdentical: 0, domain.VerdictDifferent: 0},
		DateComparison: map[domain.DateStatus]int{
			domain.DateStatusOutdated: 0,
			domain.DateStatusUpToDate: 0,
			domain.DateStatusEqual:    0,
			domain.DateStatusMissing:  0,
		},
	}

	for i := range records {
		rec := &records[i]
		a.TotalEntries++

		for _, u := range domain.AllUnits {
			countIdentity(a.IdentityCounts, csvexport.UnitColumn(u), rec.Verdict(u))
		}
		overall := normalizeVerdict(rec.OverallIdentical)
		countIdentity(a.IdentityCounts, csvexport.ColOverall, overall)
		if overall == domain.VerdictIdentical || overall == domain.VerdictDifferent {
			a.OverallIdentical[overall]++
		}

		status, days := compareDates(rec.WWPDBModifiedDate, rec.CCP4ModifiedDate)
		a.DateComparison[status]++
		if status == domain.DateStatusOutdated {
			a.OutdatedEntries = append(a.OutdatedEntries, domain.OutdatedEntry{
				CCDCode:          rec.CCDCode,
				WWPDBDate:        strings.TrimSpace(rec.WWPDBModifiedDate),
				CCP4Date:         strings.TrimSpace(rec.CCP4ModifiedDate),
				DaysBehind:       days,
				OverallIdentical: rec.OverallIdentical,
			})
		}
	}

	sort.SliceStable(a.OutdatedEntries, func(i, j int) bool {
		return a.OutdatedEntries[i].DaysBehind > a.OutdatedEntries[j].DaysBehind
	})
	return a
}

func countIdentity(counts map[string]int, column string, v domain.Verdict) {
	v = normalizeVerdict(v)
	if v == domain.VerdictIdentical || v == domain.VerdictDifferent {
		counts[column+"_"+string(v)]++
	}
}

func normalizeVerdict(v domain.Verdict) domain.Verdict {
	return domain.Verdict(strings.ToUpper(strings.TrimSpace(string(v))))
}

// compareDates classifies the set-2 date against the set-1 date and returns
// how many days set 2 is behind when it is outdated.
func compareDates(wwpdb, ccp4 string) (domain.DateStatus, int) {
	w, errW := time.Parse(domain.DateLayout, strings.TrimSpace(wwpdb))
	c, errC := time.Parse(domain.DateLayout, strings.TrimSpace(ccp4))
	if errW != nil || errC != nil {
		return domain.DateStatusMissing, 0
	}
	switch {
	case c.Before(w):
		return domain.DateStatusOutdated, int(w.Sub(c).Hours() / 24)
	case c.After(w):
		return domain.DateStatusUpToDate, 0
	default:
		return domain.DateStatusEqual, 0
	}
}

// WriteAnalysisReport renders the analysis as a plain-text report.
func WriteAnalysisReport(w io.Writer, a *domain.Analysis) error {
	rule := strings.Repeat("=", 80)
	sub := strings.Repeat("-", 80)
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line(rule)
	line("COMPARISON RESULTS ANALYSIS REPORT")
	line(rule)
	line("")
	line("SUMMARY STATISTICS")
	line(sub)
	line("Total entries: %s", humanize.Comma(int64(a.TotalEntries)))
	line("")

	line("OVERALL IDENTITY")
	line(sub)
	yes, no := a.OverallIdentical[domain.VerdictIdentical], a.OverallIdentical[domain.VerdictDifferent]
	if total := yes + no; total > 0 {
		line("  Identical: %s (%.2f%%)", humanize.Comma(int64(yes)), percent(yes, total))
		line("  Different: %s (%.2f%%)", humanize.Comma(int64(no)), percent(no, total))
	}
	line("")

	line("FIELD-BY-FIELD IDENTITY")
	line(sub)
	for _, u := range domain.AllUnits {
		col := csvexport.UnitColumn(u)
		y, n := a.IdentityCounts[col+"_Y"], a.IdentityCounts[col+"_N"]
		total := y + n
		if total == 0 {
			continue
		}
		line("  %-15s: Identical=%6s (%5.2f%%), Different=%6s (%5.2f%%)",
			unitLabel(u), humanize.Comma(int64(y)), percent(y, total), humanize.Comma(int64(n)), percent(n, total))
	}
	line("")

	line("DATE COMPARISON (CCP4 vs WWPDB)")
	line(sub)
	dc := a.DateComparison
	dated := dc[domain.DateStatusOutdated] + dc[domain.DateStatusUpToDate] + dc[domain.DateStatusEqual]
	if dated > 0 {
		line("  CCP4 outdated (ccp4_date < wwpdb_date): %s (%.2f%%)",
			humanize.Comma(int64(dc[domain.DateStatusOutdated])), percent(dc[domain.DateStatusOutdated], dated))
		line("  CCP4 up-to-date (ccp4_date > wwpdb_date): %s (%.2f%%)",
			humanize.Comma(int64(dc[domain.DateStatusUpToDate])), percent(dc[domain.DateStatusUpToDate], dated))
		line("  Dates equal: %s (%.2f%%)",
			humanize.Comma(int64(dc[domain.DateStatusEqual])), percent(dc[domain.DateStatusEqual], dated))
	}
	if m := dc[domain.DateStatusMissing]; m > 0 {
		line("  Missing dates: %s", humanize.Comma(int64(m)))
	}
	line("")

	writeOutdated(line, sub, a.OutdatedEntries)

	line("")
	line(rule)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeOutdated(line func(string, ...interface{}), sub string, outdated []domain.OutdatedEntry) {
	if len(outdated) == 0 {
		line("No outdated CCP4 files found.")
		return
	}
	line("OUTDATED CCP4 FILES (ccp4_modified_date < wwpdb_modified_date)")
	line(sub)
	line("Total outdated entries: %s", humanize.Comma(int64(len(outdated))))
	line("")
	line("Top %d most outdated entries:", outdatedListed)
	line("%-12s %-12s %-12s %-12s %-18s", "CCD Code", "WWPDB Date", "CCP4 Date", "Days Behind", "Overall Identical")
	line(sub)
	for i, e := range outdated {
		if i == outdatedListed {
			break
		}
		line("%-12s %-12s %-12s %-12s %-18s", e.CCDCode, e.WWPDBDate, e.CCP4Date, humanize.Comma(int64(e.DaysBehind)), string(e.OverallIdentical))
	}
	if len(outdated) > outdatedListed {
		line("")
		line("... and %s more outdated entries", humanize.Comma(int64(len(outdated)-outdatedListed)))
	}

	sum, maxDays, minDays, different := 0, outdated[0].DaysBehind, outdated[0].DaysBehind, 0
	for _, e := range outdated {
		sum += e.DaysBehind
		maxDays = max(maxDays, e.DaysBehind)
		minDays = min(minDays, e.DaysBehind)
		if e.OverallIdentical == domain.VerdictDifferent {
			different++
		}
	}
	line("")
	line("Outdated entries statistics:")
	line("  Average days behind: %.1f", float64(sum)/float64(len(outdated)))
	line("  Maximum days behind: %s", humanize.Comma(int64(maxDays)))
	line("  Minimum days behind: %s", humanize.Comma(int64(minDays)))
	line("")
	line("Outdated entries by identity status:")
	line("  Outdated and different: %s (%.2f%%)", humanize.Comma(int64(different)), percent(different, len(outdated)))
	identical := len(outdated) - different
	line("  Outdated but identical: %s (%.2f%%)", humanize.Comma(int64(identical)), percent(identical, len(outdated)))
}

func unitLabel(u domain.ComparisonUnit) string {
	s := string(u)
	return strings.ToUpper(s[:1]) + s[1:]
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
