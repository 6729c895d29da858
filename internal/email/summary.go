// Package email renders run summaries for the notification senders.
package email

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ccdsync/internal/domain"
)

// Subject returns the subject line for a finished run.
func Subject(run *domain.ComparisonRun) string {
	return fmt.Sprintf("ccdsync %s run %s: %s identical of %s",
		run.Mode, run.Status, humanize.Comma(int64(run.Identical)), humanize.Comma(int64(run.TotalPairs)))
}

// TextBody returns the plain-text summary.
func TextBody(run *domain.ComparisonRun, reportLocation string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s) finished with status %s.\n\n", run.ID, run.Mode, run.Status)
	for _, l := range lines(run) {
		fmt.Fprintf(&b, "  %-14s %s\n", l[0]+":", l[1])
	}
	if run.FinishedAt != nil {
		fmt.Fprintf(&b, "\nDuration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}
	if reportLocation != "" {
		fmt.Fprintf(&b, "\nReport: %s\n", reportLocation)
	}
	return b.String()
}

// HTMLBody returns the HTML summary.
func HTMLBody(run *domain.ComparisonRun, reportLocation string) string {
	var rows strings.Builder
	for _, l := range lines(run) {
		fmt.Fprintf(&rows, "    <tr><td style=\"padding: 4px 12px;\">%s</td><td style=\"padding: 4px 12px; text-align: right;\">%s</td></tr>\n",
			html.EscapeString(l[0]), html.EscapeString(l[1]))
	}
	link := ""
	if reportLocation != "" {
		link = fmt.Sprintf("  <p>Report: <a href=\"%s\">%s</a></p>\n", html.EscapeString(reportLocation), html.EscapeString(reportLocation))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Comparison run %s</h2>
  <p>Mode <b>%s</b>, status <b>%s</b>.</p>
  <table style="border-collapse: collapse;">
%s  </table>
%s</body>
</html>`, html.EscapeString(run.ID.String()), html.EscapeString(string(run.Mode)), html.EscapeString(string(run.Status)), rows.String(), link)
}

func lines(run *domain.ComparisonRun) [][2]string {
	return [][2]string{
		{"Pairs", humanize.Comma(int64(run.TotalPairs))},
		{"Identical", humanize.Comma(int64(run.Identical))},
		{"Different", humanize.Comma(int64(run.Different))},
		{"Errors", humanize.Comma(int64(run.Errors))},
		{"Missing files", humanize.Comma(int64(run.MissingFiles))},
	}
}
