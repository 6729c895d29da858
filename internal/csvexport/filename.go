package csvexport

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// TimestampLayout is the suffix format of generated report names.
const TimestampLayout = "20060102_150405"

// TimestampedName inserts _{YYYYmmdd_HHMMSS} before the extension of path.
func TimestampedName(path string, now time.Time) string {
	return withSuffix(path, "_"+now.Format(TimestampLayout))
}

// RefetchedName returns {stem}_refetched_{timestamp}{ext}.
func RefetchedName(path string, now time.Time) string {
	return withSuffix(path, "_refetched_"+now.Format(TimestampLayout))
}

// MissingName returns the missing-files report path for a results path.
func MissingName(resultsPath string) string {
	if strings.HasSuffix(resultsPath, ".csv") {
		return strings.TrimSuffix(resultsPath, ".csv") + "_missing_files.csv"
	}
	return resultsPath + "_missing_files.csv"
}

// CheckpointName returns the checkpoint path used by detailed reports.
func CheckpointName(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_checkpoint.json"
}

func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for Content-Disposition header.
// Format: {sanitized_name}_{YYYY-MM-DD}.csv
func BuildFilename(name string) string {
	sanitized := SanitizeFilename(name)
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.csv", sanitized, date)
}
