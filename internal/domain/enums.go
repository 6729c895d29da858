package domain

// ComparisonUnit names one facet over which two records are judged equivalent.
type ComparisonUnit string

const (
	UnitName       ComparisonUnit = "name"
	UnitType       ComparisonUnit = "type"
	UnitAtom       ComparisonUnit = "atom"
	UnitBond       ComparisonUnit = "bond"
	UnitDescriptor ComparisonUnit = "descriptor"
)

// AllUnits lists the comparison units in report column order.
var AllUnits = []ComparisonUnit{UnitName, UnitType, UnitAtom, UnitBond, UnitDescriptor}

// Verdict is the rendered value of an identity column.
type Verdict string

const (
	VerdictIdentical Verdict = "Y"
	VerdictDifferent Verdict = "N"
	VerdictError     Verdict = "ERROR"
	// VerdictAbsent marks a unit the correlation table does not define.
	VerdictAbsent Verdict = ""
)

// VerdictOf converts a match flag into Y/N.
func VerdictOf(match bool) Verdict {
	if match {
		return VerdictIdentical
	}
	return VerdictDifferent
}

// SourceKind identifies where a document's text is obtained from.
type SourceKind string

const (
	SourceHTTP   SourceKind = "http"
	SourceGitHub SourceKind = "github"
	SourceLocal  SourceKind = "local"
	SourceS3     SourceKind = "s3"
)

// RunMode selects how file pairs are discovered and read.
type RunMode string

const (
	ModeLocal    RunMode = "local"
	ModeDownload RunMode = "download"
	ModeOnline   RunMode = "online"
)

// ValidRunModes maps accepted mode strings to RunMode.
var ValidRunModes = map[string]RunMode{
	"local":    ModeLocal,
	"download": ModeDownload,
	"online":   ModeOnline,
}

// RunStatus represents the lifecycle of a comparison run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// DateStatus classifies set 2 freshness relative to set 1.
type DateStatus string

const (
	DateStatusOutdated DateStatus = "ccp4_outdated"
	DateStatusUpToDate DateStatus = "ccp4_up_to_date"
	DateStatusEqual    DateStatus = "dates_equal"
	DateStatusMissing  DateStatus = "missing_dates"
)

// DateLayout renders every modification date in reports.
const DateLayout = "2006-01-02"
