package domain

import (
	"time"

	"github.com/google/uuid"
)

// ComparisonResult holds the per-unit verdicts for one document pair. Units
// missing from the map were not defined by the correlation table.
type ComparisonResult struct {
	Units map[ComparisonUnit]bool `json:"units"`
}

// NewComparisonResult creates an empty result.
func NewComparisonResult() ComparisonResult {
	return ComparisonResult{Units: make(map[ComparisonUnit]bool, len(AllUnits))}
}

// Has reports whether the unit took part in the comparison.
func (r ComparisonResult) Has(u ComparisonUnit) bool {
	_, ok := r.Units[u]
	return ok
}

// Verdict renders a unit as Y, N, or empty when the unit is absent.
func (r ComparisonResult) Verdict(u ComparisonUnit) Verdict {
	match, ok := r.Units[u]
	if !ok {
		return VerdictAbsent
	}
	return VerdictOf(match)
}

// Overall is the logical AND of all present units.
func (r ComparisonResult) Overall() bool {
	for _, match := range r.Units {
		if !match {
			return false
		}
	}
	return true
}

// DocumentRef locates one side of a pair.
type DocumentRef struct {
	Kind SourceKind `json:"kind"`
	Base string     `json:"base,omitempty"`
	Path string     `json:"path"`
}

// FilePair is one unit of work for the comparison pool.
type FilePair struct {
	Code string      `json:"code"`
	A    DocumentRef `json:"a"`
	B    DocumentRef `json:"b"`
}

// PairOutcome is either a comparison result or the error that prevented it.
type PairOutcome struct {
	Pair   FilePair
	Result *ComparisonResult
	DateA  string
	DateB  string
	Err    error
}

// Record converts the outcome into a report row.
func (o *PairOutcome) Record(runID uuid.UUID) ComparisonRecord {
	if o.Err != nil || o.Result == nil {
		rec := NewErrorRecord(o.Pair.Code, o.Err)
		rec.RunID = runID
		return rec
	}
	rec := NewComparisonRecord(o.Pair.Code, *o.Result, o.DateA, o.DateB)
	rec.RunID = runID
	return rec
}

// ComparisonRecord is one report row: the verdicts for a single component code.
type ComparisonRecord struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	RunID               uuid.UUID `db:"run_id" json:"run_id"`
	CCDCode             string    `db:"ccd_code" json:"ccd_code"`
	NameIdentical       Verdict   `db:"name_identical" json:"name_identical"`
	TypeIdentical       Verdict   `db:"type_identical" json:"type_identical"`
	AtomIdentical       Verdict   `db:"atom_identical" json:"atom_identical"`
	BondIdentical       Verdict   `db:"bond_identical" json:"bond_identical"`
	DescriptorIdentical Verdict   `db:"descriptor_identical" json:"descriptor_identical"`
	OverallIdentical    Verdict   `db:"overall_identical" json:"overall_identical"`
	WWPDBModifiedDate   string    `db:"wwpdb_modified_date" json:"wwpdb_modified_date"`
	CCP4ModifiedDate    string    `db:"ccp4_modified_date" json:"ccp4_modified_date"`
	ErrorMessage        string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// NewComparisonRecord builds a row from a successful comparison.
func NewComparisonRecord(code string, res ComparisonResult, wwpdbDate, ccp4Date string) ComparisonRecord {
	rec := ComparisonRecord{
		ID:                uuid.New(),
		CCDCode:           code,
		OverallIdentical:  VerdictOf(res.Overall()),
		WWPDBModifiedDate: wwpdbDate,
		CCP4ModifiedDate:  ccp4Date,
		CreatedAt:         time.Now().UTC(),
	}
	for _, u := range AllUnits {
		rec.SetVerdict(u, res.Verdict(u))
	}
	return rec
}

// NewErrorRecord builds a row for a pair that could not be compared. Every
// identity column carries ERROR so it cannot be mistaken for a mismatch.
func NewErrorRecord(code string, err error) ComparisonRecord {
	rec := ComparisonRecord{
		ID:               uuid.New(),
		CCDCode:          code,
		OverallIdentical: VerdictError,
		CreatedAt:        time.Now().UTC(),
	}
	for _, u := range AllUnits {
		rec.SetVerdict(u, VerdictError)
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	return rec
}

// Verdict returns the identity column for a unit.
func (r *ComparisonRecord) Verdict(u ComparisonUnit) Verdict {
	switch u {
	case UnitName:
		return r.NameIdentical
	case UnitType:
		return r.TypeIdentical
	case UnitAtom:
		return r.AtomIdentical
	case UnitBond:
		return r.BondIdentical
	case UnitDescriptor:
		return r.DescriptorIdentical
	}
	return VerdictAbsent
}

// SetVerdict sets the identity column for a unit.
func (r *ComparisonRecord) SetVerdict(u ComparisonUnit, v Verdict) {
	switch u {
	case UnitName:
		r.NameIdentical = v
	case UnitType:
		r.TypeIdentical = v
	case UnitAtom:
		r.AtomIdentical = v
	case UnitBond:
		r.BondIdentical = v
	case UnitDescriptor:
		r.DescriptorIdentical = v
	}
}

// IsError reports whether the row is an error marker row.
func (r *ComparisonRecord) IsError() bool {
	return r.OverallIdentical == VerdictError
}

// HasDifferences reports whether any unit was compared and found different.
func (r *ComparisonRecord) HasDifferences() bool {
	for _, u := range AllUnits {
		if r.Verdict(u) == VerdictDifferent {
			return true
		}
	}
	return false
}

// ComparisonRun is one execution over a set of file pairs.
type ComparisonRun struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Mode         RunMode    `db:"mode" json:"mode"`
	Status       RunStatus  `db:"status" json:"status"`
	TotalPairs   int        `db:"total_pairs" json:"total_pairs"`
	Identical    int        `db:"identical" json:"identical"`
	Different    int        `db:"different" json:"different"`
	Errors       int        `db:"errors" json:"errors"`
	MissingFiles int        `db:"missing_files" json:"missing_files"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	FinishedAt   *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// Tally updates the run counters from a finished record.
func (r *ComparisonRun) Tally(rec *ComparisonRecord) {
	switch rec.OverallIdentical {
	case VerdictIdentical:
		r.Identical++
	case VerdictError:
		r.Errors++
	default:
		r.Different++
	}
}

// MissingFile is a component code present in only one of the two sets.
type MissingFile struct {
	CCDCode         string `db:"ccd_code" json:"ccd_code"`
	MissingFromSet1 bool   `db:"missing_from_set1" json:"missing_from_set1"`
	MissingFromSet2 bool   `db:"missing_from_set2" json:"missing_from_set2"`
}

// RunReport bundles everything a finished run produced.
type RunReport struct {
	Run     ComparisonRun      `json:"run"`
	Records []ComparisonRecord `json:"records"`
	Missing []MissingFile      `json:"missing,omitempty"`
}

// RecordFilter narrows record listings.
type RecordFilter struct {
	Overall Verdict
	Offset  int
	Limit   int
}

// UnitDifference lists the normalized entries present on only one side.
type UnitDifference struct {
	Unit    ComparisonUnit `json:"unit"`
	OnlyInA []string       `json:"only_in_a"`
	OnlyInB []string       `json:"only_in_b"`
}

// DetailedRecord pairs a report row with the differences behind it.
type DetailedRecord struct {
	Record      ComparisonRecord `json:"record"`
	Differences []UnitDifference `json:"differences"`
	Note        string           `json:"note,omitempty"`
}

// OutdatedEntry is a code whose set 2 copy predates the set 1 copy.
type OutdatedEntry struct {
	CCDCode          string  `json:"ccd_code"`
	WWPDBDate        string  `json:"wwpdb_date"`
	CCP4Date         string  `json:"ccp4_date"`
	DaysBehind       int     `json:"days_behind"`
	OverallIdentical Verdict `json:"overall_identical"`
}

// Analysis summarizes a set of report rows.
type Analysis struct {
	TotalEntries     int                `json:"total_entries"`
	IdentityCounts   map[string]int     `json:"identity_counts"`
	OverallIdentical map[Verdict]int    `json:"overall_identical"`
	DateComparison   map[DateStatus]int `json:"date_comparison"`
	OutdatedEntries  []OutdatedEntry    `json:"outdated_entries"`
}
