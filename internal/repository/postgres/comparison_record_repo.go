package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ccdsync/internal/domain"
	"ccdsync/internal/port"
)

// insertChunk keeps multi-row inserts under the PostgreSQL parameter limit.
const insertChunk = 1000

const recordColumns = 13

type comparisonRecordRepo struct {
	db *sqlx.DB
}

// NewComparisonRecordRepo creates a new PostgreSQL-backed ComparisonRecordRepository.
func NewComparisonRecordRepo(db *sqlx.DB) port.ComparisonRecordRepository {
	return &comparisonRecordRepo{db: db}
}

func (r *comparisonRecordRepo) CreateBatch(ctx context.Context, records []domain.ComparisonRecord) error {
	for start := 0; start < len(records); start += insertChunk {
		end := min(start+insertChunk, len(records))
		query, args := buildRecordInsert(records[start:end])
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("comparisonRecordRepo.CreateBatch: %w", err)
		}
	}
	return nil
}

func buildRecordInsert(records []domain.ComparisonRecord) (query string, args []interface{}) {
	now := time.Now().UTC()
	valueStrings := make([]string, 0, len(records))
	args = make([]interface{}, 0, len(records)*recordColumns)

	for i := range records {
		rec := &records[i]
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		placeholders := make([]string, recordColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", i*recordColumns+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ", ")+")")
		args = append(args,
			rec.ID, rec.RunID, rec.CCDCode,
			rec.NameIdentical, rec.TypeIdentical, rec.AtomIdentical, rec.BondIdentical, rec.DescriptorIdentical,
			rec.OverallIdentical, rec.WWPDBModifiedDate, rec.CCP4ModifiedDate, rec.ErrorMessage, rec.CreatedAt)
	}

	query = fmt.Sprintf(
		`INSERT INTO comparison_records (
			id, run_id, ccd_code,
			name_identical, type_identical, atom_identical, bond_identical, descriptor_identical,
			overall_identical, wwpdb_modified_date, ccp4_modified_date, error_message, created_at
		) VALUES %s`,
		strings.Join(valueStrings, ", "))
	return query, args
}

// buildRecordWhere constructs the WHERE clause for record listings.
func buildRecordWhere(runID uuid.UUID, filter domain.RecordFilter) (clause string, args []interface{}) {
	args = []interface{}{runID}
	clause = "WHERE run_id = $1"
	if filter.Overall != domain.VerdictAbsent {
		clause += " AND overall_identical = $2"
		args = append(args, filter.Overall)
	}
	return clause, args
}

func (r *comparisonRecordRepo) ListByRun(ctx context.Context, runID uuid.UUID, filter domain.RecordFilter) ([]domain.ComparisonRecord, int, error) {
	where, args := buildRecordWhere(runID, filter)

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM comparison_records "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("comparisonRecordRepo.ListByRun count: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf("SELECT * FROM comparison_records %s ORDER BY ccd_code LIMIT $%d OFFSET $%d", where, n+1, n+2)
	args = append(args, filter.Limit, filter.Offset)

	var records []domain.ComparisonRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("comparisonRecordRepo.ListByRun: %w", err)
	}
	return records, total, nil
}

func (r *comparisonRecordRepo) ListAllByRun(ctx context.Context, runID uuid.UUID) ([]domain.ComparisonRecord, error) {
	var records []domain.ComparisonRecord
	err := r.db.SelectContext(ctx, &records,
		"SELECT * FROM comparison_records WHERE run_id = $1 ORDER BY ccd_code", runID)
	if err != nil {
		return nil, fmt.Errorf("comparisonRecordRepo.ListAllByRun: %w", err)
	}
	return records, nil
}
