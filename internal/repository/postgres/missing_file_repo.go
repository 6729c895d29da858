package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ccdsync/internal/domain"
	"ccdsync/internal/port"
)

type missingFileRepo struct {
	db *sqlx.DB
}

// NewMissingFileRepo creates a new PostgreSQL-backed MissingFileRepository.
func NewMissingFileRepo(db *sqlx.DB) port.MissingFileRepository {
	return &missingFileRepo{db: db}
}

func (r *missingFileRepo) CreateBatch(ctx context.Context, runID uuid.UUID, missing []domain.MissingFile) error {
	for start := 0; start < len(missing); start += insertChunk {
		end := min(start+insertChunk, len(missing))
		chunk := missing[start:end]

		valueStrings := make([]string, 0, len(chunk))
		args := make([]interface{}, 0, len(chunk)*4)
		for i, m := range chunk {
			base := i * 4
			valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
			args = append(args, runID, m.CCDCode, m.MissingFromSet1, m.MissingFromSet2)
		}
		query := `INSERT INTO missing_files (run_id, ccd_code, missing_from_set1, missing_from_set2)
			VALUES ` + strings.Join(valueStrings, ", ") + `
			ON CONFLICT (run_id, ccd_code) DO NOTHING`
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("missingFileRepo.CreateBatch: %w", err)
		}
	}
	return nil
}

func (r *missingFileRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.MissingFile, error) {
	var missing []domain.MissingFile
	err := r.db.SelectContext(ctx, &missing,
		`SELECT ccd_code, missing_from_set1, missing_from_set2
		 FROM missing_files WHERE run_id = $1 ORDER BY ccd_code`, runID)
	if err != nil {
		return nil, fmt.Errorf("missingFileRepo.ListByRun: %w", err)
	}
	return missing, nil
}
