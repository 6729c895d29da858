package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ccdsync/internal/domain"
	"ccdsync/internal/port"
)

type comparisonRunRepo struct {
	db *sqlx.DB
}

// NewComparisonRunRepo creates a new PostgreSQL-backed ComparisonRunRepository.
func NewComparisonRunRepo(db *sqlx.DB) port.ComparisonRunRepository {
	return &comparisonRunRepo{db: db}
}

func (r *comparisonRunRepo) Create(ctx context.Context, run *domain.ComparisonRun) error {
	query := `INSERT INTO comparison_runs (id, mode, status, total_pairs, identical, different, errors, missing_files, started_at, finished_at)
		VALUES (:id, :mode, :status, :total_pairs, :identical, :different, :errors, :missing_files, :started_at, :finished_at)`

	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("comparisonRunRepo.Create: %w", err)
	}
	return nil
}

func (r *comparisonRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ComparisonRun, error) {
	var run domain.ComparisonRun
	err := r.db.GetContext(ctx, &run, "SELECT * FROM comparison_runs WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("comparisonRunRepo.GetByID: %w", err)
	}
	return &run, nil
}

func (r *comparisonRunRepo) List(ctx context.Context, offset, limit int) ([]domain.ComparisonRun, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM comparison_runs"); err != nil {
		return nil, 0, fmt.Errorf("comparisonRunRepo.List count: %w", err)
	}

	var runs []domain.ComparisonRun
	err := r.db.SelectContext(ctx, &runs,
		"SELECT * FROM comparison_runs ORDER BY started_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("comparisonRunRepo.List: %w", err)
	}
	return runs, total, nil
}

func (r *comparisonRunRepo) Update(ctx context.Context, run *domain.ComparisonRun) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE comparison_runs SET status = $1, total_pairs = $2, identical = $3, different = $4,
		 errors = $5, missing_files = $6, finished_at = $7
		 WHERE id = $8`,
		run.Status, run.TotalPairs, run.Identical, run.Different,
		run.Errors, run.MissingFiles, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("comparisonRunRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}
