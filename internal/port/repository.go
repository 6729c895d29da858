package port

import (
	"context"

	"github.com/google/uuid"

	"ccdsync/internal/domain"
)

// ComparisonRunRepository defines the contract for run persistence.
type ComparisonRunRepository interface {
	Create(ctx context.Context, run *domain.ComparisonRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ComparisonRun, error)
	List(ctx context.Context, offset, limit int) ([]domain.ComparisonRun, int, error)
	Update(ctx context.Context, run *domain.ComparisonRun) error
}

// ComparisonRecordRepository defines the contract for per-code result rows.
type ComparisonRecordRepository interface {
	CreateBatch(ctx context.Context, records []domain.ComparisonRecord) error
	ListByRun(ctx context.Context, runID uuid.UUID, filter domain.RecordFilter) ([]domain.ComparisonRecord, int, error)
	ListAllByRun(ctx context.Context, runID uuid.UUID) ([]domain.ComparisonRecord, error)
}

// MissingFileRepository defines the contract for codes present in one set only.
type MissingFileRepository interface {
	CreateBatch(ctx context.Context, runID uuid.UUID, missing []domain.MissingFile) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.MissingFile, error)
}
