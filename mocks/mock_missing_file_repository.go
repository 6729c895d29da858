package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ccdsync/internal/domain"
)

// MockMissingFileRepository is a mock implementation of port.MissingFileRepository.
type MockMissingFileRepository struct {
	mock.Mock
}

func (m *MockMissingFileRepository) CreateBatch(ctx context.Context, runID uuid.UUID, missing []domain.MissingFile) error {
	args := m.Called(ctx, runID, missing)
	return args.Error(0)
}

func (m *MockMissingFileRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.MissingFile, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MissingFile), args.Error(1)
}
