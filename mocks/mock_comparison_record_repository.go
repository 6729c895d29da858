package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ccdsync/internal/domain"
)

// MockComparisonRecordRepository is a mock implementation of port.ComparisonRecordRepository.
type MockComparisonRecordRepository struct {
	mock.Mock
}

func (m *MockComparisonRecordRepository) CreateBatch(ctx context.Context, records []domain.ComparisonRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockComparisonRecordRepository) ListByRun(ctx context.Context, runID uuid.UUID, filter domain.RecordFilter) ([]domain.ComparisonRecord, int, error) {
	args := m.Called(ctx, runID, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ComparisonRecord), args.Int(1), args.Error(2)
}

func (m *MockComparisonRecordRepository) ListAllByRun(ctx context.Context, runID uuid.UUID) ([]domain.ComparisonRecord, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ComparisonRecord), args.Error(1)
}
