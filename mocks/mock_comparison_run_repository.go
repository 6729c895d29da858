package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ccdsync/internal/domain"
)

// MockComparisonRunRepository is a mock implementation of port.ComparisonRunRepository.
type MockComparisonRunRepository struct {
	mock.Mock
}

func (m *MockComparisonRunRepository) Create(ctx context.Context, run *domain.ComparisonRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockComparisonRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ComparisonRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ComparisonRun), args.Error(1)
}

func (m *MockComparisonRunRepository) List(ctx context.Context, offset, limit int) ([]domain.ComparisonRun, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ComparisonRun), args.Int(1), args.Error(2)
}

func (m *MockComparisonRunRepository) Update(ctx context.Context, run *domain.ComparisonRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}
