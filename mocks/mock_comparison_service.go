package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ccdsync/internal/domain"
	"ccdsync/internal/service"
)

// MockComparisonService is a mock implementation of service.ComparisonService.
type MockComparisonService struct {
	mock.Mock
}

func (m *MockComparisonService) Compare(ctx context.Context, input *service.CompareInput) (*domain.RunReport, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RunReport), args.Error(1)
}

func (m *MockComparisonService) GetRun(ctx context.Context, id uuid.UUID) (*domain.ComparisonRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ComparisonRun), args.Error(1)
}

func (m *MockComparisonService) ListRuns(ctx context.Context, offset, limit int) ([]domain.ComparisonRun, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ComparisonRun), args.Int(1), args.Error(2)
}

func (m *MockComparisonService) ListRecords(ctx context.Context, runID uuid.UUID, filter domain.RecordFilter) ([]domain.ComparisonRecord, int, error) {
	args := m.Called(ctx, runID, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ComparisonRecord), args.Int(1), args.Error(2)
}

func (m *MockComparisonService) ListMissing(ctx context.Context, runID uuid.UUID) ([]domain.MissingFile, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MissingFile), args.Error(1)
}

func (m *MockComparisonService) AnalyzeRun(ctx context.Context, runID uuid.UUID) (*domain.Analysis, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analysis), args.Error(1)
}

func (m *MockComparisonService) ExportRun(ctx context.Context, runID uuid.UUID) (*domain.ComparisonRun, []domain.ComparisonRecord, error) {
	args := m.Called(ctx, runID)
	var run *domain.ComparisonRun
	if args.Get(0) != nil {
		run = args.Get(0).(*domain.ComparisonRun)
	}
	var records []domain.ComparisonRecord
	if args.Get(1) != nil {
		records = args.Get(1).([]domain.ComparisonRecord)
	}
	return run, records, args.Error(2)
}
