package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCommitDateResolver is a mock implementation of port.CommitDateResolver.
type MockCommitDateResolver struct {
	mock.Mock
}

func (m *MockCommitDateResolver) CommitDates(ctx context.Context, fileNames []string) (map[string]string, error) {
	args := m.Called(ctx, fileNames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockCommitDateResolver) CommitDate(ctx context.Context, fileName string) (string, error) {
	args := m.Called(ctx, fileName)
	return args.String(0), args.Error(1)
}
