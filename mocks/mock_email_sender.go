package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ccdsync/internal/domain"
)

// MockEmailSender is a mock implementation of port.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendRunSummary(ctx context.Context, run *domain.ComparisonRun, reportLocation string) error {
	args := m.Called(ctx, run, reportLocation)
	return args.Error(0)
}
