package noop

import (
	"context"
	"log"

	"ccdsync/internal/domain"
	"ccdsync/internal/email"
	"ccdsync/internal/port"
)

type noopSender struct{}

// NewNoopSender creates a no-op EmailSender that logs run summaries.
func NewNoopSender() port.EmailSender {
	return &noopSender{}
}

func (s *noopSender) SendRunSummary(_ context.Context, run *domain.ComparisonRun, reportLocation string) error {
	log.Printf("[NOOP EMAIL] %s", email.Subject(run))
	if reportLocation != "" {
		log.Printf("[NOOP EMAIL] report: %s", reportLocation)
	}
	return nil
}
