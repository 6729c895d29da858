package port

import (
	"context"

	"ccdsync/internal/domain"
)

// EmailSender defines the contract for run notifications.
type EmailSender interface {
	// SendRunSummary reports the counters of a finished run. reportLocation
	// is where the written report can be fetched from, or empty.
	SendRunSummary(ctx context.Context, run *domain.ComparisonRun, reportLocation string) error
}
